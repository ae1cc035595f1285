package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/calculator"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/internal/validation"
)

// SplitDraft is one requested payer split.
type SplitDraft struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// SetPayers replaces the payer splits of a bill. Editors may change their
// own bills, owners any.
//
// Every participant must be an active member of the bill's space and appear
// once, every amount must be valid for the bill's currency, and the amounts
// must sum to the bill amount exactly. A mismatch is reported as a
// *SplitMismatchError and leaves the previous splits in place. An empty
// list records that the payer covers the whole amount.
func (s *Service) SetPayers(ctx context.Context, actorID, billID string, splits []SplitDraft) (*models.Bill, error) {
	b, unlock, err := s.lockBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, b.SpaceID, b.CreatedBy); err != nil {
		return nil, err
	}

	if splits == nil {
		splits = []SplitDraft{}
	}
	if violations := splitFieldViolations(b.Currency, splits); len(violations) > 0 {
		return nil, validation.Fail(violations...)
	}
	if err := s.applySplits(ctx, b, splits); err != nil {
		return nil, err
	}

	b.Touch(s.clock())
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return nil, storeErr(err, "set payers of bill %s", billID)
	}
	return b, nil
}

// SplitEvenly sets payer splits dividing the bill amount equally among
// userIDs. Leftover minor units go to the first participants.
func (s *Service) SplitEvenly(ctx context.Context, actorID, billID string, userIDs []string) (*models.Bill, error) {
	b, err := s.FindBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if _, err := s.scopeOwned(ctx, actorID, b.SpaceID, b.CreatedBy); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, validation.Fail(validation.Violation{
			Field:   "user_ids",
			Rule:    "required",
			Message: "is required",
		})
	}

	shares, err := calculator.SplitEvenly(b.Amount, b.Currency, userIDs)
	if err != nil {
		return nil, validation.Fail(validation.Violation{Field: "amount", Rule: "split", Message: err.Error()})
	}

	drafts := make([]SplitDraft, len(shares))
	for i, sh := range shares {
		drafts[i] = SplitDraft{UserID: sh.UserID, Amount: sh.Amount}
	}
	// SetPayers re-reads the bill under the lock and rejects the split if
	// the amount changed in between.
	return s.SetPayers(ctx, actorID, billID, drafts)
}

// ClearPayers resets a bill to having no split decision.
func (s *Service) ClearPayers(ctx context.Context, actorID, billID string) (*models.Bill, error) {
	b, unlock, err := s.lockBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, b.SpaceID, b.CreatedBy); err != nil {
		return nil, err
	}

	b.SplitState = models.SplitUnspecified
	b.Splits = nil
	b.Touch(s.clock())
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return nil, storeErr(err, "clear payers of bill %s", billID)
	}
	return b, nil
}

// splitFieldViolations checks the splits on their own: user present,
// non-negative amounts within the currency's scale, no repeated user.
func splitFieldViolations(currency models.Currency, splits []SplitDraft) []validation.Violation {
	var violations []validation.Violation
	seen := make(map[string]bool, len(splits))

	for i, sp := range splits {
		prefix := fmt.Sprintf("splits[%d]", i)

		switch {
		case sp.UserID == "":
			violations = append(violations, validation.Violation{Field: prefix + ".user_id", Rule: "required", Message: "is required"})
		case seen[sp.UserID]:
			violations = append(violations, validation.Violation{Field: prefix + ".user_id", Rule: "unique", Message: "appears more than once"})
		}
		seen[sp.UserID] = true

		if v := validation.Money(prefix+".amount", currency, sp.Amount); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}

// applySplits checks membership of every participant and the sum, then
// sets the bill's split state. Field-level checks must already have passed.
// On failure b is left unchanged.
func (s *Service) applySplits(ctx context.Context, b *models.Bill, drafts []SplitDraft) error {
	var violations []validation.Violation
	splits := make([]models.PayerSplit, len(drafts))

	for i, d := range drafts {
		ok, err := s.isActiveMember(ctx, b.SpaceID, d.UserID)
		if err != nil {
			return err
		}
		if !ok {
			violations = append(violations, validation.Violation{
				Field:   fmt.Sprintf("splits[%d].user_id", i),
				Rule:    "member",
				Message: "must be an active member of the space",
			})
		}
		splits[i] = models.PayerSplit{UserID: d.UserID, Amount: d.Amount}
	}
	if len(violations) > 0 {
		return validation.Fail(violations...)
	}

	if len(splits) == 0 {
		b.SplitState = models.SplitPayerCovers
		b.Splits = splits
		return nil
	}

	if total := models.SumSplits(splits); !total.Equal(b.Amount) {
		return newSplitMismatch(b.Amount, total)
	}
	b.SplitState = models.SplitShared
	b.Splits = splits
	return nil
}

// isActiveMember reports whether userID is an active user with a membership
// in spaceID.
func (s *Service) isActiveMember(ctx context.Context, spaceID, userID string) (bool, error) {
	if _, err := s.store.GetMembership(ctx, spaceID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, storeErr(err, "get membership of %s in space %s", userID, spaceID)
	}

	if _, err := s.FindUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
