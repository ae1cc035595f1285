package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/validation"
)

// BillDraft holds the fields of a new bill.
//
// Splits distinguishes nil from empty: nil leaves the split undecided,
// an empty list means the payer covers the whole amount.
type BillDraft struct {
	SpaceID    string          `json:"space_id" validate:"required"`
	Name       string          `json:"name" validate:"required,min=2,max=16"`
	Icon       string          `json:"icon" validate:"omitempty,emoji"`
	Note       string          `json:"note" validate:"max=256"`
	Amount     decimal.Decimal `json:"amount" validate:"money"`
	Currency   models.Currency `json:"currency" validate:"required,currency"`
	Cycle      int             `json:"cycle" validate:"omitempty,gte=1"`
	Interval   models.Interval `json:"interval" validate:"omitempty,interval"`
	FirstBill  time.Time       `json:"first_bill"`
	PayerID    string          `json:"payer_id"`
	IsShared   bool            `json:"is_shared"`
	ParentID   string          `json:"parent_id"`
	CategoryID string          `json:"category_id"`
	Splits     []SplitDraft    `json:"splits" validate:"-"`
}

// BillUpdate holds the bill fields to change. Nil fields are left as is;
// an empty CategoryID clears the category.
type BillUpdate struct {
	Name       *string          `json:"name" validate:"omitnil,min=2,max=16"`
	Icon       *string          `json:"icon" validate:"omitnil,emoji"`
	Note       *string          `json:"note" validate:"omitnil,max=256"`
	Amount     *decimal.Decimal `json:"amount" validate:"omitnil,money"`
	Currency   *models.Currency `json:"currency" validate:"omitnil,currency"`
	Cycle      *int             `json:"cycle" validate:"omitnil,gte=1"`
	Interval   *models.Interval `json:"interval" validate:"omitnil,interval"`
	FirstBill  *time.Time       `json:"first_bill"`
	PayerID    *string          `json:"payer_id" validate:"omitnil,min=1"`
	IsShared   *bool            `json:"is_shared"`
	CategoryID *string          `json:"category_id"`
}

// CreateBill creates a bill in a space. Owners and editors only.
//
// The payer defaults to the actor and must be an active member. An optional
// category must be active and in the same space. An optional parent follows
// the same rules as AttachChild, and optional splits the same rules as
// SetPayers.
func (s *Service) CreateBill(ctx context.Context, actorID string, draft BillDraft) (*models.Bill, error) {
	extra := splitFieldViolations(draft.Currency, draft.Splits)
	if v := scaleViolation("amount", draft.Currency, draft.Amount); v != nil {
		extra = append(extra, *v)
	}
	if err := validation.Struct(draft, extra...); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(draft.SpaceID)
	defer unlock()

	if _, _, err := s.scope(ctx, actorID, draft.SpaceID, authz.ActionCreate); err != nil {
		return nil, err
	}

	now := s.clock()
	b := models.NewBill(draft.SpaceID, actorID, now)
	b.Name = draft.Name
	b.Note = draft.Note
	b.Amount = draft.Amount
	b.Currency = draft.Currency
	b.IsShared = draft.IsShared
	b.PayerID = draft.PayerID
	b.FirstBill = draft.FirstBill
	if draft.Icon != "" {
		b.Icon = draft.Icon
	}
	if draft.Cycle != 0 {
		b.Cycle = draft.Cycle
	}
	if draft.Interval != "" {
		b.Interval = draft.Interval
	}
	if b.PayerID == "" {
		b.PayerID = actorID
	}
	if b.FirstBill.IsZero() {
		b.FirstBill = now.Truncate(24 * time.Hour)
	}

	if err := s.checkPayer(ctx, b.SpaceID, b.PayerID); err != nil {
		return nil, err
	}
	if draft.CategoryID != "" {
		if err := s.checkCategory(ctx, b.SpaceID, draft.CategoryID); err != nil {
			return nil, err
		}
		b.CategoryID = draft.CategoryID
	}
	if draft.ParentID != "" {
		parent, err := s.resolveParent(ctx, b.SpaceID, draft.ParentID, b.ID)
		if err != nil {
			return nil, err
		}
		b.ParentID = parent.ID
	}
	if draft.Splits != nil {
		if err := s.applySplits(ctx, b, draft.Splits); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateBill(ctx, b); err != nil {
		return nil, storeErr(err, "create bill %q", draft.Name)
	}
	return b, nil
}

// GetBill returns an active bill visible to the actor.
func (s *Service) GetBill(ctx context.Context, actorID, billID string) (*models.Bill, error) {
	b, err := s.FindBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.scope(ctx, actorID, b.SpaceID, authz.ActionView); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBills returns the active bills of a space.
func (s *Service) ListBills(ctx context.Context, actorID, spaceID string) ([]*models.Bill, error) {
	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionView); err != nil {
		return nil, err
	}

	all, err := s.store.ListBills(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list bills of space %s", spaceID)
	}
	return activeBills(all), nil
}

// ListChildren returns the active bills whose parent is billID.
func (s *Service) ListChildren(ctx context.Context, actorID, billID string) ([]*models.Bill, error) {
	parent, err := s.GetBill(ctx, actorID, billID)
	if err != nil {
		return nil, err
	}

	children, err := s.store.ListChildBills(ctx, parent.ID)
	if err != nil {
		return nil, storeErr(err, "list children of bill %s", parent.ID)
	}
	return activeBills(children), nil
}

func activeBills(bills []*models.Bill) []*models.Bill {
	active := bills[:0]
	for _, b := range bills {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	return active
}

// UpdateBill changes an active bill. Editors may change their own bills,
// owners any. Amount and currency can only change while no payer split
// is set.
func (s *Service) UpdateBill(ctx context.Context, actorID, billID string, update BillUpdate) (*models.Bill, error) {
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	b, unlock, err := s.lockBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, b.SpaceID, b.CreatedBy); err != nil {
		return nil, err
	}

	amountChanged := update.Amount != nil && !update.Amount.Equal(b.Amount)
	currencyChanged := update.Currency != nil && *update.Currency != b.Currency
	if (amountChanged || currencyChanged) && !b.CanModifyAmount() {
		return nil, ErrSplitsLocked
	}
	if amountChanged {
		b.Amount = *update.Amount
	}
	if currencyChanged {
		b.Currency = *update.Currency
	}
	if v := scaleViolation("amount", b.Currency, b.Amount); v != nil {
		return nil, validation.Fail(*v)
	}

	if update.PayerID != nil && *update.PayerID != b.PayerID {
		if err := s.checkPayer(ctx, b.SpaceID, *update.PayerID); err != nil {
			return nil, err
		}
		b.PayerID = *update.PayerID
	}
	if update.CategoryID != nil && *update.CategoryID != b.CategoryID {
		if *update.CategoryID != "" {
			if err := s.checkCategory(ctx, b.SpaceID, *update.CategoryID); err != nil {
				return nil, err
			}
		}
		b.CategoryID = *update.CategoryID
	}

	if update.Name != nil {
		b.Name = *update.Name
	}
	if update.Icon != nil {
		b.Icon = *update.Icon
	}
	if update.Note != nil {
		b.Note = *update.Note
	}
	if update.Cycle != nil {
		b.Cycle = *update.Cycle
	}
	if update.Interval != nil {
		b.Interval = *update.Interval
	}
	if update.FirstBill != nil {
		b.FirstBill = update.FirstBill.UTC()
	}
	if update.IsShared != nil {
		b.IsShared = *update.IsShared
	}

	b.Touch(s.clock())
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return nil, storeErr(err, "update bill %s", billID)
	}
	return b, nil
}

// DeactivateBill retires a bill under the same rule as update. Its children
// keep their parent reference.
func (s *Service) DeactivateBill(ctx context.Context, actorID, billID string) error {
	b, unlock, err := s.lockBill(ctx, billID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, b.SpaceID, b.CreatedBy); err != nil {
		return err
	}

	b.Deactivate(s.clock())
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return storeErr(err, "deactivate bill %s", billID)
	}
	return nil
}

// lockBill finds an active bill, takes its space lock and reads the bill
// again under the lock. The caller must call unlock.
func (s *Service) lockBill(ctx context.Context, billID string) (*models.Bill, func(), error) {
	b, err := s.FindBill(ctx, billID)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.locks.lock(b.SpaceID)
	b, err = s.FindBill(ctx, billID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return b, unlock, nil
}

// checkPayer requires userID to be an active user with a membership in the space.
func (s *Service) checkPayer(ctx context.Context, spaceID, userID string) error {
	ok, err := s.isActiveMember(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return validation.Fail(validation.Violation{
			Field:   "payer_id",
			Rule:    "member",
			Message: "must be an active member of the space",
		})
	}
	return nil
}

// checkCategory requires an active category in the same space. A category
// from another space is reported as not found.
func (s *Service) checkCategory(ctx context.Context, spaceID, categoryID string) error {
	c, err := s.FindCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if c.SpaceID != spaceID {
		return fmt.Errorf("category %s in space %s: %w", categoryID, spaceID, ErrNotFound)
	}
	return nil
}

func scaleViolation(field string, currency models.Currency, amount decimal.Decimal) *validation.Violation {
	// Negative amounts are reported by the money rule.
	if amount.IsNegative() {
		return nil
	}
	return validation.Money(field, currency, amount)
}
