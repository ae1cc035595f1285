package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/validation"
)

// SettlementDraft holds the fields of a recorded payment between members.
type SettlementDraft struct {
	SpaceID    string          `json:"space_id" validate:"required"`
	FromUserID string          `json:"from_user_id" validate:"required"`
	ToUserID   string          `json:"to_user_id" validate:"required,nefield=FromUserID"`
	Amount     decimal.Decimal `json:"amount" validate:"money"`
	Currency   models.Currency `json:"currency" validate:"required,currency"`
	Note       string          `json:"note" validate:"max=256"`
}

// RecordSettlement records that FromUserID paid ToUserID outside of any
// bill. Owners and editors only. Both parties must be active members of the
// space and the amount must be positive.
func (s *Service) RecordSettlement(ctx context.Context, actorID string, draft SettlementDraft) (*models.Settlement, error) {
	var extra []validation.Violation
	if draft.Amount.IsZero() {
		extra = append(extra, validation.Violation{Field: "amount", Rule: "gt", Message: "must be greater than zero"})
	} else if v := scaleViolation("amount", draft.Currency, draft.Amount); v != nil {
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

	var violations []validation.Violation
	parties := []struct{ field, userID string }{
		{"from_user_id", draft.FromUserID},
		{"to_user_id", draft.ToUserID},
	}
	for _, p := range parties {
		ok, err := s.isActiveMember(ctx, draft.SpaceID, p.userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			violations = append(violations, validation.Violation{
				Field:   p.field,
				Rule:    "member",
				Message: "must be an active member of the space",
			})
		}
	}
	if len(violations) > 0 {
		return nil, validation.Fail(violations...)
	}

	st := models.NewSettlement(draft.SpaceID, draft.FromUserID, draft.ToUserID, draft.Amount, draft.Currency, actorID, s.clock())
	st.Note = draft.Note
	if err := s.store.CreateSettlement(ctx, st); err != nil {
		return nil, storeErr(err, "record settlement in space %s", draft.SpaceID)
	}
	return st, nil
}

// ListSettlements returns the active settlements of a space, newest first.
func (s *Service) ListSettlements(ctx context.Context, actorID, spaceID string) ([]*models.Settlement, error) {
	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionView); err != nil {
		return nil, err
	}

	all, err := s.store.ListSettlements(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list settlements of space %s", spaceID)
	}

	active := all[:0]
	for _, st := range all {
		if st.IsActive() {
			active = append(active, st)
		}
	}
	return active, nil
}

// DeactivateSettlement retires a settlement so it no longer counts towards
// balances. Editors may retire the settlements they recorded, owners any.
func (s *Service) DeactivateSettlement(ctx context.Context, actorID, settlementID string) error {
	st, err := s.findSettlement(ctx, settlementID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(st.SpaceID)
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, st.SpaceID, st.CreatedBy); err != nil {
		return err
	}

	st.Deactivate(s.clock())
	if err := s.store.UpdateSettlement(ctx, st); err != nil {
		return storeErr(err, "deactivate settlement %s", settlementID)
	}
	return nil
}

func (s *Service) findSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	st, err := s.store.GetSettlement(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get settlement %s", id)
	}
	if !st.IsActive() {
		return st, fmt.Errorf("settlement %s: %w", id, ErrInactive)
	}
	return st, nil
}
