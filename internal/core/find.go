package core

import (
	"context"
	"fmt"

	"github.com/mmynk/billspace/internal/models"
)

// The Find methods are direct-key lookups without authorization. A retired
// record is returned together with ErrInactive so callers can tell "retired"
// from "absent"; a missing one yields ErrNotFound and a nil record.

// FindUser looks up a user by ID.
func (s *Service) FindUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get user %s", id)
	}
	if !u.IsActive() {
		return u, fmt.Errorf("user %s: %w", id, ErrInactive)
	}
	return u, nil
}

// FindSpace looks up a space by ID.
func (s *Service) FindSpace(ctx context.Context, id string) (*models.Space, error) {
	sp, err := s.store.GetSpace(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get space %s", id)
	}
	if !sp.IsActive() {
		return sp, fmt.Errorf("space %s: %w", id, ErrInactive)
	}
	return sp, nil
}

// FindCategory looks up a category by ID.
func (s *Service) FindCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get category %s", id)
	}
	if !c.IsActive() {
		return c, fmt.Errorf("category %s: %w", id, ErrInactive)
	}
	return c, nil
}

// FindBill looks up a bill by ID.
func (s *Service) FindBill(ctx context.Context, id string) (*models.Bill, error) {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get bill %s", id)
	}
	if !b.IsActive() {
		return b, fmt.Errorf("bill %s: %w", id, ErrInactive)
	}
	return b, nil
}
