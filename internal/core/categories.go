package core

import (
	"context"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/validation"
)

// CategoryDraft holds the fields of a new category.
type CategoryDraft struct {
	SpaceID string `json:"space_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=2,max=16"`
	Icon    string `json:"icon" validate:"omitempty,emoji"`
}

// CategoryUpdate holds the category fields to change. Nil fields are left as is.
type CategoryUpdate struct {
	Name *string `json:"name" validate:"omitnil,min=2,max=16"`
	Icon *string `json:"icon" validate:"omitnil,emoji"`
}

// CreateCategory creates a category in a space. Owners and editors only.
func (s *Service) CreateCategory(ctx context.Context, actorID string, draft CategoryDraft) (*models.Category, error) {
	if err := validation.Struct(draft); err != nil {
		return nil, err
	}
	if _, _, err := s.scope(ctx, actorID, draft.SpaceID, authz.ActionCreate); err != nil {
		return nil, err
	}

	c := models.NewCategory(draft.SpaceID, draft.Name, draft.Icon, actorID, s.clock())
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "create category %q", draft.Name)
	}
	return c, nil
}

// GetCategory returns an active category visible to the actor.
func (s *Service) GetCategory(ctx context.Context, actorID, categoryID string) (*models.Category, error) {
	c, err := s.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.scope(ctx, actorID, c.SpaceID, authz.ActionView); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns the active categories of a space.
func (s *Service) ListCategories(ctx context.Context, actorID, spaceID string) ([]*models.Category, error) {
	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionView); err != nil {
		return nil, err
	}

	all, err := s.store.ListCategories(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list categories of space %s", spaceID)
	}

	active := all[:0]
	for _, c := range all {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	return active, nil
}

// UpdateCategory changes an active category. Editors may change their own
// categories, owners any.
func (s *Service) UpdateCategory(ctx context.Context, actorID, categoryID string, update CategoryUpdate) (*models.Category, error) {
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	c, err := s.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.scopeOwned(ctx, actorID, c.SpaceID, c.CreatedBy); err != nil {
		return nil, err
	}

	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Icon != nil {
		c.Icon = *update.Icon
	}

	c.Touch(s.clock())
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "update category %s", categoryID)
	}
	return c, nil
}

// DeactivateCategory retires a category under the same rule as update.
// Bills keep their reference to it.
func (s *Service) DeactivateCategory(ctx context.Context, actorID, categoryID string) error {
	c, err := s.FindCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if _, err := s.scopeOwned(ctx, actorID, c.SpaceID, c.CreatedBy); err != nil {
		return err
	}

	c.Deactivate(s.clock())
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return storeErr(err, "deactivate category %s", categoryID)
	}
	return nil
}
