package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

// AttachChild links childID under parentID in a recurrence chain.
//
// The child must be active and have no parent. The parent must be active,
// in the same space, and must not have the child among its ancestors.
func (s *Service) AttachChild(ctx context.Context, actorID, parentID, childID string) (*models.Bill, error) {
	child, unlock, err := s.lockBill(ctx, childID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.scopeOwned(ctx, actorID, child.SpaceID, child.CreatedBy); err != nil {
		return nil, err
	}
	if child.ParentID != "" {
		return nil, fmt.Errorf("bill %s: %w", child.ID, ErrHasParent)
	}

	parent, err := s.resolveParent(ctx, child.SpaceID, parentID, child.ID)
	if err != nil {
		return nil, err
	}

	child.ParentID = parent.ID
	child.Touch(s.clock())
	if err := s.store.UpdateBill(ctx, child); err != nil {
		return nil, storeErr(err, "attach bill %s to %s", child.ID, parent.ID)
	}
	return child, nil
}

// Orphan detaches a bill from its parent. Any owner or editor of the space
// may do this regardless of who created the bill.
func (s *Service) Orphan(ctx context.Context, actorID, childID string) (*models.Bill, error) {
	child, unlock, err := s.lockBill(ctx, childID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, _, err := s.scope(ctx, actorID, child.SpaceID, authz.ActionCreate); err != nil {
		return nil, err
	}
	if child.ParentID == "" {
		return child, nil
	}

	child.ParentID = ""
	child.Touch(s.clock())
	if err := s.store.UpdateBill(ctx, child); err != nil {
		return nil, storeErr(err, "orphan bill %s", child.ID)
	}
	return child, nil
}

// resolveParent checks that parentID can become the parent of childID in
// spaceID and returns the parent.
//
// It walks from the parent towards the root. Reaching childID means the
// link would close a cycle. Retired ancestors are still followed; a
// dangling reference ends the walk. A chain that would hold more than
// MaxRecurrenceDepth bills is rejected as a cycle.
func (s *Service) resolveParent(ctx context.Context, spaceID, parentID, childID string) (*models.Bill, error) {
	if parentID == childID {
		return nil, fmt.Errorf("bill %s cannot be its own parent: %w", childID, ErrCycle)
	}

	parent, err := s.FindBill(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.SpaceID != spaceID {
		return nil, fmt.Errorf("parent %s: %w", parentID, ErrCrossSpace)
	}

	cur := parent
	// links counts the bills from the child up to and including next.
	for links := 2; cur.ParentID != ""; links++ {
		if links >= MaxRecurrenceDepth {
			return nil, fmt.Errorf("chain above %s exceeds %d bills: %w", parentID, MaxRecurrenceDepth, ErrCycle)
		}

		next, err := s.store.GetBill(ctx, cur.ParentID)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, storeErr(err, "get bill %s", cur.ParentID)
		}
		if next.ID == childID {
			return nil, fmt.Errorf("bill %s is an ancestor of %s: %w", childID, parentID, ErrCycle)
		}
		cur = next
	}
	return parent, nil
}
