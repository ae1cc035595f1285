package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

// CreateSettlement inserts a settlement.
func (s *Store) CreateSettlement(ctx context.Context, st *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settlements[st.ID]; exists {
		return fmt.Errorf("settlement %s: %w", st.ID, storage.ErrDuplicate)
	}
	s.settlements[st.ID] = *st
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[id]
	if !ok {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	return &st, nil
}

// UpdateSettlement replaces a settlement.
func (s *Store) UpdateSettlement(ctx context.Context, st *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settlements[st.ID]; !ok {
		return fmt.Errorf("settlement %s: %w", st.ID, storage.ErrNotFound)
	}
	s.settlements[st.ID] = *st
	return nil
}

// ListSettlements returns the settlements of a space, newest first.
func (s *Store) ListSettlements(ctx context.Context, spaceID string) ([]*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Settlement
	for _, st := range s.settlements {
		if st.SpaceID == spaceID {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
