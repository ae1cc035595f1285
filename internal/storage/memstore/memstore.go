// Package memstore provides an in-memory implementation of storage.Store.
// Every method runs under a single lock, so each call is atomic and rows are
// copied in and out to keep callers from sharing state with the store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type memberKey struct {
	spaceID string
	userID  string
}

// Store is a mutex-guarded map store.
type Store struct {
	mu sync.RWMutex

	users       map[string]models.User
	usernames   map[string]string // username -> user ID
	emails      map[string]string // email -> user ID
	spaces      map[string]models.Space
	members     map[memberKey]models.Membership
	categories  map[string]models.Category
	bills       map[string]models.Bill
	settlements map[string]models.Settlement
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		usernames:   make(map[string]string),
		emails:      make(map[string]string),
		spaces:      make(map[string]models.Space),
		members:     make(map[memberKey]models.Membership),
		categories:  make(map[string]models.Category),
		bills:       make(map[string]models.Bill),
		settlements: make(map[string]models.Settlement),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CreateUser inserts a user, enforcing unique username and email.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrDuplicate)
	}
	if _, exists := s.usernames[user.Username]; exists {
		return fmt.Errorf("username %q: %w", user.Username, storage.ErrDuplicate)
	}
	if _, exists := s.emails[user.Email]; exists {
		return fmt.Errorf("email %q: %w", user.Email, storage.ErrDuplicate)
	}

	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID
	s.emails[user.Email] = user.ID
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("username %q: %w", username, storage.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.emails[email]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("email %q: %w", email, storage.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// UpdateUser replaces a user, keeping the unique indexes consistent.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrNotFound)
	}
	if id, exists := s.usernames[user.Username]; exists && id != user.ID {
		return fmt.Errorf("username %q: %w", user.Username, storage.ErrDuplicate)
	}
	if id, exists := s.emails[user.Email]; exists && id != user.ID {
		return fmt.Errorf("email %q: %w", user.Email, storage.ErrDuplicate)
	}

	delete(s.usernames, old.Username)
	delete(s.emails, old.Email)
	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID
	s.emails[user.Email] = user.ID
	return nil
}

// CreateSpace inserts a space and its initial memberships in one step.
func (s *Store) CreateSpace(ctx context.Context, space *models.Space, members []*models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.spaces[space.ID]; exists {
		return fmt.Errorf("space %s: %w", space.ID, storage.ErrDuplicate)
	}

	// Check every membership before writing anything.
	seen := make(map[memberKey]bool, len(members))
	for _, m := range members {
		key := memberKey{m.SpaceID, m.UserID}
		if m.SpaceID != space.ID {
			return fmt.Errorf("membership for space %s does not belong to space %s", m.SpaceID, space.ID)
		}
		if _, ok := s.users[m.UserID]; !ok {
			return fmt.Errorf("member %s: %w", m.UserID, storage.ErrNotFound)
		}
		if seen[key] {
			return fmt.Errorf("member %s: %w", m.UserID, storage.ErrDuplicate)
		}
		seen[key] = true
	}

	s.spaces[space.ID] = *space
	for _, m := range members {
		s.members[memberKey{m.SpaceID, m.UserID}] = *m
	}
	return nil
}

// GetSpace retrieves a space by ID.
func (s *Store) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[id]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", id, storage.ErrNotFound)
	}
	return &space, nil
}

// UpdateSpace replaces a space.
func (s *Store) UpdateSpace(ctx context.Context, space *models.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spaces[space.ID]; !ok {
		return fmt.Errorf("space %s: %w", space.ID, storage.ErrNotFound)
	}
	s.spaces[space.ID] = *space
	return nil
}

// ListSpacesForUser returns the spaces a user is a member of, oldest first.
func (s *Store) ListSpacesForUser(ctx context.Context, userID string) ([]*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var spaces []*models.Space
	for key := range s.members {
		if key.userID != userID {
			continue
		}
		if space, ok := s.spaces[key.spaceID]; ok {
			spaces = append(spaces, &space)
		}
	}
	sort.Slice(spaces, func(i, j int) bool {
		if spaces[i].CreatedAt.Equal(spaces[j].CreatedAt) {
			return spaces[i].ID < spaces[j].ID
		}
		return spaces[i].CreatedAt.Before(spaces[j].CreatedAt)
	})
	return spaces, nil
}

// GetMembership retrieves the membership of a user in a space.
func (s *Store) GetMembership(ctx context.Context, spaceID, userID string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberKey{spaceID, userID}]
	if !ok {
		return nil, fmt.Errorf("membership %s/%s: %w", spaceID, userID, storage.ErrNotFound)
	}
	return &m, nil
}

// CreateMembership inserts a membership; a second one for the same pair fails.
func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{m.SpaceID, m.UserID}
	if _, exists := s.members[key]; exists {
		return fmt.Errorf("membership %s/%s: %w", m.SpaceID, m.UserID, storage.ErrDuplicate)
	}
	if _, ok := s.spaces[m.SpaceID]; !ok {
		return fmt.Errorf("space %s: %w", m.SpaceID, storage.ErrNotFound)
	}
	if _, ok := s.users[m.UserID]; !ok {
		return fmt.Errorf("user %s: %w", m.UserID, storage.ErrNotFound)
	}
	s.members[key] = *m
	return nil
}

// UpdateMembership replaces a membership.
func (s *Store) UpdateMembership(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{m.SpaceID, m.UserID}
	if _, ok := s.members[key]; !ok {
		return fmt.Errorf("membership %s/%s: %w", m.SpaceID, m.UserID, storage.ErrNotFound)
	}
	s.members[key] = *m
	return nil
}

// DeleteMembership removes a membership.
func (s *Store) DeleteMembership(ctx context.Context, spaceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{spaceID, userID}
	if _, ok := s.members[key]; !ok {
		return fmt.Errorf("membership %s/%s: %w", spaceID, userID, storage.ErrNotFound)
	}
	delete(s.members, key)
	return nil
}

// ListMemberships returns the memberships of a space, oldest first.
func (s *Store) ListMemberships(ctx context.Context, spaceID string) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*models.Membership
	for key, m := range s.members {
		if key.spaceID == spaceID {
			m := m
			members = append(members, &m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// CreateCategory inserts a category.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[c.ID]; exists {
		return fmt.Errorf("category %s: %w", c.ID, storage.ErrDuplicate)
	}
	s.categories[c.ID] = *c
	return nil
}

// GetCategory retrieves a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	return &c, nil
}

// UpdateCategory replaces a category.
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; !ok {
		return fmt.Errorf("category %s: %w", c.ID, storage.ErrNotFound)
	}
	s.categories[c.ID] = *c
	return nil
}

// ListCategories returns the categories of a space, oldest first.
func (s *Store) ListCategories(ctx context.Context, spaceID string) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Category
	for _, c := range s.categories {
		if c.SpaceID == spaceID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CreateBill inserts a bill with its splits.
func (s *Store) CreateBill(ctx context.Context, b *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[b.ID]; exists {
		return fmt.Errorf("bill %s: %w", b.ID, storage.ErrDuplicate)
	}
	s.bills[b.ID] = cloneBill(b)
	return nil
}

// GetBill retrieves a bill by ID.
func (s *Store) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[id]
	if !ok {
		return nil, fmt.Errorf("bill %s: %w", id, storage.ErrNotFound)
	}
	out := cloneBill(&b)
	return &out, nil
}

// UpdateBill replaces a bill and its splits.
func (s *Store) UpdateBill(ctx context.Context, b *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[b.ID]; !ok {
		return fmt.Errorf("bill %s: %w", b.ID, storage.ErrNotFound)
	}
	s.bills[b.ID] = cloneBill(b)
	return nil
}

// ListBills returns the bills of a space, oldest first.
func (s *Store) ListBills(ctx context.Context, spaceID string) ([]*models.Bill, error) {
	return s.listBills(func(b *models.Bill) bool { return b.SpaceID == spaceID })
}

// ListChildBills returns the bills whose parent is parentID, oldest first.
func (s *Store) ListChildBills(ctx context.Context, parentID string) ([]*models.Bill, error) {
	return s.listBills(func(b *models.Bill) bool { return b.ParentID == parentID })
}

func (s *Store) listBills(keep func(*models.Bill) bool) ([]*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Bill
	for _, b := range s.bills {
		if keep(&b) {
			c := cloneBill(&b)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneBill(b *models.Bill) models.Bill {
	c := *b
	if b.Splits != nil {
		c.Splits = append([]models.PayerSplit(nil), b.Splits...)
	}
	return c
}
