// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/billspace/internal/models"
)

var (
	// ErrNotFound is returned when a key does not resolve to a row.
	// Inactive rows are still returned; callers decide how to treat them.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint
	// (username, email, or a (space, user) membership pair).
	ErrDuplicate = errors.New("uniqueness constraint violated")
)

// Store defines the entity store operations the core depends on.
// This abstraction allows swapping storage backends (in-memory, SQLite,
// PostgreSQL) without changing the core. Every method is consistent: no
// partial writes are ever visible.
type Store interface {
	UserStore
	SpaceStore
	CategoryStore
	BillStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists users. Username and email are unique.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// MembershipReader is the read side of memberships, enough for authorization.
type MembershipReader interface {
	// GetMembership returns ErrNotFound if the user is not a member.
	GetMembership(ctx context.Context, spaceID, userID string) (*models.Membership, error)
}

// SpaceStore persists spaces and their memberships.
type SpaceStore interface {
	MembershipReader

	// CreateSpace inserts the space and its initial memberships atomically:
	// either every row is committed or none is.
	CreateSpace(ctx context.Context, space *models.Space, members []*models.Membership) error
	GetSpace(ctx context.Context, id string) (*models.Space, error)
	UpdateSpace(ctx context.Context, space *models.Space) error

	// ListSpacesForUser returns every space (active or not) the user belongs to.
	ListSpacesForUser(ctx context.Context, userID string) ([]*models.Space, error)

	CreateMembership(ctx context.Context, m *models.Membership) error
	UpdateMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, spaceID, userID string) error
	ListMemberships(ctx context.Context, spaceID string) ([]*models.Membership, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	ListCategories(ctx context.Context, spaceID string) ([]*models.Category, error)
}

// BillStore persists bills together with their payer splits.
type BillStore interface {
	// CreateBill inserts the bill and its splits atomically.
	CreateBill(ctx context.Context, b *models.Bill) error
	GetBill(ctx context.Context, id string) (*models.Bill, error)

	// UpdateBill replaces every column and the full split list atomically.
	UpdateBill(ctx context.Context, b *models.Bill) error
	ListBills(ctx context.Context, spaceID string) ([]*models.Bill, error)
	ListChildBills(ctx context.Context, parentID string) ([]*models.Bill, error)
}

// SettlementStore persists settlements between space members.
type SettlementStore interface {
	CreateSettlement(ctx context.Context, st *models.Settlement) error
	GetSettlement(ctx context.Context, id string) (*models.Settlement, error)
	UpdateSettlement(ctx context.Context, st *models.Settlement) error
	ListSettlements(ctx context.Context, spaceID string) ([]*models.Settlement, error)
}
