package models

import "time"

// Space is a collaboration boundary. Categories and bills belong to a space,
// and users reach them through a Membership.
type Space struct {
	Record

	// Name is the display name of the space (e.g., "Roommates", "Trip").
	Name string

	// Icon is an optional emoji.
	Icon string
}

// NewSpace creates an active space stamped at now.
func NewSpace(name, icon string, now time.Time) *Space {
	return &Space{
		Record: newRecord(now),
		Name:   name,
		Icon:   icon,
	}
}

// Role is a member's capability level inside a space.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Membership joins a user to a space with a role.
// A (SpaceID, UserID) pair has at most one membership.
type Membership struct {
	SpaceID   string
	UserID    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMembership creates a membership stamped at now.
func NewMembership(spaceID, userID string, role Role, now time.Time) *Membership {
	now = now.UTC()
	return &Membership{
		SpaceID:   spaceID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwner reports whether the membership carries the owner role.
func (m *Membership) IsOwner() bool {
	return m != nil && m.Role == RoleOwner
}
