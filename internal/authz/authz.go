// Package authz decides whether a user may perform an action inside a space
// based on the role of their membership.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

// Action is a capability gated by membership role.
type Action string

const (
	// ActionView reads the space, its members, categories and bills.
	ActionView Action = "view"
	// ActionCreate creates bills and categories.
	ActionCreate Action = "create"
	// ActionUpdateOwn updates or deactivates a bill or category the actor created.
	ActionUpdateOwn Action = "update_own"
	// ActionUpdateAny updates or deactivates any bill or category in the space.
	ActionUpdateAny Action = "update_any"
	// ActionManageMembers adds, removes and changes the role of members.
	ActionManageMembers Action = "manage_members"
	// ActionDeactivateSpace retires the space.
	ActionDeactivateSpace Action = "deactivate_space"
)

// ReasonNotMember is the denial reason when the actor has no membership.
const ReasonNotMember = "not a member"

// matrix is the closed role-to-action table.
var matrix = map[models.Role]map[Action]bool{
	models.RoleOwner: {
		ActionView:            true,
		ActionCreate:          true,
		ActionUpdateOwn:       true,
		ActionUpdateAny:       true,
		ActionManageMembers:   true,
		ActionDeactivateSpace: true,
	},
	models.RoleEditor: {
		ActionView:      true,
		ActionCreate:    true,
		ActionUpdateOwn: true,
	},
	models.RoleViewer: {
		ActionView: true,
	},
}

// Permits reports whether role grants action. Unknown roles and actions are
// never permitted.
func Permits(role models.Role, action Action) bool {
	return matrix[role][action]
}

// Decision is the outcome of an authorization check. The zero value denies.
type Decision struct {
	Allowed bool
	Reason  string

	// Membership is the actor's membership when one exists, so callers can
	// reuse the role without a second lookup.
	Membership *models.Membership
}

// Allow returns an allowing decision.
func Allow(m *models.Membership) Decision {
	return Decision{Allowed: true, Membership: m}
}

// Deny returns a denying decision with reason.
func Deny(reason string, m *models.Membership) Decision {
	return Decision{Reason: reason, Membership: m}
}

// Engine resolves memberships and applies the role matrix.
type Engine struct {
	members storage.MembershipReader
}

// NewEngine creates an engine reading memberships from members.
func NewEngine(members storage.MembershipReader) *Engine {
	return &Engine{members: members}
}

// Authorize decides whether actorID may perform action in spaceID.
// The error is only set for store failures; a denial is not an error.
func (e *Engine) Authorize(ctx context.Context, actorID, spaceID string, action Action) (Decision, error) {
	m, err := e.members.GetMembership(ctx, spaceID, actorID)
	if errors.Is(err, storage.ErrNotFound) {
		return Deny(ReasonNotMember, nil), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("failed to resolve membership: %w", err)
	}
	return Decide(m, action), nil
}

// AuthorizeOwned is Authorize for actions on a bill or category created by
// ownerID: the actor's own records need ActionUpdateOwn, others' need
// ActionUpdateAny.
func (e *Engine) AuthorizeOwned(ctx context.Context, actorID, spaceID, ownerID string) (Decision, error) {
	action := ActionUpdateAny
	if actorID == ownerID {
		action = ActionUpdateOwn
	}
	return e.Authorize(ctx, actorID, spaceID, action)
}

// Decide applies the matrix to an already resolved membership.
func Decide(m *models.Membership, action Action) Decision {
	if m == nil {
		return Deny(ReasonNotMember, nil)
	}
	if !Permits(m.Role, action) {
		return Deny(fmt.Sprintf("role %s may not %s", m.Role, action), m)
	}
	return Allow(m)
}
