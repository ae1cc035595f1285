package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/calculator"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/internal/validation"
)

// SpaceDraft holds the fields of a new space. Members are user IDs added
// as editors alongside the creator, who becomes the owner.
type SpaceDraft struct {
	Name    string   `json:"name" validate:"required,min=2,max=16"`
	Icon    string   `json:"icon" validate:"omitempty,emoji"`
	Members []string `json:"members" validate:"dive,required"`
}

// SpaceDetail is a space together with its memberships.
type SpaceDetail struct {
	Space   *models.Space
	Members []*models.Membership
}

// CreateSpace creates a space owned by the actor. The space and every
// initial membership are written in one atomic store call.
func (s *Service) CreateSpace(ctx context.Context, actorID string, draft SpaceDraft) (*SpaceDetail, error) {
	if err := validation.Struct(draft); err != nil {
		return nil, err
	}

	if _, err := s.FindUser(ctx, actorID); err != nil {
		return nil, err
	}

	var violations []validation.Violation
	seen := map[string]bool{actorID: true}
	for i, id := range draft.Members {
		field := fmt.Sprintf("members[%d]", i)
		if seen[id] {
			violations = append(violations, validation.Violation{Field: field, Rule: "unique", Message: "is listed more than once"})
			continue
		}
		seen[id] = true

		if _, err := s.FindUser(ctx, id); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			violations = append(violations, validation.Violation{Field: field, Rule: "user", Message: "must reference an active user"})
		}
	}
	if len(violations) > 0 {
		return nil, validation.Fail(violations...)
	}

	now := s.clock()
	space := models.NewSpace(draft.Name, draft.Icon, now)
	members := []*models.Membership{models.NewMembership(space.ID, actorID, models.RoleOwner, now)}
	for _, id := range draft.Members {
		members = append(members, models.NewMembership(space.ID, id, models.RoleEditor, now))
	}

	if err := s.store.CreateSpace(ctx, space, members); err != nil {
		return nil, storeErr(err, "create space %q", draft.Name)
	}
	return &SpaceDetail{Space: space, Members: members}, nil
}

// GetSpace returns an active space and its members.
func (s *Service) GetSpace(ctx context.Context, actorID, spaceID string) (*SpaceDetail, error) {
	space, _, err := s.scope(ctx, actorID, spaceID, authz.ActionView)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMemberships(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list members of space %s", spaceID)
	}
	return &SpaceDetail{Space: space, Members: members}, nil
}

// ListSpaces returns the active spaces the actor belongs to.
func (s *Service) ListSpaces(ctx context.Context, actorID string) ([]*models.Space, error) {
	spaces, err := s.store.ListSpacesForUser(ctx, actorID)
	if err != nil {
		return nil, storeErr(err, "list spaces of user %s", actorID)
	}

	active := spaces[:0]
	for _, sp := range spaces {
		if sp.IsActive() {
			active = append(active, sp)
		}
	}
	return active, nil
}

// AddMember adds an active user to the space with role. Owner only.
func (s *Service) AddMember(ctx context.Context, actorID, spaceID, userID string, role models.Role) (*models.Membership, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(spaceID)
	defer unlock()

	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionManageMembers); err != nil {
		return nil, err
	}
	if _, err := s.FindUser(ctx, userID); err != nil {
		return nil, err
	}

	m := models.NewMembership(spaceID, userID, role, s.clock())
	if err := s.store.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user %s is already a member of space %s", ErrConflict, userID, spaceID)
		}
		return nil, storeErr(err, "add member %s to space %s", userID, spaceID)
	}
	return m, nil
}

// ChangeMemberRole sets the role of an existing member. Owner only. The
// last owner of a space cannot be demoted.
func (s *Service) ChangeMemberRole(ctx context.Context, actorID, spaceID, userID string, role models.Role) (*models.Membership, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(spaceID)
	defer unlock()

	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionManageMembers); err != nil {
		return nil, err
	}

	m, err := s.store.GetMembership(ctx, spaceID, userID)
	if err != nil {
		return nil, storeErr(err, "get membership of %s in space %s", userID, spaceID)
	}
	if m.Role == role {
		return m, nil
	}
	if m.IsOwner() {
		if err := s.ensureAnotherOwner(ctx, spaceID, userID); err != nil {
			return nil, err
		}
	}

	m.Role = role
	m.UpdatedAt = s.clock()
	if err := s.store.UpdateMembership(ctx, m); err != nil {
		return nil, storeErr(err, "update membership of %s in space %s", userID, spaceID)
	}
	return m, nil
}

// RemoveMember removes a member from the space. Owners may remove anyone;
// any member may remove themself. The last owner cannot be removed, nor can
// a member still referenced by an active bill or settlement.
func (s *Service) RemoveMember(ctx context.Context, actorID, spaceID, userID string) error {
	action := authz.ActionManageMembers
	if actorID == userID {
		action = authz.ActionView
	}

	unlock := s.locks.lock(spaceID)
	defer unlock()

	if _, _, err := s.scope(ctx, actorID, spaceID, action); err != nil {
		return err
	}

	m, err := s.store.GetMembership(ctx, spaceID, userID)
	if err != nil {
		return storeErr(err, "get membership of %s in space %s", userID, spaceID)
	}
	if m.IsOwner() {
		if err := s.ensureAnotherOwner(ctx, spaceID, userID); err != nil {
			return err
		}
	}
	if err := s.ensureUnreferenced(ctx, spaceID, userID); err != nil {
		return err
	}

	if err := s.store.DeleteMembership(ctx, spaceID, userID); err != nil {
		return storeErr(err, "remove member %s from space %s", userID, spaceID)
	}
	return nil
}

// ensureAnotherOwner fails with ErrLastOwner unless an owner other than
// userID remains whose account is active. Callers hold the space lock.
func (s *Service) ensureAnotherOwner(ctx context.Context, spaceID, userID string) error {
	members, err := s.store.ListMemberships(ctx, spaceID)
	if err != nil {
		return storeErr(err, "list members of space %s", spaceID)
	}
	for _, m := range members {
		if !m.IsOwner() || m.UserID == userID {
			continue
		}
		_, err := s.FindUser(ctx, m.UserID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return ErrLastOwner
}

// ensureUnreferenced fails with ErrMemberInUse if userID pays for, shares
// in, or is a party to any active bill or settlement of the space. Callers
// hold the space lock.
func (s *Service) ensureUnreferenced(ctx context.Context, spaceID, userID string) error {
	bills, err := s.store.ListBills(ctx, spaceID)
	if err != nil {
		return storeErr(err, "list bills of space %s", spaceID)
	}
	for _, b := range activeBills(bills) {
		if b.PayerID == userID {
			return fmt.Errorf("user %s pays bill %s: %w", userID, b.ID, ErrMemberInUse)
		}
		for _, sp := range b.Splits {
			if sp.UserID == userID {
				return fmt.Errorf("user %s shares bill %s: %w", userID, b.ID, ErrMemberInUse)
			}
		}
	}

	settlements, err := s.store.ListSettlements(ctx, spaceID)
	if err != nil {
		return storeErr(err, "list settlements of space %s", spaceID)
	}
	for _, st := range settlements {
		if st.IsActive() && (st.FromUserID == userID || st.ToUserID == userID) {
			return fmt.Errorf("user %s is party to settlement %s: %w", userID, st.ID, ErrMemberInUse)
		}
	}
	return nil
}

// DeactivateSpace retires a space. Owner only. Every later operation
// scoped to the space reports it as not found.
func (s *Service) DeactivateSpace(ctx context.Context, actorID, spaceID string) error {
	unlock := s.locks.lock(spaceID)
	defer unlock()

	space, _, err := s.scope(ctx, actorID, spaceID, authz.ActionDeactivateSpace)
	if err != nil {
		return err
	}

	space.Deactivate(s.clock())
	if err := s.store.UpdateSpace(ctx, space); err != nil {
		return storeErr(err, "deactivate space %s", spaceID)
	}
	return nil
}

// SpaceBalances computes who owes whom across the active bills and
// settlements of a space.
func (s *Service) SpaceBalances(ctx context.Context, actorID, spaceID string) ([]calculator.CurrencyBalances, error) {
	if _, _, err := s.scope(ctx, actorID, spaceID, authz.ActionView); err != nil {
		return nil, err
	}

	bills, err := s.store.ListBills(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list bills of space %s", spaceID)
	}
	settlements, err := s.store.ListSettlements(ctx, spaceID)
	if err != nil {
		return nil, storeErr(err, "list settlements of space %s", spaceID)
	}
	return calculator.CalculateSpaceBalances(bills, settlements), nil
}

func validateRole(role models.Role) error {
	if !role.Valid() {
		return validation.Fail(validation.Violation{
			Field:   "role",
			Rule:    "role",
			Message: "must be one of owner, editor, viewer",
		})
	}
	return nil
}
