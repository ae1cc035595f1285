package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/internal/validation"
)

// RegisterDraft holds the fields of a new account.
type RegisterDraft struct {
	Username    string `json:"username" validate:"required,min=4,max=16,username"`
	Email       string `json:"email" validate:"required,emailaddr"`
	DisplayName string `json:"display_name" validate:"required,min=2,max=16"`
	Password    string `json:"password" validate:"required,password"`
}

// ProfileUpdate holds the account fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	Email       *string `json:"email" validate:"omitnil,emailaddr"`
	DisplayName *string `json:"display_name" validate:"omitnil,min=2,max=16"`
	Password    *string `json:"password" validate:"omitnil,password"`
}

// Register creates an active user. A taken username or email is a conflict,
// whether it is caught before the insert or by the store's constraint.
func (s *Service) Register(ctx context.Context, draft RegisterDraft) (*models.User, error) {
	draft.Email = strings.TrimSpace(draft.Email)
	if err := validation.Struct(draft); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, draft.Username, draft.Email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(draft.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(draft.Username, draft.Email, draft.DisplayName, hash, s.clock())
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeErr(err, "register %q", draft.Username)
	}
	return user, nil
}

// checkUnique reports a conflict if username or email belongs to a user
// other than selfID. Empty values are not checked.
func (s *Service) checkUnique(ctx context.Context, username, email, selfID string) error {
	if username != "" {
		u, err := s.store.GetUserByUsername(ctx, username)
		if err == nil && u.ID != selfID {
			return fmt.Errorf("%w: username %q is already taken", ErrConflict, username)
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return storeErr(err, "check username %q", username)
		}
	}
	if email != "" {
		u, err := s.store.GetUserByEmail(ctx, email)
		if err == nil && u.ID != selfID {
			return fmt.Errorf("%w: email %q is already registered", ErrConflict, email)
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return storeErr(err, "check email %q", email)
		}
	}
	return nil
}

// Login verifies a username and password. Unknown users, retired users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, storeErr(err, "get user %q", username)
	}
	if !user.IsActive() || !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// GetCurrentUser returns the actor's own account.
func (s *Service) GetCurrentUser(ctx context.Context, actorID string) (*models.User, error) {
	return s.FindUser(ctx, actorID)
}

// UpdateProfile changes the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actorID string, update ProfileUpdate) (*models.User, error) {
	if update.Email != nil {
		trimmed := strings.TrimSpace(*update.Email)
		update.Email = &trimmed
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	user, err := s.FindUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		if err := s.checkUnique(ctx, "", *update.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *update.Email
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.Touch(s.clock())
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeErr(err, "update user %s", user.ID)
	}
	return user, nil
}

// DeactivateUser retires the actor's own account. Memberships are kept so
// history stays attributable, but the user can no longer log in, join
// spaces or take part in splits.
func (s *Service) DeactivateUser(ctx context.Context, actorID string) error {
	user, err := s.FindUser(ctx, actorID)
	if err != nil {
		return err
	}

	user.Deactivate(s.clock())
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return storeErr(err, "deactivate user %s", user.ID)
	}
	return nil
}
