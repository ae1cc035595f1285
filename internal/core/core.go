// Package core implements the domain operations of billspace: user
// registration, spaces and memberships, categories, and bills with their
// recurrence chains and payer splits.
//
// Every operation follows the same sequence: resolve the scope, authorize the
// actor, validate the change, then persist it through a single store call.
// Retired records are hidden from listings and rejected by updates.
package core

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mmynk/billspace/internal/auth"
	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

// MaxRecurrenceDepth is the most bills a recurrence chain may hold from its
// root down to a newly attached bill. Longer chains are rejected as cycles.
const MaxRecurrenceDepth = 64

// Service executes domain operations against a store.
type Service struct {
	store  storage.Store
	authz  *authz.Engine
	hasher auth.Hasher
	now    func() time.Time
	locks  *spaceLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service over store. hasher produces and verifies
// password credentials.
func NewService(store storage.Store, hasher auth.Hasher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		authz:  authz.NewEngine(store),
		hasher: hasher,
		now:    time.Now,
		locks:  &spaceLocks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// scope resolves an active space and authorizes the actor for action in it.
// A retired space is reported as ErrInactive before any role check. Any
// action beyond viewing also requires the actor's account to be active.
func (s *Service) scope(ctx context.Context, actorID, spaceID string, action authz.Action) (*models.Space, *models.Membership, error) {
	space, err := s.FindSpace(ctx, spaceID)
	if err != nil {
		return nil, nil, err
	}

	decision, err := s.authz.Authorize(ctx, actorID, spaceID, action)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, nil, &DeniedError{Action: action, Reason: decision.Reason}
	}
	if action != authz.ActionView {
		if _, err := s.FindUser(ctx, actorID); err != nil {
			return nil, nil, err
		}
	}
	return space, decision.Membership, nil
}

// scopeOwned is scope for changes to a record created by ownerID. The
// actor's account must be active.
func (s *Service) scopeOwned(ctx context.Context, actorID, spaceID, ownerID string) (*models.Membership, error) {
	if _, err := s.FindSpace(ctx, spaceID); err != nil {
		return nil, err
	}

	decision, err := s.authz.AuthorizeOwned(ctx, actorID, spaceID, ownerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		action := authz.ActionUpdateAny
		if actorID == ownerID {
			action = authz.ActionUpdateOwn
		}
		return nil, &DeniedError{Action: action, Reason: decision.Reason}
	}
	if _, err := s.FindUser(ctx, actorID); err != nil {
		return nil, err
	}
	return decision.Membership, nil
}

const lockStripes = 64

// spaceLocks serialises mutations within one space. Keys hash onto a fixed
// set of mutexes so memory stays bounded; unrelated spaces may share a stripe.
type spaceLocks struct {
	stripes [lockStripes]sync.Mutex
}

// lock acquires the stripe for spaceID and returns its unlock function.
func (l *spaceLocks) lock(spaceID string) func() {
	h := fnv.New32a()
	h.Write([]byte(spaceID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
