package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/authz"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/internal/validation"
)

// Error kinds. Every failure returned by Service matches exactly one of
// these with errors.Is, except unexpected store failures which match none.
var (
	// ErrValidation means one or more field constraints were violated.
	// The concrete error is a *validation.Error listing all of them.
	ErrValidation = validation.ErrValidation

	// ErrNotFound means the id does not resolve, or resolves to a retired
	// record where an active one is required.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")

	// ErrDenied means the actor's role does not permit the action.
	// The concrete error is a *DeniedError.
	ErrDenied = errors.New("permission denied")

	// ErrInvariant means a composed structure would become inconsistent.
	ErrInvariant = errors.New("invariant violation")

	// ErrUnauthenticated means login credentials did not match an active user.
	ErrUnauthenticated = errors.New("invalid username or password")
)

var (
	// ErrInactive is returned for direct lookups of a retired record.
	// It matches ErrNotFound so callers that only care about absence can
	// treat both alike.
	ErrInactive = fmt.Errorf("%w: record is inactive", ErrNotFound)

	// ErrLastOwner is returned when a change would leave a space without an owner.
	ErrLastOwner = fmt.Errorf("%w: space must keep at least one owner", ErrInvariant)

	// ErrMemberInUse is returned when removing a member who is still the
	// payer or a split participant of an active bill, or a party to an
	// active settlement, in the space.
	ErrMemberInUse = fmt.Errorf("%w: member is still referenced by active bills or settlements", ErrInvariant)

	// ErrCycle is returned when attaching a parent would make a bill its own ancestor.
	ErrCycle = fmt.Errorf("%w: recurrence cycle", ErrInvariant)

	// ErrHasParent is returned when attaching a child that already has a parent.
	ErrHasParent = fmt.Errorf("%w: bill already has a parent", ErrInvariant)

	// ErrCrossSpace is returned when linking bills from different spaces.
	ErrCrossSpace = fmt.Errorf("%w: bills belong to different spaces", ErrInvariant)

	// ErrSplitsLocked is returned when changing the amount or currency of a
	// bill whose payer splits are set.
	ErrSplitsLocked = fmt.Errorf("%w: amount and currency are fixed while payer splits are set, clear them first", ErrInvariant)
)

// DeniedError carries the reason an authorization check failed.
type DeniedError struct {
	Action authz.Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDenied, e.Reason)
}

// Is makes errors.Is(err, ErrDenied) succeed.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// SplitMismatchError reports how far payer splits are from the bill amount.
// Delta is Actual - Expected.
type SplitMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Delta    decimal.Decimal
}

func newSplitMismatch(expected, actual decimal.Decimal) *SplitMismatchError {
	return &SplitMismatchError{Expected: expected, Actual: actual, Delta: actual.Sub(expected)}
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("%s: payer splits sum to %s but the bill amount is %s (delta %s)",
		ErrInvariant, e.Actual, e.Expected, e.Delta)
}

// Is makes errors.Is(err, ErrInvariant) succeed.
func (e *SplitMismatchError) Is(target error) bool {
	return target == ErrInvariant
}

// storeErr translates storage sentinels into core error kinds. Any other
// store failure is wrapped and returned as is.
func storeErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, storage.ErrDuplicate):
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", msg, err)
}
