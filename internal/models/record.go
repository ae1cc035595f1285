package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the soft-delete state of a record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the two known states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Record holds the identity and lifecycle fields shared by every
// soft-deletable entity.
type Record struct {
	// ID is the unique identifier (UUID format).
	ID string

	// Status is active until the record is deactivated. There is no
	// transition back to active.
	Status Status

	// CreatedAt is when the record was created (UTC).
	CreatedAt time.Time

	// UpdatedAt is refreshed on every mutation, including deactivation.
	UpdatedAt time.Time
}

// newRecord returns an active record with a fresh ID whose timestamps both
// equal now.
func newRecord(now time.Time) Record {
	now = now.UTC()
	return Record{
		ID:        uuid.New().String(),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the record has not been deactivated.
func (r Record) IsActive() bool {
	return r.Status == StatusActive
}

// Touch refreshes UpdatedAt after a mutation.
func (r *Record) Touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// Deactivate moves an active record to inactive and refreshes UpdatedAt.
// It returns false and leaves the record untouched if it is already inactive.
func (r *Record) Deactivate(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	r.Status = StatusInactive
	r.Touch(now)
	return true
}
