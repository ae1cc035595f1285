package models

import "time"

// User represents a registered user account.
type User struct {
	Record

	// Username is the unique login name (lowercase letters, digits, underscore).
	Username string

	// Email is the user's email address (unique).
	Email string

	// DisplayName is shown to other members of shared spaces.
	DisplayName string

	// PasswordHash is an opaque credential produced by an auth.Hasher.
	// It is never compared in plaintext.
	PasswordHash string
}

// NewUser creates an active user stamped at now.
func NewUser(username, email, displayName, passwordHash string, now time.Time) *User {
	return &User{
		Record:       newRecord(now),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}
}
