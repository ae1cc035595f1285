package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/billspace/internal/models"
)

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	DisplayName  string `db:"display_name"`
	PasswordHash string `db:"password_hash"`
	Status       string `db:"status"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r *userRow) model() *models.User {
	return &models.User{
		Record: models.Record{
			ID:        r.ID,
			Status:    models.Status(r.Status),
			CreatedAt: fromMicros(r.CreatedAt),
			UpdatedAt: fromMicros(r.UpdatedAt),
		},
		Username:     r.Username,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
	}
}

const userColumns = `id, username, email, display_name, password_hash, status, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := s.db.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		string(user.Status),
		toMicros(user.CreatedAt),
		toMicros(user.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err, "failed to create user")
	}

	return nil
}

// GetUser retrieves a user by their ID.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserBy(ctx, "id", id)
}

// GetUserByUsername retrieves a user by their username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserBy(ctx, "username", username)
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "email", email)
}

// getUserBy looks a user up by one of its unique columns.
// column is never user input.
func (s *Store) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`)

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, value); err != nil {
		return nil, wrapErr(err, fmt.Sprintf("failed to get user by %s", column))
	}
	return row.model(), nil
}

// UpdateUser writes every mutable user column.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return updateOne(ctx, s.db, "user", user.ID, `
		UPDATE users
		SET username = ?, email = ?, display_name = ?, password_hash = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		user.Username,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		string(user.Status),
		toMicros(user.UpdatedAt),
		user.ID,
	)
}
