package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mmynk/billspace/internal/models"
)

type spaceRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Icon      string `db:"icon"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r *spaceRow) model() *models.Space {
	return &models.Space{
		Record: models.Record{
			ID:        r.ID,
			Status:    models.Status(r.Status),
			CreatedAt: fromMicros(r.CreatedAt),
			UpdatedAt: fromMicros(r.UpdatedAt),
		},
		Name: r.Name,
		Icon: r.Icon,
	}
}

type memberRow struct {
	SpaceID   string `db:"space_id"`
	UserID    string `db:"user_id"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r *memberRow) model() *models.Membership {
	return &models.Membership{
		SpaceID:   r.SpaceID,
		UserID:    r.UserID,
		Role:      models.Role(r.Role),
		CreatedAt: fromMicros(r.CreatedAt),
		UpdatedAt: fromMicros(r.UpdatedAt),
	}
}

const (
	spaceColumns  = `id, name, icon, status, created_at, updated_at`
	memberColumns = `space_id, user_id, role, created_at, updated_at`
)

// CreateSpace inserts the space and its initial memberships in one transaction.
func (s *Store) CreateSpace(ctx context.Context, space *models.Space, members []*models.Membership) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO spaces (`+spaceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
			space.ID, space.Name, space.Icon, string(space.Status),
			toMicros(space.CreatedAt), toMicros(space.UpdatedAt),
		)
		if err != nil {
			return wrapErr(err, "failed to insert space")
		}

		for _, m := range members {
			if err := insertMembership(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSpace retrieves a space by ID.
func (s *Store) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	var row spaceRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+spaceColumns+` FROM spaces WHERE id = ?`), id)
	if err != nil {
		return nil, wrapErr(err, "failed to get space")
	}
	return row.model(), nil
}

// UpdateSpace writes every mutable space column.
func (s *Store) UpdateSpace(ctx context.Context, space *models.Space) error {
	return updateOne(ctx, s.db, "space", space.ID,
		`UPDATE spaces SET name = ?, icon = ?, status = ?, updated_at = ? WHERE id = ?`,
		space.Name, space.Icon, string(space.Status), toMicros(space.UpdatedAt), space.ID,
	)
}

// ListSpacesForUser returns every space the user is a member of, oldest first.
func (s *Store) ListSpacesForUser(ctx context.Context, userID string) ([]*models.Space, error) {
	query := s.db.Rebind(`
		SELECT s.id, s.name, s.icon, s.status, s.created_at, s.updated_at
		FROM spaces s
		JOIN space_members m ON m.space_id = s.id
		WHERE m.user_id = ?
		ORDER BY s.created_at, s.id`)

	var rows []spaceRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, wrapErr(err, "failed to list spaces")
	}

	spaces := make([]*models.Space, len(rows))
	for i := range rows {
		spaces[i] = rows[i].model()
	}
	return spaces, nil
}

// GetMembership retrieves the membership of a user in a space.
func (s *Store) GetMembership(ctx context.Context, spaceID, userID string) (*models.Membership, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT `+memberColumns+` FROM space_members WHERE space_id = ? AND user_id = ?`),
		spaceID, userID,
	)
	if err != nil {
		return nil, wrapErr(err, "failed to get membership")
	}
	return row.model(), nil
}

// CreateMembership inserts a membership. The (space, user) primary key
// rejects duplicates.
func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	return insertMembership(ctx, s.db, m)
}

func insertMembership(ctx context.Context, ex execer, m *models.Membership) error {
	_, err := ex.ExecContext(ctx,
		ex.Rebind(`INSERT INTO space_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?)`),
		m.SpaceID, m.UserID, string(m.Role), toMicros(m.CreatedAt), toMicros(m.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err, "failed to insert membership")
	}
	return nil
}

// UpdateMembership writes the role of a membership.
func (s *Store) UpdateMembership(ctx context.Context, m *models.Membership) error {
	return updateOne(ctx, s.db, "membership", m.SpaceID+"/"+m.UserID,
		`UPDATE space_members SET role = ?, updated_at = ? WHERE space_id = ? AND user_id = ?`,
		string(m.Role), toMicros(m.UpdatedAt), m.SpaceID, m.UserID,
	)
}

// DeleteMembership removes a membership.
func (s *Store) DeleteMembership(ctx context.Context, spaceID, userID string) error {
	return updateOne(ctx, s.db, "membership", spaceID+"/"+userID,
		`DELETE FROM space_members WHERE space_id = ? AND user_id = ?`,
		spaceID, userID,
	)
}

// ListMemberships returns the memberships of a space, oldest first.
func (s *Store) ListMemberships(ctx context.Context, spaceID string) ([]*models.Membership, error) {
	var rows []memberRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+memberColumns+` FROM space_members WHERE space_id = ? ORDER BY created_at, user_id`),
		spaceID,
	)
	if err != nil {
		return nil, wrapErr(err, "failed to list memberships")
	}

	members := make([]*models.Membership, len(rows))
	for i := range rows {
		members[i] = rows[i].model()
	}
	return members, nil
}
