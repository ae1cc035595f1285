package sqlstore

import (
	"context"

	"github.com/mmynk/billspace/internal/models"
)

type categoryRow struct {
	ID        string `db:"id"`
	SpaceID   string `db:"space_id"`
	Name      string `db:"name"`
	Icon      string `db:"icon"`
	CreatedBy string `db:"created_by"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r *categoryRow) model() *models.Category {
	return &models.Category{
		Record: models.Record{
			ID:        r.ID,
			Status:    models.Status(r.Status),
			CreatedAt: fromMicros(r.CreatedAt),
			UpdatedAt: fromMicros(r.UpdatedAt),
		},
		SpaceID:   r.SpaceID,
		Name:      r.Name,
		Icon:      r.Icon,
		CreatedBy: r.CreatedBy,
	}
}

const categoryColumns = `id, space_id, name, icon, created_by, status, created_at, updated_at`

// CreateCategory inserts a category.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.SpaceID, c.Name, c.Icon, c.CreatedBy, string(c.Status),
		toMicros(c.CreatedAt), toMicros(c.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err, "failed to insert category")
	}
	return nil
}

// GetCategory retrieves a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var row categoryRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`), id)
	if err != nil {
		return nil, wrapErr(err, "failed to get category")
	}
	return row.model(), nil
}

// UpdateCategory writes every mutable category column.
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	return updateOne(ctx, s.db, "category", c.ID,
		`UPDATE categories SET name = ?, icon = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Icon, string(c.Status), toMicros(c.UpdatedAt), c.ID,
	)
}

// ListCategories returns the categories of a space, oldest first.
func (s *Store) ListCategories(ctx context.Context, spaceID string) ([]*models.Category, error) {
	var rows []categoryRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+categoryColumns+` FROM categories WHERE space_id = ? ORDER BY created_at, id`),
		spaceID,
	)
	if err != nil {
		return nil, wrapErr(err, "failed to list categories")
	}

	out := make([]*models.Category, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}
