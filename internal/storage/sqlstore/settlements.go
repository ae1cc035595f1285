package sqlstore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
)

type settlementRow struct {
	ID         string          `db:"id"`
	SpaceID    string          `db:"space_id"`
	FromUserID string          `db:"from_user_id"`
	ToUserID   string          `db:"to_user_id"`
	Amount     decimal.Decimal `db:"amount"`
	Currency   string          `db:"currency"`
	Note       string          `db:"note"`
	CreatedBy  string          `db:"created_by"`
	Status     string          `db:"status"`
	CreatedAt  int64           `db:"created_at"`
	UpdatedAt  int64           `db:"updated_at"`
}

func (r *settlementRow) model() *models.Settlement {
	return &models.Settlement{
		Record: models.Record{
			ID:        r.ID,
			Status:    models.Status(r.Status),
			CreatedAt: fromMicros(r.CreatedAt),
			UpdatedAt: fromMicros(r.UpdatedAt),
		},
		SpaceID:    r.SpaceID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Amount:     r.Amount,
		Currency:   models.Currency(r.Currency),
		Note:       r.Note,
		CreatedBy:  r.CreatedBy,
	}
}

const settlementColumns = `id, space_id, from_user_id, to_user_id, amount, currency, note, created_by, status, created_at, updated_at`

// CreateSettlement persists a new settlement.
func (s *Store) CreateSettlement(ctx context.Context, st *models.Settlement) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO settlements (`+settlementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.ID, st.SpaceID, st.FromUserID, st.ToUserID, st.Amount.String(), string(st.Currency),
		st.Note, st.CreatedBy, string(st.Status), toMicros(st.CreatedAt), toMicros(st.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err, "failed to insert settlement")
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	var row settlementRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`), id)
	if err != nil {
		return nil, wrapErr(err, "failed to get settlement")
	}
	return row.model(), nil
}

// UpdateSettlement writes the mutable settlement columns. Parties and
// amount are fixed once recorded.
func (s *Store) UpdateSettlement(ctx context.Context, st *models.Settlement) error {
	return updateOne(ctx, s.db, "settlement", st.ID,
		`UPDATE settlements SET note = ?, status = ?, updated_at = ? WHERE id = ?`,
		st.Note, string(st.Status), toMicros(st.UpdatedAt), st.ID,
	)
}

// ListSettlements returns the settlements of a space, newest first.
func (s *Store) ListSettlements(ctx context.Context, spaceID string) ([]*models.Settlement, error) {
	var rows []settlementRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+settlementColumns+` FROM settlements WHERE space_id = ? ORDER BY created_at DESC, id`),
		spaceID,
	)
	if err != nil {
		return nil, wrapErr(err, "failed to list settlements")
	}

	out := make([]*models.Settlement, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}
