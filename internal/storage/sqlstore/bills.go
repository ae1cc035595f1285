package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
)

const dateLayout = "2006-01-02"

type billRow struct {
	ID         string          `db:"id"`
	SpaceID    string          `db:"space_id"`
	Name       string          `db:"name"`
	Icon       string          `db:"icon"`
	Note       string          `db:"note"`
	Amount     decimal.Decimal `db:"amount"`
	Currency   string          `db:"currency"`
	Cycle      int             `db:"cycle"`
	Interval   string          `db:"interval_unit"`
	FirstBill  string          `db:"first_bill"`
	PayerID    string          `db:"payer_id"`
	IsShared   bool            `db:"is_shared"`
	ParentID   sql.NullString  `db:"parent_id"`
	CategoryID sql.NullString  `db:"category_id"`
	SplitState string          `db:"split_state"`
	CreatedBy  string          `db:"created_by"`
	Status     string          `db:"status"`
	CreatedAt  int64           `db:"created_at"`
	UpdatedAt  int64           `db:"updated_at"`
}

func (r *billRow) model() (*models.Bill, error) {
	var first time.Time
	if r.FirstBill != "" {
		t, err := time.Parse(dateLayout, r.FirstBill)
		if err != nil {
			return nil, fmt.Errorf("failed to parse first bill date of %s: %w", r.ID, err)
		}
		first = t
	}

	return &models.Bill{
		Record: models.Record{
			ID:        r.ID,
			Status:    models.Status(r.Status),
			CreatedAt: fromMicros(r.CreatedAt),
			UpdatedAt: fromMicros(r.UpdatedAt),
		},
		SpaceID:    r.SpaceID,
		Name:       r.Name,
		Icon:       r.Icon,
		Note:       r.Note,
		Amount:     r.Amount,
		Currency:   models.Currency(r.Currency),
		Cycle:      r.Cycle,
		Interval:   models.Interval(r.Interval),
		FirstBill:  first,
		PayerID:    r.PayerID,
		IsShared:   r.IsShared,
		ParentID:   r.ParentID.String,
		CategoryID: r.CategoryID.String,
		SplitState: models.SplitState(r.SplitState),
		CreatedBy:  r.CreatedBy,
	}, nil
}

type payerRow struct {
	BillID string          `db:"bill_id"`
	UserID string          `db:"user_id"`
	Amount decimal.Decimal `db:"amount"`
}

const billColumns = `id, space_id, name, icon, note, amount, currency, cycle, interval_unit, first_bill,
	payer_id, is_shared, parent_id, category_id, split_state, created_by, status, created_at, updated_at`

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// CreateBill inserts a bill together with its payer splits.
func (s *Store) CreateBill(ctx context.Context, b *models.Bill) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO bills (`+billColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			b.ID, b.SpaceID, b.Name, b.Icon, b.Note, b.Amount.String(), string(b.Currency),
			b.Cycle, string(b.Interval), formatDate(b.FirstBill), b.PayerID, b.IsShared,
			nullString(b.ParentID), nullString(b.CategoryID), string(b.SplitState), b.CreatedBy,
			string(b.Status), toMicros(b.CreatedAt), toMicros(b.UpdatedAt),
		)
		if err != nil {
			return wrapErr(err, "failed to insert bill")
		}
		return insertPayers(ctx, tx, b)
	})
}

// UpdateBill writes every mutable bill column and replaces the payer splits
// in the same transaction.
func (s *Store) UpdateBill(ctx context.Context, b *models.Bill) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := updateOne(ctx, tx, "bill", b.ID, `
			UPDATE bills
			SET name = ?, icon = ?, note = ?, amount = ?, currency = ?, cycle = ?, interval_unit = ?,
				first_bill = ?, payer_id = ?, is_shared = ?, parent_id = ?, category_id = ?,
				split_state = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			b.Name, b.Icon, b.Note, b.Amount.String(), string(b.Currency), b.Cycle, string(b.Interval),
			formatDate(b.FirstBill), b.PayerID, b.IsShared, nullString(b.ParentID), nullString(b.CategoryID),
			string(b.SplitState), string(b.Status), toMicros(b.UpdatedAt),
			b.ID,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bill_payers WHERE bill_id = ?`), b.ID); err != nil {
			return fmt.Errorf("failed to clear bill payers: %w", err)
		}
		return insertPayers(ctx, tx, b)
	})
}

func insertPayers(ctx context.Context, tx *sqlx.Tx, b *models.Bill) error {
	query := tx.Rebind(`INSERT INTO bill_payers (bill_id, user_id, amount, position) VALUES (?, ?, ?, ?)`)
	for i, split := range b.Splits {
		if _, err := tx.ExecContext(ctx, query, b.ID, split.UserID, split.Amount.String(), i); err != nil {
			return wrapErr(err, "failed to insert bill payer")
		}
	}
	return nil
}

// GetBill retrieves a bill and its payer splits.
func (s *Store) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	var row billRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+billColumns+` FROM bills WHERE id = ?`), id); err != nil {
		return nil, wrapErr(err, "failed to get bill")
	}

	bills, err := s.hydrate(ctx, []billRow{row})
	if err != nil {
		return nil, err
	}
	return bills[0], nil
}

// ListBills returns the bills of a space, oldest first.
func (s *Store) ListBills(ctx context.Context, spaceID string) ([]*models.Bill, error) {
	return s.selectBills(ctx, `SELECT `+billColumns+` FROM bills WHERE space_id = ? ORDER BY created_at, id`, spaceID)
}

// ListChildBills returns the bills whose parent is parentID, oldest first.
func (s *Store) ListChildBills(ctx context.Context, parentID string) ([]*models.Bill, error) {
	return s.selectBills(ctx, `SELECT `+billColumns+` FROM bills WHERE parent_id = ? ORDER BY created_at, id`, parentID)
}

func (s *Store) selectBills(ctx context.Context, query string, arg string) ([]*models.Bill, error) {
	var rows []billRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), arg); err != nil {
		return nil, wrapErr(err, "failed to list bills")
	}
	return s.hydrate(ctx, rows)
}

// hydrate converts rows to models and loads every bill's payers in one query.
func (s *Store) hydrate(ctx context.Context, rows []billRow) ([]*models.Bill, error) {
	bills := make([]*models.Bill, len(rows))
	if len(rows) == 0 {
		return bills, nil
	}

	byID := make(map[string]*models.Bill, len(rows))
	ids := make([]string, len(rows))
	for i := range rows {
		b, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		bills[i] = b
		byID[b.ID] = b
		ids[i] = b.ID
	}

	query, args, err := sqlx.In(`SELECT bill_id, user_id, amount FROM bill_payers WHERE bill_id IN (?) ORDER BY bill_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build payer query: %w", err)
	}

	var payers []payerRow
	if err := s.db.SelectContext(ctx, &payers, s.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "failed to load bill payers")
	}

	for _, p := range payers {
		b := byID[p.BillID]
		b.Splits = append(b.Splits, models.PayerSplit{UserID: p.UserID, Amount: p.Amount})
	}
	return bills, nil
}
