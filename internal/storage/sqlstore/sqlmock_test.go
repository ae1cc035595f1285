package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
	"github.com/mmynk/billspace/internal/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, DriverPostgres), mock
}

func TestCreateSpaceRollsBackOnMemberFailure(t *testing.T) {
	store, mock := newMockStore(t)

	space := models.NewSpace("Flat", "", now)
	members := []*models.Membership{
		models.NewMembership(space.ID, "u1", models.RoleOwner, now),
		models.NewMembership(space.ID, "u2", models.RoleEditor, now),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO spaces .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO space_members`).
		WithArgs(space.ID, "u1", "owner", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO space_members`).
		WithArgs(space.ID, "u2", "editor", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.CreateSpace(context.Background(), space, members)
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpdateOneMapsZeroRowsToNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE categories SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c := models.NewCategory("s1", "Food", "", "u1", now)
	err := store.UpdateCategory(context.Background(), c)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpdateBillRollsBackOnPayerFailure(t *testing.T) {
	store, mock := newMockStore(t)

	b := models.NewBill("s1", "u1", now)
	b.Splits = []models.PayerSplit{{UserID: "u1"}}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bills`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM bill_payers WHERE bill_id = \$1`).
		WithArgs(b.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO bill_payers`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := store.UpdateBill(context.Background(), b); err == nil {
		t.Fatal("Expected error from failed payer insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres fk", &pq.Error{Code: "23503"}, false},
		{"sqlite message", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), true},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCreateSettlementUsesPostgresPlaceholders(t *testing.T) {
	store, mock := newMockStore(t)

	st := models.NewSettlement("s1", "u2", "u1", decimal.RequireFromString("12.50"), models.CurrencyEUR, "u2", now)
	mock.ExpectExec(`INSERT INTO settlements .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)`).
		WithArgs(st.ID, "s1", "u2", "u1", "12.5", "EUR", "", "u2", "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23503", Message: "insert or update on table violates foreign key constraint"})

	if err := store.CreateSettlement(context.Background(), st); err == nil {
		t.Error("Expected foreign key failure to be returned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
