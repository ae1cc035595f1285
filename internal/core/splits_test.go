package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billspace/internal/models"
)

func TestSetPayers(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bobby := f.register(t, "bobby")
	carol := f.register(t, "carol")
	outsider := f.register(t, "outsider")
	sp := f.space(t, alice, bobby, carol)

	b := f.bill(t, alice, sp.ID, "100")

	t.Run("exact sum succeeds", func(t *testing.T) {
		got, err := f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("33.34")},
			{UserID: bobby.ID, Amount: dec("33.33")},
			{UserID: carol.ID, Amount: dec("33.33")},
		})
		require.NoError(t, err)
		assert.Equal(t, models.SplitShared, got.SplitState)
		assert.True(t, got.SplitTotal().Equal(got.Amount))
	})

	t.Run("mismatch reports the delta and keeps prior splits", func(t *testing.T) {
		_, err := f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("50")},
			{UserID: bobby.ID, Amount: dec("40")},
		})
		require.ErrorIs(t, err, ErrInvariant)

		var mismatch *SplitMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.True(t, mismatch.Expected.Equal(dec("100")))
		assert.True(t, mismatch.Actual.Equal(dec("90")))
		assert.True(t, mismatch.Delta.Equal(dec("-10")))

		stored, err := f.svc.GetBill(f.ctx, alice.ID, b.ID)
		require.NoError(t, err)
		require.Len(t, stored.Splits, 3)
		assert.True(t, stored.SplitTotal().Equal(dec("100")))
	})

	t.Run("duplicates and outsiders are rejected", func(t *testing.T) {
		_, err := f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("50")},
			{UserID: alice.ID, Amount: dec("50")},
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, []string{"splits[1].user_id"}, violationFields(t, err))

		_, err = f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("50")},
			{UserID: outsider.ID, Amount: dec("50")},
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, []string{"splits[1].user_id"}, violationFields(t, err))
	})

	t.Run("retired members cannot take part", func(t *testing.T) {
		dave := f.register(t, "dave")
		_, err := f.svc.AddMember(f.ctx, alice.ID, sp.ID, dave.ID, models.RoleEditor)
		require.NoError(t, err)
		require.NoError(t, f.svc.DeactivateUser(f.ctx, dave.ID))

		_, err = f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("50")},
			{UserID: dave.ID, Amount: dec("50")},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("amount scale follows the currency", func(t *testing.T) {
		_, err := f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{
			{UserID: alice.ID, Amount: dec("50.005")},
			{UserID: bobby.ID, Amount: dec("49.995")},
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, []string{"splits[0].amount", "splits[1].amount"}, violationFields(t, err))
	})

	t.Run("empty list means the payer covers everything", func(t *testing.T) {
		got, err := f.svc.SetPayers(f.ctx, alice.ID, b.ID, []SplitDraft{})
		require.NoError(t, err)
		assert.Equal(t, models.SplitPayerCovers, got.SplitState)
		assert.Empty(t, got.Splits)

		stored, err := f.svc.GetBill(f.ctx, alice.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SplitPayerCovers, stored.SplitState)
		assert.True(t, stored.CanModifyAmount())
	})

	t.Run("clear resets to unspecified", func(t *testing.T) {
		got, err := f.svc.ClearPayers(f.ctx, alice.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SplitUnspecified, got.SplitState)
		assert.Nil(t, got.Splits)
	})

	t.Run("editor cannot split another member's bill", func(t *testing.T) {
		_, err := f.svc.SetPayers(f.ctx, bobby.ID, b.ID, []SplitDraft{{UserID: bobby.ID, Amount: dec("100")}})
		assert.ErrorIs(t, err, ErrDenied)
		_, err = f.svc.ClearPayers(f.ctx, bobby.ID, b.ID)
		assert.ErrorIs(t, err, ErrDenied)
	})
}

func TestSplitEvenly(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bobby := f.register(t, "bobby")
	carol := f.register(t, "carol")
	sp := f.space(t, alice, bobby, carol)
	b := f.bill(t, alice, sp.ID, "10")

	got, err := f.svc.SplitEvenly(f.ctx, alice.ID, b.ID, []string{alice.ID, bobby.ID, carol.ID})
	require.NoError(t, err)
	require.Len(t, got.Splits, 3)
	assert.True(t, got.Splits[0].Amount.Equal(dec("3.34")))
	assert.True(t, got.Splits[1].Amount.Equal(dec("3.33")))
	assert.True(t, got.SplitTotal().Equal(dec("10")))

	_, err = f.svc.SplitEvenly(f.ctx, alice.ID, b.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSplitEvenlyAuthorizesFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	outsider := f.register(t, "outsider")
	sp := f.space(t, alice)
	b := f.bill(t, alice, sp.ID, "10")

	_, err := f.svc.SplitEvenly(f.ctx, outsider.ID, b.ID, nil)
	assert.ErrorIs(t, err, ErrDenied)
	assert.NotErrorIs(t, err, ErrValidation)
}
