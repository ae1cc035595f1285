package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewRecordTimestamps(t *testing.T) {
	u := NewUser("alice", "alice@example.com", "Alice", "hash", t0)

	require.NotEmpty(t, u.ID)
	assert.Equal(t, StatusActive, u.Status)
	assert.Equal(t, t0, u.CreatedAt)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	assert.True(t, u.IsActive())
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s := NewSpace("Trip", "", t0)
	later := t0.Add(time.Hour)

	require.True(t, s.Deactivate(later))
	assert.Equal(t, StatusInactive, s.Status)
	assert.Equal(t, later, s.UpdatedAt)

	// A second deactivation must not move UpdatedAt again.
	assert.False(t, s.Deactivate(later.Add(time.Hour)))
	assert.Equal(t, later, s.UpdatedAt)
	assert.False(t, s.IsActive())
}

func TestMembershipIsOwner(t *testing.T) {
	var nilMember *Membership
	assert.False(t, nilMember.IsOwner())
	assert.True(t, NewMembership("s", "u", RoleOwner, t0).IsOwner())
	assert.False(t, NewMembership("s", "u", RoleEditor, t0).IsOwner())
}

func TestBillCanModifyAmount(t *testing.T) {
	tests := []struct {
		name  string
		state SplitState
		want  bool
	}{
		{"unspecified", SplitUnspecified, true},
		{"payer covers", SplitPayerCovers, true},
		{"split", SplitShared, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBill("space", "user", t0)
			b.SplitState = tt.state
			assert.Equal(t, tt.want, b.CanModifyAmount())
		})
	}

	t.Run("inactive bill", func(t *testing.T) {
		b := NewBill("space", "user", t0)
		b.Deactivate(t0)
		assert.False(t, b.CanModifyAmount())
	})
}

func TestSumSplits(t *testing.T) {
	splits := []PayerSplit{
		{UserID: "a", Amount: decimal.RequireFromString("60.10")},
		{UserID: "b", Amount: decimal.RequireFromString("39.90")},
	}
	assert.True(t, SumSplits(splits).Equal(decimal.NewFromInt(100)))
	assert.True(t, SumSplits(nil).IsZero())
}

func TestCurrencyMinorDigits(t *testing.T) {
	assert.Equal(t, int32(0), CurrencyJPY.MinorDigits())
	assert.Equal(t, int32(2), CurrencyUSD.MinorDigits())
	assert.False(t, Currency("XYZ").Valid())
	assert.True(t, IntervalWeek.Valid())
	assert.False(t, Interval("fortnight").Valid())
	assert.False(t, Role("admin").Valid())
}

func TestDefaultIcons(t *testing.T) {
	c := NewCategory("space", "Food", "", "user", t0)
	assert.Equal(t, DefaultCategoryIcon, c.Icon)
	assert.Equal(t, DefaultBillIcon, NewBill("space", "user", t0).Icon)
}

func TestNewSettlement(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))
	st := NewSettlement("space", "bob", "alice", decimal.NewFromInt(7), CurrencyGBP, "bob", at)

	require.NotEmpty(t, st.ID)
	assert.True(t, st.IsActive())
	assert.True(t, st.CreatedAt.Equal(at))
	assert.Equal(t, time.UTC, st.CreatedAt.Location())
	assert.Equal(t, "bob", st.FromUserID)
	assert.Equal(t, "alice", st.ToUserID)
}
