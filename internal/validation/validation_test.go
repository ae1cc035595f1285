package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billspace/internal/models"
)

type userDraft struct {
	Username string `json:"username" validate:"required,min=4,max=16,username"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required,password"`
}

type splitDraft struct {
	UserID string          `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"money"`
}

type billDraft struct {
	Name     string          `json:"name" validate:"required,min=2,max=16"`
	Icon     string          `json:"icon" validate:"omitempty,emoji"`
	Amount   decimal.Decimal `json:"amount" validate:"money"`
	Currency string          `json:"currency" validate:"currency"`
	Cycle    int             `json:"cycle" validate:"gte=1"`
	Interval string          `json:"interval" validate:"interval"`
	Splits   []splitDraft    `json:"splits" validate:"omitempty,dive"`
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *Error, got %T", err)
	out := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		out[i] = v.Field
	}
	return out
}

func TestStructValid(t *testing.T) {
	err := Struct(userDraft{Username: "john_doe", Email: "jdoe@example.com", Password: "Password123!"})
	assert.NoError(t, err)
}

func TestStructReportsEveryViolation(t *testing.T) {
	err := Struct(userDraft{Username: "JD", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.ElementsMatch(t, []string{"username", "email", "password"}, fields(t, err))
}

func TestStructBillDraft(t *testing.T) {
	draft := billDraft{
		Name:     "x",
		Icon:     "abc",
		Amount:   decimal.NewFromInt(-1),
		Currency: "XYZ",
		Cycle:    0,
		Interval: "fortnight",
		Splits:   []splitDraft{{UserID: "", Amount: decimal.NewFromInt(-5)}},
	}
	err := Struct(draft)
	require.Error(t, err)
	assert.ElementsMatch(t,
		[]string{"name", "icon", "amount", "currency", "cycle", "interval", "splits[0].user_id", "splits[0].amount"},
		fields(t, err),
	)
}

func TestStructExtraViolations(t *testing.T) {
	extra := Violation{Field: "amount", Rule: "scale", Message: "too precise"}
	err := Struct(userDraft{Username: "john_doe", Email: "jdoe@example.com", Password: "Password123!"}, extra)
	require.Error(t, err)
	assert.Equal(t, []string{"amount"}, fields(t, err))
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		currency models.Currency
		amount   string
		wantRule string
	}{
		{"whole dollars", models.CurrencyUSD, "100", ""},
		{"cents", models.CurrencyUSD, "10.25", ""},
		{"trailing zeros", models.CurrencyUSD, "10.500", ""},
		{"sub-cent", models.CurrencyUSD, "10.255", "scale"},
		{"yen whole", models.CurrencyJPY, "1500", ""},
		{"yen fraction", models.CurrencyJPY, "1500.5", "scale"},
		{"negative", models.CurrencyEUR, "-1", "money"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Money("amount", tt.currency, decimal.RequireFromString(tt.amount))
			if tt.wantRule == "" {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.wantRule, v.Rule)
		})
	}
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("Password123!"))
	assert.False(t, StrongPassword("password123!"))
	assert.False(t, StrongPassword("PASSWORD123!"))
	assert.False(t, StrongPassword("Password!!!"))
	assert.False(t, StrongPassword("Password123"))
	assert.False(t, StrongPassword("Pa1!"))
	// Underscore is a word character, not a symbol.
	assert.False(t, StrongPassword("Password_123"))
}

func TestEmojiRule(t *testing.T) {
	type iconDraft struct {
		Icon string `json:"icon" validate:"emoji"`
	}
	for _, icon := range []string{"📦", "💸", "🍔", "✈️"} {
		assert.NoError(t, Struct(iconDraft{Icon: icon}), icon)
	}
	for _, icon := range []string{"", "a", "📦x"} {
		assert.Error(t, Struct(iconDraft{Icon: icon}), icon)
	}
}
