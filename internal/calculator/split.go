package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
)

// Share is one participant's weight in a proportional split.
type Share struct {
	UserID string
	Weight decimal.Decimal
}

// SplitEvenly divides amount equally among participants.
// See SplitByShares for the rounding rule.
func SplitEvenly(amount decimal.Decimal, currency models.Currency, participants []string) ([]models.PayerSplit, error) {
	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p, Weight: decimal.NewFromInt(1)}
	}
	return SplitByShares(amount, currency, shares)
}

// SplitByShares divides amount among participants in proportion to their
// weights, in whole minor units of currency.
//
// Each participant first receives the floor of their exact share. The minor
// units left over go one at a time to the participants with the largest
// fractional remainders, earlier participants first on ties, so the result
// always sums to amount exactly.
func SplitByShares(amount decimal.Decimal, currency models.Currency, shares []Share) ([]models.PayerSplit, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	digits := currency.MinorDigits()
	units := amount.Shift(digits)
	if !units.Equal(units.Floor()) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, digits)
	}

	total := decimal.Zero
	for _, s := range shares {
		if s.Weight.IsNegative() {
			return nil, fmt.Errorf("weight for %s cannot be negative", s.UserID)
		}
		total = total.Add(s.Weight)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("weights cannot all be zero")
	}

	type portion struct {
		units decimal.Decimal
		frac  decimal.Decimal
	}

	portions := make([]portion, len(shares))
	assigned := decimal.Zero
	for i, s := range shares {
		exact := units.Mul(s.Weight).Div(total)
		floor := exact.Floor()
		portions[i] = portion{units: floor, frac: exact.Sub(floor)}
		assigned = assigned.Add(floor)
	}

	leftover := units.Sub(assigned).IntPart()
	order := make([]int, len(portions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return portions[order[a]].frac.GreaterThan(portions[order[b]].frac)
	})
	for k := int64(0); k < leftover; k++ {
		p := &portions[order[k%int64(len(order))]]
		p.units = p.units.Add(decimal.NewFromInt(1))
	}

	splits := make([]models.PayerSplit, len(shares))
	for i, p := range portions {
		splits[i] = models.PayerSplit{
			UserID: shares[i].UserID,
			Amount: p.units.Shift(-digits),
		}
	}
	return splits, nil
}
