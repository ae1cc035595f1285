package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBillIcon is used when a bill is created without an icon.
const DefaultBillIcon = "💸"

// Currency is a supported ISO-4217-like currency code.
type Currency string

const (
	CurrencyAUD Currency = "AUD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyHKD Currency = "HKD"
	CurrencyJPY Currency = "JPY"
	CurrencyNTD Currency = "NTD"
	CurrencyUSD Currency = "USD"
)

// minorDigits is the number of decimal places of each currency's minor unit.
var minorDigits = map[Currency]int32{
	CurrencyAUD: 2,
	CurrencyCAD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyHKD: 2,
	CurrencyJPY: 0,
	CurrencyNTD: 2,
	CurrencyUSD: 2,
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	_, ok := minorDigits[c]
	return ok
}

// MinorDigits returns the number of decimal places allowed for amounts in c.
func (c Currency) MinorDigits() int32 {
	return minorDigits[c]
}

// Interval is the unit of a bill's recurrence cycle.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Valid reports whether i is a known interval.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// SplitState records whether a payer split decision has been made.
//
// An empty split list and an absent one mean different things:
//   - SplitUnspecified: nobody has decided how the bill is shared yet
//   - SplitPayerCovers: explicitly empty list, the payer bears 100%
//   - SplitShared: Splits is non-empty and sums to Amount
type SplitState string

const (
	SplitUnspecified SplitState = "unspecified"
	SplitPayerCovers SplitState = "payer_covers"
	SplitShared      SplitState = "split"
)

// PayerSplit is one member's share of a bill.
type PayerSplit struct {
	UserID string
	Amount decimal.Decimal
}

// Bill is a possibly recurring expense recorded in a space.
type Bill struct {
	Record

	// SpaceID is the owning space. Deletion authority flows through it.
	SpaceID string

	// Name is the human-readable name (e.g., "Rent", "Netflix").
	Name string

	// Icon is a single emoji.
	Icon string

	// Note is an optional free-form description.
	Note string

	// Amount is the total, non-negative, in Currency.
	Amount decimal.Decimal

	Currency Currency

	// Cycle and Interval describe recurrence: every Cycle Intervals.
	Cycle    int
	Interval Interval

	// FirstBill is the date of the first occurrence.
	FirstBill time.Time

	// PayerID is the member who fronts the payment.
	PayerID string

	IsShared bool

	// ParentID links this bill into a recurrence chain. Empty for roots.
	ParentID string

	// CategoryID is optional and may reference a deactivated category.
	CategoryID string

	// SplitState and Splits describe how Amount is shared among members.
	SplitState SplitState
	Splits     []PayerSplit

	// CreatedBy is the user who created the bill.
	CreatedBy string
}

// NewBill creates an active bill stamped at now. Splits must be applied
// separately so their invariants are checked.
func NewBill(spaceID, createdBy string, now time.Time) *Bill {
	return &Bill{
		Record:     newRecord(now),
		SpaceID:    spaceID,
		Icon:       DefaultBillIcon,
		Cycle:      1,
		Interval:   IntervalMonth,
		SplitState: SplitUnspecified,
		CreatedBy:  createdBy,
	}
}

// CanModifyAmount reports whether Amount may change without breaking the
// split-sum invariant: the bill is active and has no explicit splits.
func (b *Bill) CanModifyAmount() bool {
	return b.IsActive() && b.SplitState != SplitShared
}

// SplitTotal returns the sum of all split amounts.
func (b *Bill) SplitTotal() decimal.Decimal {
	return SumSplits(b.Splits)
}

// SumSplits returns the sum of split amounts.
func SumSplits(splits []PayerSplit) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	return total
}
