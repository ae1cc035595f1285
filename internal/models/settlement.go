package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is a payment from one space member to another made outside of
// any bill. In balances it counts as FromUserID paying ToUserID Amount.
//
// Parties, amount and currency are fixed once recorded; a mistaken
// settlement is retired rather than edited.
type Settlement struct {
	Record

	SpaceID    string
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
	Currency   Currency
	Note       string

	// CreatedBy is the member who recorded the payment. It decides who may
	// retire it under the own/any rule.
	CreatedBy string
}

// NewSettlement creates an active settlement stamped at now.
func NewSettlement(spaceID, from, to string, amount decimal.Decimal, currency Currency, createdBy string, now time.Time) *Settlement {
	return &Settlement{
		Record:     newRecord(now),
		SpaceID:    spaceID,
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		Currency:   currency,
		CreatedBy:  createdBy,
	}
}
