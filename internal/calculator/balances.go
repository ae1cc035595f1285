package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/models"
)

// MemberBalance represents the balance information for one space member in
// one currency.
type MemberBalance struct {
	UserID    string
	TotalPaid decimal.Decimal // Total amount fronted across all bills
	TotalOwed decimal.Decimal // Total share of bills this member bears
	Settled   decimal.Decimal // Paid out in settlements minus received
	Net       decimal.Decimal // Positive = is owed money, Negative = owes money
}

// DebtEdge represents a debt from one member to another.
type DebtEdge struct {
	From   string // Member who owes
	To     string // Member who is owed
	Amount decimal.Decimal
}

// CurrencyBalances holds the balances and simplified debts of one currency.
// Amounts in different currencies are never netted against each other.
type CurrencyBalances struct {
	Currency models.Currency
	Members  []MemberBalance
	Debts    []DebtEdge
}

// CalculateSpaceBalances computes balances across the given bills and
// settlements.
//
// Algorithm:
//   - For each active bill: the payer contributed +amount
//   - With SplitShared, each split participant owes their split amount;
//     otherwise the payer bears the whole amount
//   - For each active settlement: the sender gains +amount, the receiver -amount
//   - Aggregate: net = total_paid - total_owed + settled
//   - Debts: simplified using greedy matching of largest debtor to largest creditor
//
// Inactive records are skipped. Results are sorted by currency and user ID.
func CalculateSpaceBalances(bills []*models.Bill, settlements []*models.Settlement) []CurrencyBalances {
	byCurrency := make(map[models.Currency]map[string]*MemberBalance)

	member := func(c models.Currency, userID string) *MemberBalance {
		balances, ok := byCurrency[c]
		if !ok {
			balances = make(map[string]*MemberBalance)
			byCurrency[c] = balances
		}
		bal, ok := balances[userID]
		if !ok {
			bal = &MemberBalance{UserID: userID}
			balances[userID] = bal
		}
		return bal
	}

	for _, bill := range bills {
		// Skip retired bills and bills without payer (can't calculate balances)
		if !bill.IsActive() || bill.PayerID == "" {
			continue
		}

		payer := member(bill.Currency, bill.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(bill.Amount)

		if bill.SplitState != models.SplitShared {
			payer.TotalOwed = payer.TotalOwed.Add(bill.Amount)
			continue
		}
		for _, split := range bill.Splits {
			bal := member(bill.Currency, split.UserID)
			bal.TotalOwed = bal.TotalOwed.Add(split.Amount)
		}
	}

	for _, st := range settlements {
		if !st.IsActive() {
			continue
		}
		from := member(st.Currency, st.FromUserID)
		from.Settled = from.Settled.Add(st.Amount)
		to := member(st.Currency, st.ToUserID)
		to.Settled = to.Settled.Sub(st.Amount)
	}

	currencies := make([]models.Currency, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	result := make([]CurrencyBalances, 0, len(currencies))
	for _, c := range currencies {
		members := make([]MemberBalance, 0, len(byCurrency[c]))
		for _, bal := range byCurrency[c] {
			bal.Net = bal.TotalPaid.Sub(bal.TotalOwed).Add(bal.Settled)
			members = append(members, *bal)
		}
		sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })

		result = append(result, CurrencyBalances{
			Currency: c,
			Members:  members,
			Debts:    simplifyDebts(members),
		})
	}
	return result
}

// simplifyDebts matches debtors with creditors to minimize transactions.
func simplifyDebts(members []MemberBalance) []DebtEdge {
	type party struct {
		userID string
		amount decimal.Decimal
	}

	var creditors, debtors []party
	for _, m := range members {
		switch m.Net.Sign() {
		case 1:
			creditors = append(creditors, party{m.UserID, m.Net})
		case -1:
			debtors = append(debtors, party{m.UserID, m.Net.Neg()})
		}
	}

	// Largest first; ties by user ID so the result is deterministic.
	largest := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].userID < ps[j].userID
		}
	}
	sort.Slice(creditors, largest(creditors))
	sort.Slice(debtors, largest(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		edges = append(edges, DebtEdge{
			From:   debtors[i].userID,
			To:     creditors[j].userID,
			Amount: amount,
		})

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return edges
}
