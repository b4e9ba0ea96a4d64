package domain

import "github.com/shopspring/decimal"

// AccountBalances is a single snapshot of an account's cash and margin state,
// parsed from a broker's balances export.
type AccountBalances struct {
	// SettledCash is the authoritative cash figure. The positions file's
	// money-market sweep row is not a cash source; only this field is.
	SettledCash decimal.Decimal `json:"settledCash"`

	// NetDebit is the broker's signed margin balance. Negative means money
	// owed to the broker. It carries rounding noise near zero.
	NetDebit decimal.Decimal `json:"netDebit"`

	// EquityPercentage is 0-100; exactly 100 means no margin debt.
	EquityPercentage decimal.Decimal `json:"equityPercentage"`

	// MarginInterest is interest accrued this period; a positive value is
	// evidence margin is genuinely in use even when NetDebit rounds to zero.
	MarginInterest decimal.Decimal `json:"marginInterest"`

	// PendingActivity is unsettled trade/dividend activity, written to its
	// own fixed cell so sheet totals reconcile mid-settlement.
	PendingActivity decimal.Decimal `json:"pendingActivity"`

	// TotalValue is used only for sanity cross-checks against position sums.
	TotalValue decimal.Decimal `json:"totalValue"`
}

// MarginDebt computes the account's effective margin debt. EquityPercentage
// is the authoritative signal: at exactly 100 the debt is zero regardless of
// NetDebit noise. Otherwise debt is the absolute net debit.
func (b AccountBalances) MarginDebt() decimal.Decimal {
	if b.EquityPercentage.Equal(decimal.NewFromInt(100)) {
		return decimal.Zero
	}
	return b.NetDebit.Abs()
}
