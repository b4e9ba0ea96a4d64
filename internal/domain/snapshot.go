package domain

import "github.com/shopspring/decimal"

// SheetRow is one position row as currently recorded in the destination
// sheet, including its 1-based row number for scoped cell writes.
type SheetRow struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"costBasis"`
	Row       int             `json:"row"`
}

// PortfolioSnapshot is the sheet's last recorded portfolio state, read back
// at the start of each run. It is the baseline for reconciliation and is
// written only through the executor's whitelisted cell writes.
type PortfolioSnapshot struct {
	Rows        []SheetRow      `json:"rows"`
	SettledCash decimal.Decimal `json:"settledCash"`
	MarginDebt  decimal.Decimal `json:"marginDebt"`

	// FormulaErrors counts #N/A, #DIV/0! and #REF! markers observed in the
	// sheet's formula columns during read-back.
	FormulaErrors int `json:"formulaErrors"`

	// NextRow is the first empty row below the position block, where new
	// tickers are appended.
	NextRow int `json:"nextRow"`
}

// IsEmpty reports whether the sheet has no recorded positions (first-ever sync).
func (s PortfolioSnapshot) IsEmpty() bool {
	return len(s.Rows) == 0
}
