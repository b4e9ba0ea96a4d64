package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BrokerType identifies a supported brokerage export format.
type BrokerType string

const (
	BrokerFidelity BrokerType = "fidelity"
	BrokerSchwab   BrokerType = "schwab"
	BrokerVanguard BrokerType = "vanguard"
)

// Position is one holding parsed from a broker export.
// LastPrice and CurrentValue are informational only; valuation in the sheet
// is owned by formula columns and is never written back.
type Position struct {
	Symbol       string           `json:"symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	CostBasis    decimal.Decimal  `json:"costBasis"`
	LastPrice    *decimal.Decimal `json:"lastPrice,omitempty"`
	CurrentValue *decimal.Decimal `json:"currentValue,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParsedPortfolioData bundles one broker's full export for one sync cycle.
type ParsedPortfolioData struct {
	Broker     BrokerType      `json:"broker"`
	Positions  []Position      `json:"positions"`
	Balances   AccountBalances `json:"balances"`
	ExportDate string          `json:"exportDate,omitempty"`
}
