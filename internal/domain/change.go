package domain

import "github.com/shopspring/decimal"

// ChangeKind classifies a ticker's presence across the new export and the
// sheet baseline.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "NEW"
	ChangeExisting ChangeKind = "EXISTING"
	ChangeMissing  ChangeKind = "MISSING"
)

// ChangeRecord is one ticker's measured delta between the sheet baseline and
// the new export. Percentages are nil when the prior value is zero or the
// ticker is not EXISTING; severity is the safety gate's concern, not this
// record's.
type ChangeRecord struct {
	Symbol       string           `json:"symbol"`
	Kind         ChangeKind       `json:"kind"`
	OldQuantity  decimal.Decimal  `json:"oldQuantity"`
	NewQuantity  decimal.Decimal  `json:"newQuantity"`
	OldCostBasis decimal.Decimal  `json:"oldCostBasis"`
	NewCostBasis decimal.Decimal  `json:"newCostBasis"`
	QuantityPct  *decimal.Decimal `json:"quantityPct,omitempty"`
	CostBasisPct *decimal.Decimal `json:"costBasisPct,omitempty"`
	Description  string           `json:"description,omitempty"`

	// SheetRow is the baseline row for EXISTING/MISSING tickers, 0 for NEW.
	SheetRow int `json:"sheetRow,omitempty"`
}

// QuantityDelta returns the signed share-count change.
func (c ChangeRecord) QuantityDelta() decimal.Decimal {
	return c.NewQuantity.Sub(c.OldQuantity)
}

// CashChange carries the measured cash and margin deltas for the run.
type CashChange struct {
	SheetCash       decimal.Decimal `json:"sheetCash"`
	ExportCash      decimal.Decimal `json:"exportCash"`
	PendingActivity decimal.Decimal `json:"pendingActivity"`
	CashDiscrepancy decimal.Decimal `json:"cashDiscrepancy"`
	OldMarginDebt   decimal.Decimal `json:"oldMarginDebt"`
	NewMarginDebt   decimal.Decimal `json:"newMarginDebt"`
}

// MarginDelta returns the absolute change in margin debt.
func (c CashChange) MarginDelta() decimal.Decimal {
	return c.NewMarginDebt.Sub(c.OldMarginDebt).Abs()
}

// ChangeSet is the reconciliation engine's full output for one run: raw
// measurements only, no policy decisions.
type ChangeSet struct {
	Records       []ChangeRecord `json:"records"`
	Cash          CashChange     `json:"cash"`
	FormulaErrors int            `json:"formulaErrors"`
	BaselineEmpty bool           `json:"baselineEmpty"`
}

// Missing returns the MISSING records in the set.
func (s ChangeSet) Missing() []ChangeRecord {
	var out []ChangeRecord
	for _, r := range s.Records {
		if r.Kind == ChangeMissing {
			out = append(out, r)
		}
	}
	return out
}
