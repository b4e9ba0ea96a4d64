// Package reconcile compares a freshly parsed broker export against the
// sheet's last recorded state and measures every delta. It classifies
// presence (NEW/EXISTING/MISSING) and computes raw percentage changes;
// severity policy belongs to the safety gate, not here.
package reconcile

import (
	"github.com/samber/lo"

	"github.com/finassist/brokersync/internal/domain"
)

// Reconcile builds the ChangeSet for one sync run. The baseline is a value,
// not shared state; callers read it back from the sheet beforehand.
func Reconcile(data domain.ParsedPortfolioData, baseline domain.PortfolioSnapshot) domain.ChangeSet {
	baseRows := lo.KeyBy(baseline.Rows, func(r domain.SheetRow) string { return r.Symbol })
	newSymbols := lo.KeyBy(data.Positions, func(p domain.Position) string { return p.Symbol })

	records := make([]domain.ChangeRecord, 0, len(data.Positions)+len(baseline.Rows))

	for _, pos := range data.Positions {
		old, inBaseline := baseRows[pos.Symbol]

		rec := domain.ChangeRecord{
			Symbol:       pos.Symbol,
			NewQuantity:  pos.Quantity,
			NewCostBasis: pos.CostBasis,
			Description:  pos.Description,
		}

		// A baseline row holding zero quantity gives no denominator for a
		// percentage; the position is effectively new. Its existing row is
		// kept so the write lands in place instead of appending a duplicate.
		if !inBaseline || old.Quantity.IsZero() {
			rec.Kind = domain.ChangeNew
			if inBaseline {
				rec.SheetRow = old.Row
				rec.OldCostBasis = old.CostBasis
			}
		} else {
			rec.Kind = domain.ChangeExisting
			rec.SheetRow = old.Row
			rec.OldQuantity = old.Quantity
			rec.OldCostBasis = old.CostBasis
			rec.QuantityPct = domain.PctChange(old.Quantity, pos.Quantity)
			rec.CostBasisPct = domain.PctChange(old.CostBasis, pos.CostBasis)
		}

		records = append(records, rec)
	}

	for _, row := range baseline.Rows {
		if _, stillHeld := newSymbols[row.Symbol]; stillHeld {
			continue
		}
		records = append(records, domain.ChangeRecord{
			Symbol:       row.Symbol,
			Kind:         domain.ChangeMissing,
			OldQuantity:  row.Quantity,
			OldCostBasis: row.CostBasis,
			SheetRow:     row.Row,
		})
	}

	return domain.ChangeSet{
		Records: records,
		Cash: domain.CashChange{
			SheetCash:       baseline.SettledCash,
			ExportCash:      data.Balances.SettledCash,
			PendingActivity: data.Balances.PendingActivity,
			CashDiscrepancy: baseline.SettledCash.Sub(data.Balances.SettledCash).Abs(),
			OldMarginDebt:   baseline.MarginDebt,
			NewMarginDebt:   data.Balances.MarginDebt(),
		},
		FormulaErrors: baseline.FormulaErrors,
		BaselineEmpty: baseline.IsEmpty(),
	}
}
