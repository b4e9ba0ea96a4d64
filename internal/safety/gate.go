// Package safety applies the sync decision policy over a measured ChangeSet.
// It is a pure rule table: no I/O, no sheet handle, independently testable.
// BLOCK is global (one blocked change stops the whole run, preventing a
// half-applied sheet); FLAG is local and never blocks.
package safety

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finassist/brokersync/internal/domain"
)

// Decision is the outcome tier for one change.
type Decision string

const (
	Auto  Decision = "AUTO"
	Flag  Decision = "FLAG"
	Block Decision = "BLOCK"
)

// Policy thresholds. Percentage comparisons are strictly greater-than: a
// change of exactly 10% does not block. Denominators are always the prior
// value; the MISSING rule covers the would-be divide-by-zero transitions.
var (
	quantityBlockPct  = decimal.RequireFromString("0.10")
	costBasisFlagPct  = decimal.RequireFromString("0.20")
	cashBlockAmount   = decimal.NewFromInt(100)
	cashFlagFloor     = decimal.NewFromInt(1)
	marginBlockAmount = decimal.NewFromInt(5000)
)

// formulaErrorLimit is the marker count at which the sheet is considered
// unhealthy and the whole sync is blocked.
const formulaErrorLimit = 3

// Action is the gate's verdict on one ticker change.
type Action struct {
	Change   domain.ChangeRecord `json:"change"`
	Decision Decision            `json:"decision"`
	Reason   string              `json:"reason"`
}

// Plan is the gate's full output for a run. Run-level conditions (missing
// tickers, sheet health, cash, margin) surface in BlockReasons and
// FlagNotes; per-ticker verdicts are in Actions.
type Plan struct {
	Actions      []Action          `json:"actions"`
	Cash         domain.CashChange `json:"cash"`
	BlockReasons []string          `json:"blockReasons,omitempty"`
	FlagNotes    []string          `json:"flagNotes,omitempty"`
}

// Blocked reports whether any BLOCK condition exists anywhere in the plan.
func (p Plan) Blocked() bool {
	return len(p.BlockReasons) > 0
}

// Evaluate runs the decision table over a ChangeSet.
func Evaluate(set domain.ChangeSet) Plan {
	plan := Plan{Cash: set.Cash}

	for _, change := range set.Records {
		action := evaluateChange(change)
		plan.Actions = append(plan.Actions, action)
		switch action.Decision {
		case Block:
			plan.BlockReasons = append(plan.BlockReasons, action.Reason)
		case Flag:
			plan.FlagNotes = append(plan.FlagNotes, action.Reason)
		}
	}

	if set.FormulaErrors >= formulaErrorLimit {
		plan.BlockReasons = append(plan.BlockReasons, fmt.Sprintf(
			"sheet has %d formula error markers (limit %d); fix before importing",
			set.FormulaErrors, formulaErrorLimit))
	}

	// An empty sheet has no prior cash or margin figures to compare against:
	// a first sync seeds those cells instead of checking them.
	if set.BaselineEmpty {
		plan.FlagNotes = append(plan.FlagNotes,
			"sheet was empty; first sync, cash and margin checks skipped")
		return plan
	}

	disc := set.Cash.CashDiscrepancy
	switch {
	case disc.GreaterThan(cashBlockAmount):
		plan.BlockReasons = append(plan.BlockReasons, fmt.Sprintf(
			"settled cash differs from sheet by $%s", disc.StringFixed(2)))
	case disc.GreaterThanOrEqual(cashFlagFloor):
		plan.FlagNotes = append(plan.FlagNotes, fmt.Sprintf(
			"settled cash differs from sheet by $%s", disc.StringFixed(2)))
	}

	if set.Cash.MarginDelta().GreaterThan(marginBlockAmount) {
		plan.BlockReasons = append(plan.BlockReasons, fmt.Sprintf(
			"margin debt changed by $%s (from %s to %s)",
			set.Cash.MarginDelta().StringFixed(2),
			set.Cash.OldMarginDebt.StringFixed(2),
			set.Cash.NewMarginDebt.StringFixed(2)))
	}

	return plan
}

func evaluateChange(change domain.ChangeRecord) Action {
	switch change.Kind {
	case domain.ChangeMissing:
		return Action{Change: change, Decision: Block, Reason: fmt.Sprintf(
			"%s held in sheet but missing from export (possible undisclosed sale or transfer)",
			change.Symbol)}

	case domain.ChangeNew:
		return Action{Change: change, Decision: Auto, Reason: fmt.Sprintf(
			"%s is a new holding", change.Symbol)}
	}

	if pct := change.QuantityPct; pct != nil && pct.Abs().GreaterThan(quantityBlockPct) {
		return Action{Change: change, Decision: Block, Reason: fmt.Sprintf(
			"%s quantity changed %s%% (over %s%%); confirm the trade was intentional",
			change.Symbol, formatPct(*pct), formatPct(quantityBlockPct))}
	}

	if pct := change.CostBasisPct; pct != nil && pct.Abs().GreaterThan(costBasisFlagPct) {
		return Action{Change: change, Decision: Flag, Reason: fmt.Sprintf(
			"%s cost basis changed %s%%; possible corporate action, review",
			change.Symbol, formatPct(*pct))}
	}

	return Action{Change: change, Decision: Auto, Reason: fmt.Sprintf(
		"%s within normal variance", change.Symbol)}
}

func formatPct(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).Round(2).String()
}
