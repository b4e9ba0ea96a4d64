// Package executor applies an approved action plan to the spreadsheet sink
// as a bounded sequence of single-cell writes. Positions are written before
// cash so an interrupted run leaves position data consistent; cash cells are
// cheap to re-verify by hand.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/finassist/brokersync/internal/domain"
	"github.com/finassist/brokersync/internal/layer"
	"github.com/finassist/brokersync/internal/safety"
	"github.com/finassist/brokersync/internal/sheet"
)

// SinkWriteError wraps a failed cell write. Completed reports how many
// writes landed before the failure so the operator knows the
// partial-application boundary; writes are idempotent, so re-running is the
// recovery path.
type SinkWriteError struct {
	Ref       sheet.CellRef
	Completed int
	Err       error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("write to %s failed after %d completed writes: %v", e.Ref, e.Completed, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// Write records one completed cell write.
type Write struct {
	Ref   sheet.CellRef `json:"ref"`
	Value string        `json:"value"`
}

// Result is the structured outcome of an apply call, produced for every run,
// blocked or not, so a human can audit exactly what happened.
type Result struct {
	Blocked          bool                   `json:"blocked"`
	BlockReasons     []string               `json:"blockReasons,omitempty"`
	FlagNotes        []string               `json:"flagNotes,omitempty"`
	PositionsUpdated int                    `json:"positionsUpdated"`
	PositionsAdded   int                    `json:"positionsAdded"`
	NewLayers        map[string]layer.Label `json:"newLayers,omitempty"`
	Writes           []Write                `json:"writes,omitempty"`
	CashWritten      bool                   `json:"cashWritten"`
}

// Service applies action plans against a cell-addressed sink. The sink is a
// parameter of the service, never ambient state.
type Service struct {
	sink   sheet.CellWriter
	layout sheet.Layout
}

// NewService creates an executor writing through the given sink.
func NewService(sink sheet.CellWriter, layout sheet.Layout) *Service {
	return &Service{sink: sink, layout: layout}
}

// Apply executes an action plan. A plan with any BLOCK performs zero writes;
// callers re-run Apply with an edited plan after human confirmation. On a
// sink failure no further writes are issued and the returned Result lists
// exactly which writes completed.
func (s *Service) Apply(ctx context.Context, plan safety.Plan, baseline domain.PortfolioSnapshot) (Result, error) {
	result := Result{
		FlagNotes: plan.FlagNotes,
		NewLayers: map[string]layer.Label{},
	}

	if plan.Blocked() {
		result.Blocked = true
		result.BlockReasons = plan.BlockReasons
		slog.Info("sync blocked, no writes issued", "reasons", len(plan.BlockReasons))
		return result, nil
	}

	nextRow := baseline.NextRow
	if nextRow < s.layout.FirstRow {
		nextRow = s.layout.FirstRow
	}

	for _, action := range plan.Actions {
		change := action.Change
		switch change.Kind {
		case domain.ChangeNew:
			row := change.SheetRow
			appended := row == 0
			if appended {
				row = nextRow
				nextRow++
			}

			writes := []Write{
				{Ref: s.cellRef(s.layout.TickerCol, row), Value: change.Symbol},
				{Ref: s.cellRef(s.layout.QuantityCol, row), Value: change.NewQuantity.String()},
				{Ref: s.cellRef(s.layout.CostBasisCol, row), Value: change.NewCostBasis.String()},
			}
			if appended {
				label := layer.Classify(change.Symbol, change.Description)
				result.NewLayers[change.Symbol] = label
				writes = append(writes, Write{Ref: s.cellRef(s.layout.LayerCol, row), Value: string(label)})
			}

			if err := s.issue(ctx, &result, writes); err != nil {
				return result, err
			}
			result.PositionsAdded++

		case domain.ChangeExisting:
			var writes []Write
			if !change.NewQuantity.Equal(change.OldQuantity) {
				writes = append(writes, Write{
					Ref: s.cellRef(s.layout.QuantityCol, change.SheetRow), Value: change.NewQuantity.String(),
				})
			}
			if !change.NewCostBasis.Equal(change.OldCostBasis) {
				writes = append(writes, Write{
					Ref: s.cellRef(s.layout.CostBasisCol, change.SheetRow), Value: change.NewCostBasis.String(),
				})
			}
			if len(writes) == 0 {
				continue
			}
			if err := s.issue(ctx, &result, writes); err != nil {
				return result, err
			}
			result.PositionsUpdated++
		}
		// MISSING cannot appear in an unblocked plan; the gate blocks the run.
	}

	cashWrites := []Write{
		{Ref: s.layout.SettledCashCell, Value: plan.Cash.ExportCash.StringFixed(2)},
		{Ref: s.layout.PendingActivityCell, Value: plan.Cash.PendingActivity.StringFixed(2)},
		{Ref: s.layout.MarginDebtCell, Value: plan.Cash.NewMarginDebt.StringFixed(2)},
	}
	if err := s.issue(ctx, &result, cashWrites); err != nil {
		return result, err
	}
	result.CashWritten = true

	return result, nil
}

// issue sends writes one cell at a time, stopping on the first failure.
func (s *Service) issue(ctx context.Context, result *Result, writes []Write) error {
	for _, w := range writes {
		if err := s.sink.WriteCell(ctx, w.Ref, w.Value); err != nil {
			slog.Error("cell write failed, stopping run",
				"cell", w.Ref, "completed", len(result.Writes), "error", err)
			return &SinkWriteError{Ref: w.Ref, Completed: len(result.Writes), Err: err}
		}
		result.Writes = append(result.Writes, w)
	}
	return nil
}

func (s *Service) cellRef(column string, row int) sheet.CellRef {
	return sheet.CellRef{Tab: s.layout.Tab, Column: column, Row: row}
}

// Summary renders the run outcome for the operator.
func (r Result) Summary() string {
	var b strings.Builder

	if r.Blocked {
		fmt.Fprintf(&b, "SYNC BLOCKED — no writes issued\n")
		for _, reason := range r.BlockReasons {
			fmt.Fprintf(&b, "  BLOCK: %s\n", reason)
		}
	} else {
		fmt.Fprintf(&b, "Sync applied: %d updated, %d added, %d cell writes\n",
			r.PositionsUpdated, r.PositionsAdded, len(r.Writes))
		symbols := make([]string, 0, len(r.NewLayers))
		for symbol := range r.NewLayers {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			fmt.Fprintf(&b, "  new: %s → %s\n", symbol, r.NewLayers[symbol])
		}
		if r.CashWritten {
			fmt.Fprintf(&b, "  cash and margin cells updated\n")
		}
	}

	for _, note := range r.FlagNotes {
		fmt.Fprintf(&b, "  FLAG: %s\n", note)
	}

	return b.String()
}
