// Package sheet defines the spreadsheet sink contract and its Google Sheets
// implementation. The write primitive is a single cell by construction, so a
// multi-column range write that could blank formula columns is
// unrepresentable.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finassist/brokersync/internal/domain"
)

// ErrEmptyValue is returned when a caller attempts to write an empty string.
// An empty string is itself a destructive write: it clears the target cell.
var ErrEmptyValue = errors.New("refusing to write empty value to cell")

// CellRef addresses exactly one cell.
type CellRef struct {
	Tab    string
	Column string
	Row    int
}

// Range returns the A1-notation range for this single cell.
func (r CellRef) Range() string {
	return fmt.Sprintf("%s!%s%d", r.Tab, r.Column, r.Row)
}

func (r CellRef) String() string { return r.Range() }

// CellWriter is the sink's only write surface: one column, one row, one
// non-empty value per call. Writes are "set cell to value" and therefore
// idempotent; retrying is always safe.
type CellWriter interface {
	WriteCell(ctx context.Context, ref CellRef, value string) error
}

// SnapshotReader reads the sheet's current portfolio state back as the
// reconciliation baseline, including formula-error marker counts.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context) (domain.PortfolioSnapshot, error)
}

// Sink is the full contract the sync pipeline has with the spreadsheet.
type Sink interface {
	SnapshotReader
	CellWriter
}

// formulaErrorMarkers are the error strings counted during read-back to
// judge sheet health.
var formulaErrorMarkers = []string{"#N/A", "#DIV/0!", "#REF!"}

// CountFormulaErrors counts error markers in a cell value.
func CountFormulaErrors(value string) int {
	n := 0
	for _, marker := range formulaErrorMarkers {
		n += strings.Count(value, marker)
	}
	return n
}

// Layout maps the pipeline's logical fields onto sheet columns and rows.
// Only the ticker, quantity, cost-basis and layer columns (and the three
// cash cells) are ever written; price and value columns are formula-owned.
type Layout struct {
	Tab          string
	TickerCol    string
	QuantityCol  string
	CostBasisCol string
	LayerCol     string

	// Formula-owned columns, read for health checks only.
	PriceCol string
	ValueCol string

	// FirstRow is the first position row below the header.
	FirstRow int

	// Fixed cash/margin cells, written last in every run.
	SettledCashCell     CellRef
	PendingActivityCell CellRef
	MarginDebtCell      CellRef
}

// DefaultLayout matches the tracker sheet this system maintains.
func DefaultLayout() Layout {
	return Layout{
		Tab:                 "Portfolio",
		TickerCol:           "A",
		QuantityCol:         "B",
		CostBasisCol:        "C",
		PriceCol:            "D",
		ValueCol:            "E",
		LayerCol:            "G",
		FirstRow:            2,
		SettledCashCell:     CellRef{Tab: "Cash", Column: "B", Row: 2},
		PendingActivityCell: CellRef{Tab: "Cash", Column: "B", Row: 3},
		MarginDebtCell:      CellRef{Tab: "Cash", Column: "B", Row: 4},
	}
}
