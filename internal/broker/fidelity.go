package broker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finassist/brokersync/internal/domain"
)

// costBasisSynonyms is the ordered list of header substrings accepted as the
// cost-basis column. First match wins; broader terms come last.
var costBasisSynonyms = []string{
	"average cost basis",
	"avg cost basis",
	"cost basis",
	"average cost",
	"avg cost",
	"basis",
}

// sweepTickers are money-market sweep vehicles Fidelity lists as position
// rows. They are the broker's representation of idle cash, not holdings;
// cash is sourced only from the balances file's settled-cash line.
var sweepTickers = map[string]bool{
	"SPAXX": true,
	"FDRXX": true,
	"SPRXX": true,
	"FZFXX": true,
	"FCASH": true,
	"CORE":  true,
}

// balanceLabels maps label substrings in the balances export to setters on
// AccountBalances. Lines matching none of these are ignored; balances files
// carry many lines this system does not use.
var balanceLabels = []struct {
	substr string
	set    func(b *domain.AccountBalances, v decimal.Decimal)
}{
	{"settled cash", func(b *domain.AccountBalances, v decimal.Decimal) { b.SettledCash = v }},
	{"net debit", func(b *domain.AccountBalances, v decimal.Decimal) { b.NetDebit = v }},
	{"account equity percentage", func(b *domain.AccountBalances, v decimal.Decimal) { b.EquityPercentage = v }},
	{"equity percentage", func(b *domain.AccountBalances, v decimal.Decimal) { b.EquityPercentage = v }},
	{"margin interest accrued", func(b *domain.AccountBalances, v decimal.Decimal) { b.MarginInterest = v }},
	{"pending activity", func(b *domain.AccountBalances, v decimal.Decimal) { b.PendingActivity = v }},
	{"total account value", func(b *domain.AccountBalances, v decimal.Decimal) { b.TotalValue = v }},
	{"account value", func(b *domain.AccountBalances, v decimal.Decimal) { b.TotalValue = v }},
}

// FidelityParser parses Fidelity's positions and balances exports.
type FidelityParser struct{}

// NewFidelityParser creates a parser for Fidelity export files.
func NewFidelityParser() *FidelityParser {
	return &FidelityParser{}
}

// ParsePositions reads a Fidelity positions export into canonical positions.
// Sweep-ticker rows are excluded, malformed rows are skipped with a warning,
// and a duplicated symbol is a format-level error.
func (p *FidelityParser) ParsePositions(path string) ([]domain.Position, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	headerIdx, cols, err := resolvePositionColumns(path, rows)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var positions []domain.Position

	for _, row := range rows[headerIdx+1:] {
		if len(row) <= cols.quantity || len(row) <= cols.costBasis {
			continue
		}

		symbol := domain.NormalizeSymbol(cell(row, cols.symbol))
		if symbol == "" || strings.Contains(symbol, " ") {
			// Footer, disclaimer, and pending-activity lines are not positions.
			continue
		}
		if sweepTickers[symbol] {
			continue
		}
		if seen[symbol] {
			return nil, &FormatError{Path: path, Problem: fmt.Sprintf("duplicate symbol %s", symbol)}
		}

		qty, err := domain.ParseBrokerNumber(cell(row, cols.quantity))
		if err != nil {
			slog.Warn("skipping position row with unparseable quantity",
				"file", path, "symbol", symbol, "value", cell(row, cols.quantity))
			continue
		}
		if qty.IsNegative() {
			slog.Warn("skipping position row with negative quantity",
				"file", path, "symbol", symbol, "quantity", qty)
			continue
		}

		basis, err := domain.ParseBrokerNumber(cell(row, cols.costBasis))
		if err != nil {
			slog.Warn("skipping position row with unparseable cost basis",
				"file", path, "symbol", symbol, "value", cell(row, cols.costBasis))
			continue
		}

		pos := domain.Position{
			Symbol:    symbol,
			Quantity:  qty,
			CostBasis: basis,
		}
		if cols.lastPrice >= 0 {
			if v, err := domain.ParseBrokerNumber(cell(row, cols.lastPrice)); err == nil {
				pos.LastPrice = &v
			}
		}
		if cols.currentValue >= 0 {
			if v, err := domain.ParseBrokerNumber(cell(row, cols.currentValue)); err == nil {
				pos.CurrentValue = &v
			}
		}
		if cols.description >= 0 {
			pos.Description = strings.TrimSpace(cell(row, cols.description))
		}

		seen[symbol] = true
		positions = append(positions, pos)
	}

	return positions, nil
}

// ParseBalances reads a Fidelity balances export. The file is label,value
// lines rather than a header+rows table; labels are matched case-insensitively
// by substring and unknown lines are ignored.
func (p *FidelityParser) ParseBalances(path string) (domain.AccountBalances, error) {
	rows, err := readRows(path)
	if err != nil {
		return domain.AccountBalances{}, err
	}

	var balances domain.AccountBalances
	matched := 0

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(row[0]))
		value := firstNonEmpty(row[1:])
		if label == "" || value == "" {
			continue
		}

		for _, bl := range balanceLabels {
			if strings.Contains(label, bl.substr) {
				v, err := domain.ParseBrokerNumber(value)
				if err != nil {
					slog.Warn("skipping balance line with unparseable value",
						"file", path, "label", row[0], "value", value)
					break
				}
				bl.set(&balances, v)
				matched++
				break
			}
		}
	}

	if matched == 0 {
		return domain.AccountBalances{}, &FormatError{Path: path, Missing: []string{"settled cash"}}
	}
	return balances, nil
}

// ValidateFormat is a cheap header heuristic so the caller can reject the
// wrong file before attempting a full parse.
func (p *FidelityParser) ValidateFormat(path string) bool {
	rows, err := readRows(path)
	if err != nil {
		return false
	}
	_, _, err = resolvePositionColumns(path, rows)
	return err == nil
}

// FilePatterns returns the filename globs Fidelity exports match.
func (p *FidelityParser) FilePatterns() FilePatterns {
	return FilePatterns{
		Positions: []string{"Portfolio_Positions_*.csv", "Portfolio_Positions_*.xlsx"},
		Balances:  []string{"*Balances*.csv", "*balances*.csv"},
	}
}

type positionColumns struct {
	symbol       int
	quantity     int
	costBasis    int
	lastPrice    int
	currentValue int
	description  int
}

// resolvePositionColumns locates the header row and maps required columns by
// name. Header resolution is column-name driven, never positional.
func resolvePositionColumns(path string, rows [][]string) (int, positionColumns, error) {
	for i, row := range rows {
		if i > 10 {
			break
		}
		symbol := findColumn(row, "symbol")
		if symbol < 0 {
			continue
		}

		cols := positionColumns{
			symbol:       symbol,
			quantity:     findColumn(row, "quantity"),
			costBasis:    findCostBasisColumn(row),
			lastPrice:    findColumn(row, "last price"),
			currentValue: findColumn(row, "current value"),
			description:  findColumn(row, "description"),
		}

		var missing []string
		if cols.quantity < 0 {
			missing = append(missing, "Quantity")
		}
		if cols.costBasis < 0 {
			missing = append(missing, "Cost Basis")
		}
		if len(missing) > 0 {
			return 0, positionColumns{}, &FormatError{Path: path, Missing: missing}
		}
		return i, cols, nil
	}
	return 0, positionColumns{}, &FormatError{Path: path, Missing: []string{"Symbol", "Quantity", "Cost Basis"}}
}

// findColumn returns the index of the first header cell containing the given
// substring, case-insensitive, or -1.
func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), name) {
			return i
		}
	}
	return -1
}

// findCostBasisColumn tries each synonym in priority order across the whole
// header; the first synonym that matches anywhere wins.
func findCostBasisColumn(header []string) int {
	for _, syn := range costBasisSynonyms {
		if i := findColumn(header, syn); i >= 0 {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func firstNonEmpty(cells []string) string {
	for _, c := range cells {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}
