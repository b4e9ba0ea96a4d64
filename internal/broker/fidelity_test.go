package broker

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func asFormatError(err error, target **FormatError) bool {
	return errors.As(err, target)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParsePositions(t *testing.T) {
	csv := "Symbol,Description,Quantity,Last Price,Current Value,Average Cost Basis\n" +
		"TSLA,TESLA INC,74,$421.10,\"$31,161.40\",$234.19\n" +
		"MSTY,\"YIELDMAX MSTR OPTION, INCOME ETF\",87.9,$22.15,\"$1,947.09\",$11.94\n" +
		"SPAXX,FIDELITY GOVT MONEY MARKET,5000,$1.00,\"$5,000.00\",$1.00\n" +
		"Pending Activity,,,,\"$120.00\",\n"

	path := writeFile(t, "Portfolio_Positions_Jan-15-2026.csv", csv)
	p := NewFidelityParser()

	positions, err := p.ParsePositions(path)
	if err != nil {
		t.Fatalf("ParsePositions: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2 (sweep and pending rows excluded)", len(positions))
	}

	tsla := positions[0]
	if tsla.Symbol != "TSLA" {
		t.Errorf("Symbol = %q, want TSLA", tsla.Symbol)
	}
	if !tsla.Quantity.Equal(decimal.NewFromInt(74)) {
		t.Errorf("Quantity = %s, want 74", tsla.Quantity)
	}
	if !tsla.CostBasis.Equal(decimal.RequireFromString("234.19")) {
		t.Errorf("CostBasis = %s, want 234.19", tsla.CostBasis)
	}
	if tsla.CurrentValue == nil || !tsla.CurrentValue.Equal(decimal.RequireFromString("31161.40")) {
		t.Errorf("CurrentValue = %v, want 31161.40 (quoted comma field)", tsla.CurrentValue)
	}

	msty := positions[1]
	if !msty.Quantity.Equal(decimal.RequireFromString("87.9")) {
		t.Errorf("Quantity = %s, want 87.9", msty.Quantity)
	}
	if msty.Description != "YIELDMAX MSTR OPTION, INCOME ETF" {
		t.Errorf("Description = %q, quoted comma not preserved", msty.Description)
	}

	for _, pos := range positions {
		if sweepTickers[pos.Symbol] {
			t.Errorf("sweep ticker %s leaked into positions", pos.Symbol)
		}
	}
}

func TestParsePositionsRoundTripStable(t *testing.T) {
	csv := "Symbol,Quantity,Cost Basis\nAAPL,10,150.00\nVTI,3.25,220.50\n"
	path := writeFile(t, "positions.csv", csv)
	p := NewFidelityParser()

	first, err := p.ParsePositions(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ParsePositions(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated parse differs:\n%v\n%v", first, second)
	}
}

func TestCostBasisSynonyms(t *testing.T) {
	for _, syn := range costBasisSynonyms {
		t.Run(syn, func(t *testing.T) {
			path := writeFile(t, "positions.csv", "Symbol,Quantity,"+syn+"\nAAPL,10,150.00\n")
			positions, err := NewFidelityParser().ParsePositions(path)
			if err != nil {
				t.Fatalf("header %q not resolved: %v", syn, err)
			}
			if len(positions) != 1 || !positions[0].CostBasis.Equal(decimal.NewFromInt(150)) {
				t.Errorf("cost basis not read from column %q", syn)
			}
		})
	}
}

func TestCostBasisSynonymPriority(t *testing.T) {
	// Both "Average Cost Basis" and "Basis" present; the earlier synonym wins.
	csv := "Symbol,Quantity,Tax Basis,Average Cost Basis\nAAPL,10,999.99,150.00\n"
	path := writeFile(t, "positions.csv", csv)

	positions, err := NewFidelityParser().ParsePositions(path)
	if err != nil {
		t.Fatal(err)
	}
	if !positions[0].CostBasis.Equal(decimal.NewFromInt(150)) {
		t.Errorf("CostBasis = %s, want 150 from the higher-priority column", positions[0].CostBasis)
	}
}

func TestParsePositionsMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no symbol", "Name,Quantity,Cost Basis"},
		{"no quantity", "Symbol,Shares Held,Cost Basis"},
		{"no cost basis", "Symbol,Quantity,Purchase Info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "positions.csv", tt.header+"\nAAPL,10,150\n")
			_, err := NewFidelityParser().ParsePositions(path)
			var fe *FormatError
			if !asFormatError(err, &fe) {
				t.Fatalf("err = %v, want FormatError", err)
			}
		})
	}
}

func TestParsePositionsSkipsMalformedRows(t *testing.T) {
	csv := "Symbol,Quantity,Cost Basis\n" +
		"AAPL,ten,150.00\n" +
		"NVDA,12,n/a\n" +
		"SHRT,-5,10.00\n" +
		"VTI,3,220.50\n"
	path := writeFile(t, "positions.csv", csv)

	positions, err := NewFidelityParser().ParsePositions(path)
	if err != nil {
		t.Fatalf("malformed rows must not abort the import: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "VTI" {
		t.Errorf("positions = %v, want only VTI", positions)
	}
}

func TestParsePositionsDuplicateSymbol(t *testing.T) {
	csv := "Symbol,Quantity,Cost Basis\nAAPL,10,150.00\nAAPL,12,151.00\n"
	path := writeFile(t, "positions.csv", csv)

	_, err := NewFidelityParser().ParsePositions(path)
	if err == nil {
		t.Fatal("duplicate symbol rows must be a parse error")
	}
	var fe *FormatError
	if !asFormatError(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if !strings.Contains(fe.Problem, "AAPL") {
		t.Errorf("Problem = %q, want the duplicated symbol named", fe.Problem)
	}
}

func TestParsePositionsXLSX(t *testing.T) {
	rows := [][]any{
		{"Symbol", "Description", "Quantity", "Average Cost Basis"},
		{"TSLA", "TESLA INC", "74", "$234.19"},
		{"SPAXX", "FIDELITY GOVT MONEY MARKET", "5000", "$1.00"},
		{"MSTY", "YIELDMAX MSTR OPTION, INCOME ETF", "87.9", "$11.94"},
	}

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	xlsxPath := filepath.Join(t.TempDir(), "Portfolio_Positions_Feb-01-2026.xlsx")
	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatal(err)
	}

	csvPath := writeFile(t, "Portfolio_Positions_Feb-01-2026.csv",
		"Symbol,Description,Quantity,Average Cost Basis\n"+
			"TSLA,TESLA INC,74,$234.19\n"+
			"SPAXX,FIDELITY GOVT MONEY MARKET,5000,$1.00\n"+
			"MSTY,\"YIELDMAX MSTR OPTION, INCOME ETF\",87.9,$11.94\n")

	p := NewFidelityParser()
	fromXLSX, err := p.ParsePositions(xlsxPath)
	if err != nil {
		t.Fatalf("ParsePositions(xlsx): %v", err)
	}
	fromCSV, err := p.ParsePositions(csvPath)
	if err != nil {
		t.Fatalf("ParsePositions(csv): %v", err)
	}

	if len(fromXLSX) != 2 {
		t.Fatalf("got %d positions from xlsx, want 2 (sweep excluded)", len(fromXLSX))
	}
	if !reflect.DeepEqual(fromXLSX, fromCSV) {
		t.Errorf("xlsx parse = %v\ncsv parse = %v\nwant identical", fromXLSX, fromCSV)
	}
}

func TestParseBalances(t *testing.T) {
	csv := "Account Summary,\n" +
		"Total account value,\"$45,982.11\"\n" +
		"Settled cash,\"$1,204.50\"\n" +
		"Net debit,($7822.71)\n" +
		"Account equity percentage,96.58%\n" +
		"Margin interest accrued,$12.40\n" +
		"Commissions YTD,$0.00\n"
	path := writeFile(t, "balances.csv", csv)

	b, err := NewFidelityParser().ParseBalances(path)
	if err != nil {
		t.Fatalf("ParseBalances: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"SettledCash", b.SettledCash, "1204.50"},
		{"NetDebit", b.NetDebit, "-7822.71"},
		{"EquityPercentage", b.EquityPercentage, "96.58"},
		{"MarginInterest", b.MarginInterest, "12.40"},
		{"TotalValue", b.TotalValue, "45982.11"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestParseBalancesNoKnownLabels(t *testing.T) {
	path := writeFile(t, "balances.csv", "Something,1\nElse,2\n")
	_, err := NewFidelityParser().ParseBalances(path)
	var fe *FormatError
	if !asFormatError(err, &fe) {
		t.Fatalf("err = %v, want FormatError", err)
	}
}

func TestValidateFormat(t *testing.T) {
	good := writeFile(t, "good.csv", "Symbol,Quantity,Cost Basis\n")
	bad := writeFile(t, "bad.csv", "Date,Amount,Balance\n")

	p := NewFidelityParser()
	if !p.ValidateFormat(good) {
		t.Error("valid positions header rejected")
	}
	if p.ValidateFormat(bad) {
		t.Error("transaction-style header accepted")
	}
}
