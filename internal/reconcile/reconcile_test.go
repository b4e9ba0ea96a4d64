package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finassist/brokersync/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pos(symbol, qty, basis string) domain.Position {
	return domain.Position{Symbol: symbol, Quantity: dec(qty), CostBasis: dec(basis)}
}

func row(symbol, qty, basis string, rowNum int) domain.SheetRow {
	return domain.SheetRow{Symbol: symbol, Quantity: dec(qty), CostBasis: dec(basis), Row: rowNum}
}

func byKind(set domain.ChangeSet) map[domain.ChangeKind][]domain.ChangeRecord {
	out := map[domain.ChangeKind][]domain.ChangeRecord{}
	for _, r := range set.Records {
		out[r.Kind] = append(out[r.Kind], r)
	}
	return out
}

func TestReconcileClassifiesKinds(t *testing.T) {
	data := domain.ParsedPortfolioData{
		Positions: []domain.Position{
			pos("TSLA", "80", "234.19"),
			pos("MSTY", "87.9", "11.94"),
		},
	}
	baseline := domain.PortfolioSnapshot{
		Rows: []domain.SheetRow{
			row("TSLA", "74", "234.19", 5),
			row("NVDA", "12", "455.00", 6),
		},
	}

	set := Reconcile(data, baseline)
	kinds := byKind(set)

	if len(kinds[domain.ChangeExisting]) != 1 || kinds[domain.ChangeExisting][0].Symbol != "TSLA" {
		t.Errorf("EXISTING = %v, want TSLA", kinds[domain.ChangeExisting])
	}
	if len(kinds[domain.ChangeNew]) != 1 || kinds[domain.ChangeNew][0].Symbol != "MSTY" {
		t.Errorf("NEW = %v, want MSTY", kinds[domain.ChangeNew])
	}
	if len(kinds[domain.ChangeMissing]) != 1 || kinds[domain.ChangeMissing][0].Symbol != "NVDA" {
		t.Errorf("MISSING = %v, want NVDA", kinds[domain.ChangeMissing])
	}

	tsla := kinds[domain.ChangeExisting][0]
	if tsla.QuantityPct == nil {
		t.Fatal("EXISTING ticker must carry a quantity pct change")
	}
	want := dec("6").Div(dec("74"))
	if !tsla.QuantityPct.Equal(want) {
		t.Errorf("QuantityPct = %s, want %s", tsla.QuantityPct, want)
	}
	if tsla.SheetRow != 5 {
		t.Errorf("SheetRow = %d, want baseline row 5", tsla.SheetRow)
	}
}

func TestReconcileZeroBaselineQuantityIsNew(t *testing.T) {
	data := domain.ParsedPortfolioData{Positions: []domain.Position{pos("AAPL", "10", "150")}}
	baseline := domain.PortfolioSnapshot{Rows: []domain.SheetRow{row("AAPL", "0", "0", 7)}}

	set := Reconcile(data, baseline)
	if set.Records[0].Kind != domain.ChangeNew {
		t.Errorf("Kind = %s, want NEW when prior quantity is zero", set.Records[0].Kind)
	}
	if set.Records[0].QuantityPct != nil {
		t.Error("no percentage should be computed against a zero denominator")
	}
	if set.Records[0].SheetRow != 7 {
		t.Errorf("SheetRow = %d, want the existing row preserved", set.Records[0].SheetRow)
	}
}

func TestReconcileEmptyBaseline(t *testing.T) {
	data := domain.ParsedPortfolioData{
		Positions: []domain.Position{pos("AAPL", "10", "150"), pos("VTI", "3", "220")},
	}

	set := Reconcile(data, domain.PortfolioSnapshot{})
	if !set.BaselineEmpty {
		t.Error("BaselineEmpty should be set on first-ever sync")
	}
	for _, r := range set.Records {
		if r.Kind != domain.ChangeNew {
			t.Errorf("%s: Kind = %s, want NEW on empty baseline", r.Symbol, r.Kind)
		}
	}
	if len(set.Missing()) != 0 {
		t.Error("no MISSING possible against an empty baseline")
	}
}

func TestReconcileEmptyExport(t *testing.T) {
	baseline := domain.PortfolioSnapshot{
		Rows: []domain.SheetRow{row("AAPL", "10", "150", 5), row("VTI", "3", "220", 6)},
	}

	set := Reconcile(domain.ParsedPortfolioData{}, baseline)
	if got := len(set.Missing()); got != 2 {
		t.Errorf("Missing = %d, want every baseline ticker (possible liquidation)", got)
	}
}

func TestReconcileCashAndMargin(t *testing.T) {
	data := domain.ParsedPortfolioData{
		Balances: domain.AccountBalances{
			SettledCash:      dec("1204.50"),
			NetDebit:         dec("-7822.71"),
			EquityPercentage: dec("96.58"),
		},
	}
	baseline := domain.PortfolioSnapshot{
		SettledCash: dec("1250.00"),
		MarginDebt:  dec("5000.00"),
	}

	set := Reconcile(data, baseline)
	if !set.Cash.CashDiscrepancy.Equal(dec("45.50")) {
		t.Errorf("CashDiscrepancy = %s, want 45.50", set.Cash.CashDiscrepancy)
	}
	if !set.Cash.NewMarginDebt.Equal(dec("7822.71")) {
		t.Errorf("NewMarginDebt = %s, want 7822.71", set.Cash.NewMarginDebt)
	}
	if !set.Cash.MarginDelta().Equal(dec("2822.71")) {
		t.Errorf("MarginDelta = %s, want 2822.71", set.Cash.MarginDelta())
	}
}

func TestReconcileMarginNoiseAtFullEquity(t *testing.T) {
	data := domain.ParsedPortfolioData{
		Balances: domain.AccountBalances{
			NetDebit:         dec("-3.50"),
			EquityPercentage: dec("100"),
		},
	}

	set := Reconcile(data, domain.PortfolioSnapshot{})
	if !set.Cash.NewMarginDebt.IsZero() {
		t.Errorf("NewMarginDebt = %s, want 0 at 100%% equity", set.Cash.NewMarginDebt)
	}
}
