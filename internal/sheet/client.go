package sheet

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/finassist/brokersync/internal/domain"
)

// Client implements Sink against the Google Sheets API.
type Client struct {
	spreadsheetID string
	svc           *sheets.Service
	layout        Layout
}

// NewClient creates a Client authenticated with a service account JSON.
func NewClient(ctx context.Context, spreadsheetID, credentialsJSON string, layout Layout) (*Client, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Client{spreadsheetID: spreadsheetID, svc: svc, layout: layout}, nil
}

// ReadSnapshot reads the position block and cash cells back from the sheet.
// Formula-error markers in the price and value columns are counted for the
// sheet-health rule.
func (c *Client) ReadSnapshot(ctx context.Context) (domain.PortfolioSnapshot, error) {
	l := c.layout
	gridRange := fmt.Sprintf("%s!%s%d:%s", l.Tab, l.TickerCol, l.FirstRow, l.ValueCol)

	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(
			gridRange,
			l.SettledCashCell.Range(),
			l.MarginDebtCell.Range(),
		).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("reading sheet snapshot: %w", err)
	}
	if len(resp.ValueRanges) != 3 {
		return domain.PortfolioSnapshot{}, fmt.Errorf("unexpected snapshot response: %d ranges", len(resp.ValueRanges))
	}

	snap := snapshotFromGrid(l, resp.ValueRanges[0].Values)
	snap.SettledCash = domain.SafeParse(rangeString(resp.ValueRanges[1]))
	snap.MarginDebt = domain.SafeParse(rangeString(resp.ValueRanges[2]))

	return snap, nil
}

// WriteCell sets exactly one cell to a non-empty value.
func (c *Client) WriteCell(ctx context.Context, ref CellRef, value string) error {
	if value == "" {
		return fmt.Errorf("%s: %w", ref, ErrEmptyValue)
	}

	_, err := c.svc.Spreadsheets.Values.Update(
		c.spreadsheetID,
		ref.Range(),
		&sheets.ValueRange{Values: [][]any{{value}}},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", ref, err)
	}
	return nil
}

// snapshotFromGrid turns the raw position grid into a snapshot. Error-marker
// counting is limited to the formula-owned price and value columns; the
// student-written ticker, quantity, and basis columns are not the sheet's
// responsibility.
func snapshotFromGrid(l Layout, grid [][]any) domain.PortfolioSnapshot {
	snap := domain.PortfolioSnapshot{NextRow: l.FirstRow}
	priceIdx := columnOffset(l.TickerCol, l.PriceCol)
	valueIdx := columnOffset(l.TickerCol, l.ValueCol)

	for i, row := range grid {
		rowNum := l.FirstRow + i
		symbol := domain.NormalizeSymbol(cellString(row, 0))
		if symbol == "" {
			continue
		}
		snap.Rows = append(snap.Rows, domain.SheetRow{
			Symbol:    symbol,
			Quantity:  domain.SafeParse(cellString(row, 1)),
			CostBasis: domain.SafeParse(cellString(row, 2)),
			Row:       rowNum,
		})
		snap.FormulaErrors += CountFormulaErrors(cellString(row, priceIdx))
		snap.FormulaErrors += CountFormulaErrors(cellString(row, valueIdx))
		snap.NextRow = rowNum + 1
	}
	return snap
}

// columnOffset is the cell index of column to within a row read starting at
// column from. Layout columns are single letters.
func columnOffset(from, to string) int {
	return int(to[0] - from[0])
}

func cellString(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return fmt.Sprint(row[i])
}

func rangeString(vr *sheets.ValueRange) string {
	if vr == nil || len(vr.Values) == 0 || len(vr.Values[0]) == 0 {
		return ""
	}
	return fmt.Sprint(vr.Values[0][0])
}
