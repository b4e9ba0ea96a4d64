// Package layer assigns portfolio-bucket labels to tickers for the sheet's
// category column. Classification is a pure lookup over curated membership
// lists plus a keyword fallback; unknown tickers get an explicit
// unclassified label so the executor can surface them for manual labeling.
package layer

import "strings"

// Label is a portfolio layer bucket.
type Label string

const (
	Growth       Label = "Layer 1 - Growth"
	Dividend     Label = "Layer 2 - Dividend"
	Hedge        Label = "Layer 3 - Hedge"
	Index        Label = "Layer 4 - Index"
	Unclassified Label = "Unclassified"
)

// membership holds the curated ticker lists per layer. Checked in order;
// a ticker in multiple lists takes the first.
var membership = []struct {
	label   Label
	tickers map[string]bool
}{
	{Dividend, set("MSTY", "JEPI", "JEPQ", "SCHD", "QYLD", "XYLD", "NLY", "O", "TLTW", "YMAX")},
	{Hedge, set("GLD", "IAU", "SLV", "TLT", "SGOV", "BIL", "SH", "VIXY")},
	{Index, set("VTI", "VOO", "SPY", "QQQ", "IVV", "VT", "VXUS", "SCHB")},
	{Growth, set("TSLA", "NVDA", "MSTR", "PLTR", "AAPL", "MSFT", "AMZN", "GOOGL", "META", "AMD")},
}

// dividendKeywords trigger the fallback heuristic against the ticker and its
// export description.
var dividendKeywords = []string{"yield", "income"}

// Classify returns the layer label for a ticker. The description, when the
// export provides one, feeds the keyword fallback.
func Classify(symbol, description string) Label {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, m := range membership {
		if m.tickers[symbol] {
			return m.label
		}
	}

	haystack := strings.ToLower(symbol + " " + description)
	for _, kw := range dividendKeywords {
		if strings.Contains(haystack, kw) {
			return Dividend
		}
	}

	return Unclassified
}

func set(tickers ...string) map[string]bool {
	m := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		m[t] = true
	}
	return m
}
