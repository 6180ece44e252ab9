package parsers

import (
	"encoding/csv"
	"strings"
)

// StatementType is the router's classification of an unlabeled export.
type StatementType string

const (
	TypePortfolio         StatementType = "portfolio"
	TypeDividends         StatementType = "dividends"
	TypeTrades            StatementType = "trades"
	TypeActions           StatementType = "actions"
	TypeCashReport        StatementType = "cash_report"
	TypeActivityStatement StatementType = "activity_statement"
	TypeUnknown           StatementType = "unknown"
)

// signature is a set of column names that identify a statement type. The
// list is ordered most specific first: an Actions export carries both a
// summary-style marker column and ledger-style columns, so it must be tested
// before the plainer layouts whose tokens it shares.
type signature struct {
	stype  StatementType
	tokens []string
}

var signatures = []signature{
	{TypeActivityStatement, []string{"Field Name", "Field Value"}},
	{TypeCashReport, []string{"StartingCash", "EndingCash"}},
	{TypeActions, []string{"ActivityCode", "LevelOfDetail"}},
	{TypePortfolio, []string{"MarkPrice", "PositionValue"}},
	{TypeDividends, []string{"GrossRate", "NetAmount"}},
	{TypeTrades, []string{"TradePrice", "Buy/Sell"}},
	// Nordnet's tab-separated export is a unified transaction list.
	{TypeTrades, []string{"Tapahtumatyyppi", "Kirjauspäivä"}},
}

// Classify inspects the header line of an export and returns its statement
// type. Empty or unrecognized input classifies as unknown, never an error.
func Classify(data string) StatementType {
	header := headerTokens(data)
	if len(header) == 0 {
		return TypeUnknown
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	for _, sig := range signatures {
		matched := true
		for _, tok := range sig.tokens {
			if !have[tok] {
				matched = false
				break
			}
		}
		if matched {
			return sig.stype
		}
	}
	return TypeUnknown
}

// StripDuplicateHeaders removes any line past the first that exactly repeats
// the header. Multi-section broker exports sometimes concatenate sections
// with headers repeated mid-file. Output is bit-identical to the input when
// there is nothing to strip.
func StripDuplicateHeaders(data string) string {
	if data == "" {
		return data
	}
	lines := strings.Split(data, "\n")
	if len(lines) < 2 {
		return data
	}
	header := strings.TrimRight(lines[0], "\r")

	removed := false
	kept := lines[:1]
	for _, line := range lines[1:] {
		if strings.TrimRight(line, "\r") == header {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return data
	}
	return strings.Join(kept, "\n")
}

func headerTokens(data string) []string {
	firstLine := data
	if idx := strings.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	firstLine = strings.TrimRight(firstLine, "\r")
	if strings.TrimSpace(firstLine) == "" {
		return nil
	}

	reader := csv.NewReader(strings.NewReader(firstLine))
	if strings.Contains(firstLine, "\t") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	record, err := reader.Read()
	if err != nil {
		return nil
	}
	return record
}
