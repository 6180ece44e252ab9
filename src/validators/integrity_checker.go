package validators

import (
	"fmt"

	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/store"
)

// IntegrityChecker reconciles a parsed Actions statement against what the
// store already holds for the same date window. The four reports are
// independent; one failing does not stop the others.
type IntegrityChecker struct {
	store *store.Store
}

func NewIntegrityChecker(s *store.Store) *IntegrityChecker {
	return &IntegrityChecker{store: s}
}

// Check produces the dividend, trade, missing-ISIN and summary reports for
// one actions statement.
func (c *IntegrityChecker) Check(report *parsers.ActionsReport) ([]Report, error) {
	out := make([]Report, 0, 4)

	dividends, err := c.checkDividends(report)
	if err != nil {
		return nil, err
	}
	out = append(out, dividends)

	trades, err := c.checkTrades(report)
	if err != nil {
		return nil, err
	}
	out = append(out, trades)

	missing, err := c.checkMissingISINs(report)
	if err != nil {
		return nil, err
	}
	out = append(out, missing)

	out = append(out, c.summaryTotals(report))
	return out, nil
}

// checkDividends compares the statement's DIV and PIL row count with the
// dividend payments persisted for the same window. Any difference fails;
// there is no tolerance band because every ledger dividend row must have
// been derived.
func (c *IntegrityChecker) checkDividends(report *parsers.ActionsReport) (Report, error) {
	r := Report{Name: "dividend_reconciliation", Status: StatusPass}

	from, okFrom := report.FromDate()
	to, okTo := report.ToDate()
	if !okFrom || !okTo {
		r.Message = "statement has no ledger rows to reconcile"
		return r, nil
	}

	expected := 0
	for _, row := range report.Ledger {
		if row.ActivityCode == "DIV" || row.ActivityCode == "PIL" {
			expected++
		}
	}
	stored, err := c.store.CountDividendsBetween(from, to)
	if err != nil {
		return r, fmt.Errorf("counting stored dividends: %w", err)
	}

	diff := abs(expected - stored)
	r.Message = fmt.Sprintf("statement has %d dividend rows, store has %d (diff %d)", expected, stored, diff)
	if diff != 0 {
		r.Status = StatusFail
	}
	return r, nil
}

// checkTrades compares the statement's BUY/SELL row count with persisted
// stock trades. A diff of 1 passes (settlement-date straddle at the window
// edge), exactly 2 warns, 3 or more fails.
func (c *IntegrityChecker) checkTrades(report *parsers.ActionsReport) (Report, error) {
	r := Report{Name: "trade_reconciliation", Status: StatusPass}

	from, okFrom := report.FromDate()
	to, okTo := report.ToDate()
	if !okFrom || !okTo {
		r.Message = "statement has no ledger rows to reconcile"
		return r, nil
	}

	expected := 0
	for _, row := range report.Ledger {
		if row.ActivityCode == "BUY" || row.ActivityCode == "SELL" {
			expected++
		}
	}
	stored, err := c.store.CountStockTradesBetween(from, to)
	if err != nil {
		return r, fmt.Errorf("counting stored trades: %w", err)
	}

	diff := abs(expected - stored)
	r.Message = fmt.Sprintf("statement has %d trade rows, store has %d (diff %d)", expected, stored, diff)
	switch {
	case diff <= 1:
		r.Status = StatusPass
	case diff == 2:
		r.Status = StatusWarn
	default:
		r.Status = StatusFail
	}
	return r, nil
}

// checkMissingISINs lists ledger ISINs absent from the instruments table.
// Up to 3 missing warns, more than 3 fails.
func (c *IntegrityChecker) checkMissingISINs(report *parsers.ActionsReport) (Report, error) {
	r := Report{Name: "missing_instruments", Status: StatusPass}

	known, err := c.store.KnownISINs()
	if err != nil {
		return r, fmt.Errorf("loading known ISINs: %w", err)
	}

	seen := make(map[string]bool)
	for _, row := range report.Ledger {
		if row.ISIN == "" || known[row.ISIN] || seen[row.ISIN] {
			continue
		}
		seen[row.ISIN] = true
		r.Details = append(r.Details, row.ISIN)
	}

	missing := len(r.Details)
	r.Message = fmt.Sprintf("%d statement ISINs are not in the instruments table", missing)
	switch {
	case missing == 0:
		r.Status = StatusPass
	case missing <= 3:
		r.Status = StatusWarn
	default:
		r.Status = StatusFail
	}
	return r, nil
}

// summaryTotals extracts the BASE_SUMMARY totals for reporting. Always a
// pass; the totals are informational.
func (c *IntegrityChecker) summaryTotals(report *parsers.ActionsReport) Report {
	r := Report{Name: "summary_totals", Status: StatusPass}
	for _, t := range report.Totals {
		r.Details = append(r.Details, fmt.Sprintf("%s: %.2f %s", t.Label, t.Amount, t.Currency))
	}
	r.Message = fmt.Sprintf("%d summary totals extracted", len(report.Totals))
	return r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
