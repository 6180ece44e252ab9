package validators

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/store"
)

func actionsReportWith(divRows, tradeRows int, isins []string) *parsers.ActionsReport {
	report := &parsers.ActionsReport{}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < divRows; i++ {
		report.Ledger = append(report.Ledger, parsers.LedgerRow{
			ActivityCode: "DIV", Date: day.AddDate(0, 0, i), ISIN: "US0378331005",
		})
	}
	for i := 0; i < tradeRows; i++ {
		report.Ledger = append(report.Ledger, parsers.LedgerRow{
			ActivityCode: "BUY", Date: day.AddDate(0, 0, i), ISIN: "US0378331005",
		})
	}
	for i, isin := range isins {
		report.Ledger = append(report.Ledger, parsers.LedgerRow{
			ActivityCode: "DIV", Date: day.AddDate(0, 0, i), ISIN: isin,
		})
	}
	return report
}

func findReport(t *testing.T, reports []Report, name string) Report {
	t.Helper()
	for _, r := range reports {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("report %q not found", name)
	return Report{}
}

func insertStockTrades(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		out := s.InsertTrade(models.Trade{
			ExternalID: fmt.Sprintf("trade-%d", i),
			Broker:     "ibkr",
			Type:       models.TxBuy,
			ISIN:       "US0378331005",
			Symbol:     "AAPL",
			TradeDate:  date(2024, 5, 1+i),
			Quantity:   1,
			Currency:   "USD",
		})
		require.Equal(t, store.StatusInserted, out.Status)
	}
}

func TestTradeReconciliationBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		storedCount int
		want        Status
	}{
		{"diff of one passes", 4, StatusPass},
		{"diff of two warns", 3, StatusWarn},
		{"diff of three fails", 2, StatusFail},
		{"exact match passes", 5, StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.EnsureInstrument("US0378331005", "AAPL", "USD", "", "")
			require.NoError(t, err)
			insertStockTrades(t, s, tt.storedCount)

			reports, err := NewIntegrityChecker(s).Check(actionsReportWith(0, 5, nil))
			require.NoError(t, err)
			r := findReport(t, reports, "trade_reconciliation")
			require.Equal(t, tt.want, r.Status, r.Message)
		})
	}
}

func TestDividendReconciliation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureInstrument("US0378331005", "AAPL", "USD", "", "")
	require.NoError(t, err)

	out := s.InsertDividendPayment(models.DividendPayment{
		ExternalID: "div-1",
		Broker:     "ibkr",
		ISIN:       "US0378331005",
		PayDate:    date(2024, 5, 1),
		AmountType: models.AmountTotalNet,
		Amount:     10,
		Currency:   "USD",
	})
	require.Equal(t, store.StatusInserted, out.Status)

	reports, err := NewIntegrityChecker(s).Check(actionsReportWith(1, 0, nil))
	require.NoError(t, err)
	require.Equal(t, StatusPass, findReport(t, reports, "dividend_reconciliation").Status)

	// One statement row more than persisted fails outright.
	reports, err = NewIntegrityChecker(s).Check(actionsReportWith(2, 0, nil))
	require.NoError(t, err)
	require.Equal(t, StatusFail, findReport(t, reports, "dividend_reconciliation").Status)
}

func TestMissingISINBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		missing []string
		want    Status
	}{
		{"none missing passes", nil, StatusPass},
		{"one missing warns", []string{"FI0000000001"}, StatusWarn},
		{"three missing warns", []string{"FI0000000001", "FI0000000002", "FI0000000003"}, StatusWarn},
		{"four missing fails", []string{"FI0000000001", "FI0000000002", "FI0000000003", "FI0000000004"}, StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.EnsureInstrument("US0378331005", "AAPL", "USD", "", "")
			require.NoError(t, err)

			reports, err := NewIntegrityChecker(s).Check(actionsReportWith(0, 0, tt.missing))
			require.NoError(t, err)
			r := findReport(t, reports, "missing_instruments")
			require.Equal(t, tt.want, r.Status, r.Message)
			require.Len(t, r.Details, len(tt.missing))
		})
	}
}

func TestSummaryTotalsAlwaysPass(t *testing.T) {
	s := newTestStore(t)
	report := &parsers.ActionsReport{
		Totals: []parsers.SummaryTotal{{Label: "Dividends", Amount: 120.5, Currency: "EUR"}},
	}
	reports, err := NewIntegrityChecker(s).Check(report)
	require.NoError(t, err)
	r := findReport(t, reports, "summary_totals")
	require.Equal(t, StatusPass, r.Status)
	require.Len(t, r.Details, 1)
}
