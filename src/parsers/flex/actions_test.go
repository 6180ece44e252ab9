package flex

import (
	"strings"
	"testing"
	"time"

	"github.com/username/flexfolio/src/parsers"
)

const actionsHeader = "CurrencyPrimary,ActivityCode,LevelOfDetail,Symbol,ISIN,Date,Description,Amount\n"

func TestActionsParserSplitsSummaryAndLedger(t *testing.T) {
	data := actionsHeader +
		"EUR,,BASE_SUMMARY,,,,Dividends,120.50\n" +
		"EUR,,BASE_SUMMARY,,,,Commissions,-14.20\n" +
		"USD,DIV,DETAIL,AAPL,US0378331005,2024-05-16,Cash Dividend,10.20\n" +
		"USD,BUY,DETAIL,AAPL,US0378331005,2024-05-02,Buy 10 AAPL,-1705\n"

	report, err := NewActionsParser().ParseActions(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("ParseActions: %v", err)
	}
	if len(report.Totals) != 2 {
		t.Fatalf("got %d totals, want 2", len(report.Totals))
	}
	if report.Totals[0].Label != "Dividends" || report.Totals[0].Amount != 120.50 {
		t.Errorf("first total = %+v", report.Totals[0])
	}
	if len(report.Ledger) != 2 {
		t.Fatalf("got %d ledger rows, want 2", len(report.Ledger))
	}
	if report.Ledger[0].ActivityCode != "DIV" {
		t.Errorf("activity code = %q", report.Ledger[0].ActivityCode)
	}

	from, ok := report.FromDate()
	if !ok || !from.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from date = %v", from)
	}
	to, ok := report.ToDate()
	if !ok || !to.Equal(time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to date = %v", to)
	}
}

func TestCorporateActions(t *testing.T) {
	data := actionsHeader +
		"USD,SPLIT,DETAIL,AAPL,US0378331005,2024-06-10,AAPL 4 for 1 split,0\n" +
		"USD,DIV,DETAIL,AAPL,US0378331005,2024-05-16,Cash Dividend,10.20\n" +
		"EUR,CHANGE,DETAIL,NDA-FI,FI0009000681,2024-07-01,Ticker change,0\n"

	report, err := NewActionsParser().ParseActions(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("ParseActions: %v", err)
	}

	actions := CorporateActions(report)
	if len(actions) != 2 {
		t.Fatalf("got %d corporate actions, want 2 (DIV row is not one)", len(actions))
	}
	if actions[0].ActionType != "split" || actions[1].ActionType != "symbol_change" {
		t.Errorf("action types = %s, %s", actions[0].ActionType, actions[1].ActionType)
	}

	again := CorporateActions(report)
	if actions[0].ExternalID != again[0].ExternalID {
		t.Error("corporate action external ids must be deterministic")
	}
}

func TestCashReportParser(t *testing.T) {
	data := "CurrencyPrimary,LevelOfDetail,ReportDate,StartingCash,EndingCash,Deposits,Withdrawals\n" +
		"EUR,BASE_SUMMARY,2024-06-30,1500.25,2200.75,1000,-300\n" +
		"USD,Currency,2024-06-30,100,120,0,0\n"

	summary, err := NewCashReportParser().ParseCashReport(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("ParseCashReport: %v", err)
	}
	if summary.StartingCash != 1500.25 || summary.EndingCash != 2200.75 {
		t.Errorf("cash totals = %v / %v", summary.StartingCash, summary.EndingCash)
	}
	if !summary.ReportDate.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("report date = %v", summary.ReportDate)
	}
}

func TestCashReportParserNoSummaryRow(t *testing.T) {
	data := "CurrencyPrimary,LevelOfDetail,ReportDate,StartingCash,EndingCash\n" +
		"USD,Currency,2024-06-30,100,120\n"

	if _, err := NewCashReportParser().ParseCashReport(strings.NewReader(data), parsers.ParseContext{}); err == nil {
		t.Fatal("expected an error when no BASE_SUMMARY row exists")
	}
}
