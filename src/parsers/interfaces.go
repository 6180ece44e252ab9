package parsers

import (
	"errors"
	"io"
	"time"

	"github.com/username/flexfolio/src/models"
)

// ErrEmptyCSV is returned for a fully empty input. A header-only file is NOT
// an error; it parses to an empty result. The distinction separates "no file"
// from "no data rows".
var ErrEmptyCSV = errors.New("empty csv")

// ParseContext carries the small amount of context a parser needs beyond the
// file bytes.
type ParseContext struct {
	Broker     string
	SnapshotID string
	AsOfDate   time.Time
}

// TransactionParser turns one statement file into canonical transactions.
type TransactionParser interface {
	Parse(r io.Reader, ctx ParseContext) ([]models.CanonicalTransaction, error)
}

// PositionParser turns a portfolio statement into snapshot positions.
type PositionParser interface {
	ParsePositions(r io.Reader, ctx ParseContext) ([]models.Position, error)
}

// SummaryTotal is one BASE_SUMMARY row extracted from an Actions statement.
type SummaryTotal struct {
	Label    string
	Amount   float64
	Currency string
}

// LedgerRow is one detail row of an Actions statement.
type LedgerRow struct {
	ActivityCode string
	Symbol       string
	ISIN         string
	Date         time.Time
	Description  string
	Amount       *float64
	Currency     string
}

// ActionsReport is the parsed form of an Actions statement: summary totals
// and the per-transaction ledger that share one file.
type ActionsReport struct {
	Totals []SummaryTotal
	Ledger []LedgerRow
}

// FromDate and ToDate bound the ledger window covered by the report.
func (r *ActionsReport) FromDate() (time.Time, bool) {
	var min time.Time
	for _, row := range r.Ledger {
		if min.IsZero() || row.Date.Before(min) {
			min = row.Date
		}
	}
	return min, !min.IsZero()
}

func (r *ActionsReport) ToDate() (time.Time, bool) {
	var max time.Time
	for _, row := range r.Ledger {
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return max, !max.IsZero()
}

// CashSummary is the EUR totals block of a cash report.
type CashSummary struct {
	ReportDate   time.Time
	StartingCash float64
	EndingCash   float64
	Deposits     float64
	Withdrawals  float64
}
