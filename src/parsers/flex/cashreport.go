package flex

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
)

// CashReportParser extracts the EUR totals from a Flex cash report: the row
// whose LevelOfDetail reads BASE_SUMMARY carries them.
type CashReportParser struct{}

func NewCashReportParser() *CashReportParser { return &CashReportParser{} }

func (p *CashReportParser) ParseCashReport(r io.Reader, ctx parsers.ParseContext) (*parsers.CashSummary, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	for _, record := range records {
		if !strings.EqualFold(field(record, idx, "LevelOfDetail"), "BASE_SUMMARY") {
			continue
		}
		currency := field(record, idx, "CurrencyPrimary")
		if currency != "" && currency != "EUR" && !strings.EqualFold(currency, "BASE_SUMMARY") {
			continue
		}

		summary := &parsers.CashSummary{}
		if d, ok := utils.ParseDate(field(record, idx, "ReportDate")); ok {
			summary.ReportDate = d
		} else {
			summary.ReportDate = ctx.AsOfDate
		}
		if v, ok := utils.ParseDecimal(field(record, idx, "StartingCash")); ok {
			summary.StartingCash = v.InexactFloat64()
		}
		if v, ok := utils.ParseDecimal(field(record, idx, "EndingCash")); ok {
			summary.EndingCash = v.InexactFloat64()
		}
		if v, ok := utils.ParseDecimal(field(record, idx, "Deposits")); ok {
			summary.Deposits = v.InexactFloat64()
		}
		if v, ok := utils.ParseDecimal(field(record, idx, "Withdrawals")); ok {
			summary.Withdrawals = v.InexactFloat64()
		}
		return summary, nil
	}
	return nil, fmt.Errorf("cash report contains no BASE_SUMMARY row")
}
