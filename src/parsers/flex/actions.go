package flex

import (
	"io"
	"strings"

	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
)

// corporateActionTypes maps ledger activity codes to stored action types.
// Codes outside this map (DIV, PIL, BUY, ...) are ordinary activity and are
// handled through the transaction pipeline instead.
var corporateActionTypes = map[string]string{
	"SPLIT":  "split",
	"MERGER": "merger",
	"CHANGE": "symbol_change",
}

// ActionsParser handles the mixed Actions statement: BASE_SUMMARY totals and
// per-transaction ledger rows share one file, distinguished by the
// LevelOfDetail column.
type ActionsParser struct{}

func NewActionsParser() *ActionsParser { return &ActionsParser{} }

func (p *ActionsParser) ParseActions(r io.Reader, ctx parsers.ParseContext) (*parsers.ActionsReport, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	report := &parsers.ActionsReport{}
	for i, record := range records {
		level := strings.ToUpper(field(record, idx, "LevelOfDetail"))
		switch level {
		case "BASE_SUMMARY":
			amount, ok := utils.ParseDecimal(field(record, idx, "Amount"))
			if !ok {
				logger.L.Debug("Skipping summary row without amount", "row", i+1)
				continue
			}
			report.Totals = append(report.Totals, parsers.SummaryTotal{
				Label:    field(record, idx, "Description"),
				Amount:   amount.InexactFloat64(),
				Currency: field(record, idx, "CurrencyPrimary"),
			})
		case "DETAIL":
			date, ok := utils.ParseDate(field(record, idx, "Date"))
			if !ok {
				logger.L.Debug("Skipping ledger row with unparseable date", "row", i+1)
				continue
			}
			report.Ledger = append(report.Ledger, parsers.LedgerRow{
				ActivityCode: strings.ToUpper(field(record, idx, "ActivityCode")),
				Symbol:       field(record, idx, "Symbol"),
				ISIN:         field(record, idx, "ISIN"),
				Date:         date,
				Description:  field(record, idx, "Description"),
				Amount:       utils.ParseDecimalPtr(field(record, idx, "Amount")),
				Currency:     field(record, idx, "CurrencyPrimary"),
			})
		default:
			logger.L.Debug("Skipping actions row with unknown level of detail", "row", i+1, "level", level)
		}
	}
	return report, nil
}

// CorporateActions extracts split/merger/symbol-change events from a parsed
// actions report. External ids are derived from the identifying fields so a
// re-imported report yields the same ids.
func CorporateActions(report *parsers.ActionsReport) []models.CorporateAction {
	var out []models.CorporateAction
	for _, row := range report.Ledger {
		actionType, ok := corporateActionTypes[row.ActivityCode]
		if !ok {
			continue
		}
		out = append(out, models.CorporateAction{
			ExternalID: deriveExternalID(Broker, "ca", row.ActivityCode, row.ISIN, row.Symbol,
				row.Date.Format("2006-01-02"), row.Description),
			Broker:     Broker,
			ActionType: actionType,
			ISIN:       row.ISIN,
			Symbol:     row.Symbol,
			Date:       row.Date,
			Details:    row.Description,
		})
	}
	return out
}
