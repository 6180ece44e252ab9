package flex

import (
	"io"

	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
)

// DividendsParser maps the 11-column Flex Dividend (total-net style) layout.
// A negative NetAmount is a gross-up convention; the canonical amount is the
// absolute value. A nonzero Tax column becomes its own withholding_tax row so
// the cost derivation sees it.
type DividendsParser struct{}

func NewDividendsParser() *DividendsParser { return &DividendsParser{} }

func (p *DividendsParser) Parse(r io.Reader, ctx parsers.ParseContext) ([]models.CanonicalTransaction, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	var out []models.CanonicalTransaction
	for i, record := range records {
		payDate, ok := utils.ParseDate(field(record, idx, "PayDate"))
		if !ok {
			logger.L.Debug("Skipping dividend row with unparseable pay date", "row", i+1)
			continue
		}
		symbol := field(record, idx, "Symbol")
		isin := field(record, idx, "ISIN")
		currency := field(record, idx, "CurrencyPrimary")
		description := field(record, idx, "Description")
		fxRate := utils.ParseDecimalPtr(field(record, idx, "FXRateToBase"))

		net := utils.ParseDecimalPtr(field(record, idx, "NetAmount"))
		if net == nil {
			logger.L.Debug("Skipping dividend row without net amount", "row", i+1, "symbol", symbol)
			continue
		}
		*net = utils.AbsFloat(*net)

		out = append(out, models.CanonicalTransaction{
			Broker:      Broker,
			ExternalID:  deriveExternalID(Broker, "div", isin, symbol, utils.FormatDate(payDate), field(record, idx, "NetAmount")),
			Date:        payDate,
			Type:        models.TxDividend,
			Symbol:      symbol,
			ISIN:        isin,
			CompanyName: description,
			Quantity:    utils.ParseDecimalPtr(field(record, idx, "Quantity")),
			Price:       utils.ParseDecimalPtr(field(record, idx, "GrossRate")),
			Amount:      net,
			Currency:    currency,
			FxRate:      fxRate,
			Description: description,
			Aux:         models.AuxData{Ticker: symbol},
		})

		if tax := utils.ParseDecimalPtr(field(record, idx, "Tax")); tax != nil && *tax != 0 {
			*tax = utils.AbsFloat(*tax)
			out = append(out, models.CanonicalTransaction{
				Broker:      Broker,
				ExternalID:  deriveExternalID(Broker, "divtax", isin, symbol, utils.FormatDate(payDate), field(record, idx, "Tax")),
				Date:        payDate,
				Type:        models.TxWithholdingTax,
				Symbol:      symbol,
				ISIN:        isin,
				CompanyName: description,
				Amount:      tax,
				Currency:    currency,
				FxRate:      fxRate,
				Description: description,
				Aux:         models.AuxData{Ticker: symbol},
			})
		}
	}
	return out, nil
}
