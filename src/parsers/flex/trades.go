package flex

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
)

// TradesParser maps the 14-column Flex Trades layout to canonical buy/sell
// transactions. FX conversion legs (symbol like "EUR.HKD") become fx_buy /
// fx_sell with no ISIN; they must never be matched against an instrument.
type TradesParser struct{}

func NewTradesParser() *TradesParser { return &TradesParser{} }

func (p *TradesParser) Parse(r io.Reader, ctx parsers.ParseContext) ([]models.CanonicalTransaction, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	var out []models.CanonicalTransaction
	for i, record := range records {
		tradeDate, ok := utils.ParseDate(field(record, idx, "TradeDate"))
		if !ok {
			logger.L.Debug("Skipping trade row with unparseable date", "row", i+1)
			continue
		}
		symbol := field(record, idx, "Symbol")
		buySell := strings.ToUpper(field(record, idx, "Buy/Sell"))

		var txType models.TransactionType
		isin := field(record, idx, "ISIN")
		switch {
		case isFxPair(symbol) && buySell == "SELL":
			txType = models.TxFxSell
			isin = ""
		case isFxPair(symbol):
			txType = models.TxFxBuy
			isin = ""
		case buySell == "SELL":
			txType = models.TxSell
		case buySell == "BUY":
			txType = models.TxBuy
		default:
			logger.L.Debug("Skipping trade row with unknown side", "row", i+1, "buySell", buySell)
			continue
		}

		quantity := utils.ParseDecimalPtr(field(record, idx, "Quantity"))
		price := utils.ParseDecimalPtr(field(record, idx, "TradePrice"))
		if quantity == nil {
			logger.L.Debug("Skipping trade row without quantity", "row", i+1, "symbol", symbol)
			continue
		}
		*quantity = utils.AbsFloat(*quantity)

		commission := utils.ParseDecimalPtr(field(record, idx, "IBCommission"))
		if commission != nil {
			*commission = utils.AbsFloat(*commission)
		}

		externalID := field(record, idx, "TransactionID")
		if externalID == "" {
			externalID = deriveExternalID(Broker, utils.FormatDate(tradeDate), symbol,
				field(record, idx, "Quantity"), field(record, idx, "TradePrice"), fmt.Sprintf("%d", i))
		} else {
			externalID = Broker + "-" + externalID
		}

		out = append(out, models.CanonicalTransaction{
			Broker:      Broker,
			ExternalID:  externalID,
			Date:        tradeDate,
			Type:        txType,
			Symbol:      symbol,
			ISIN:        isin,
			CompanyName: field(record, idx, "Description"),
			Quantity:    quantity,
			Price:       price,
			Amount:      utils.ParseDecimalPtr(field(record, idx, "TradeMoney")),
			Currency:    field(record, idx, "CurrencyPrimary"),
			Commission:  commission,
			RealizedPnl: utils.ParseDecimalPtr(field(record, idx, "FifoPnlRealized")),
			FxRate:      utils.ParseDecimalPtr(field(record, idx, "FXRateToBase")),
			Description: field(record, idx, "Description"),
			Aux: models.AuxData{
				Exchange: field(record, idx, "Exchange"),
				TradeID:  field(record, idx, "TransactionID"),
				Ticker:   symbol,
			},
		})
	}
	return out, nil
}
