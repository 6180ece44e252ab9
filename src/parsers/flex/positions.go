package flex

import (
	"fmt"
	"io"

	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
)

// Two historical Position layouts exist. The 17-column one runs
// ClientAccountID, AccountAlias, Model, CurrencyPrimary, FXRateToBase,
// AssetClass, Symbol, Description, ISIN, ListingExchange, Quantity,
// MarkPrice, PositionValue, CostBasisPrice, CostBasisMoney, Side,
// ReportDate; the 18-column one inserted FifoPnlUnrealized after
// CostBasisMoney. The version is detected from the header shape, then
// columns map positionally.
type positionSchema struct {
	currency, assetClass, symbol, description, isin, exchange          int
	quantity, markPrice, positionValue, costBasisPrice, costBasisMoney int
	fifoPnlUnrealized, side, reportDate                                int
}

var positionSchemaV1 = positionSchema{
	currency: 3, assetClass: 5, symbol: 6, description: 7, isin: 8, exchange: 9,
	quantity: 10, markPrice: 11, positionValue: 12, costBasisPrice: 13, costBasisMoney: 14,
	fifoPnlUnrealized: -1, side: 15, reportDate: 16,
}

var positionSchemaV2 = positionSchema{
	currency: 3, assetClass: 5, symbol: 6, description: 7, isin: 8, exchange: 9,
	quantity: 10, markPrice: 11, positionValue: 12, costBasisPrice: 13, costBasisMoney: 14,
	fifoPnlUnrealized: 15, side: 16, reportDate: 17,
}

// PositionsParser maps a Flex portfolio statement to snapshot positions.
type PositionsParser struct{}

func NewPositionsParser() *PositionsParser { return &PositionsParser{} }

func (p *PositionsParser) ParsePositions(r io.Reader, ctx parsers.ParseContext) ([]models.Position, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}

	schema := positionSchemaV1
	for _, h := range header {
		if h == "FifoPnlUnrealized" {
			schema = positionSchemaV2
			break
		}
	}

	col := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var out []models.Position
	for i, record := range records {
		quantity, ok := utils.ParseDecimal(col(record, schema.quantity))
		if !ok {
			logger.L.Debug("Skipping position row without quantity", "row", i+1)
			continue
		}

		date := ctx.AsOfDate
		if d, ok := utils.ParseDate(col(record, schema.reportDate)); ok {
			date = d
		}
		if date.IsZero() {
			return nil, fmt.Errorf("position row %d has no report date and no as-of date was given", i+1)
		}

		pos := models.Position{
			SnapshotID:    ctx.SnapshotID,
			ISIN:          col(record, schema.isin),
			Symbol:        col(record, schema.symbol),
			Description:   col(record, schema.description),
			Date:          date,
			Quantity:      quantity.InexactFloat64(),
			MarkPrice:     utils.ParseDecimalPtr(col(record, schema.markPrice)),
			PositionValue: utils.ParseDecimalPtr(col(record, schema.positionValue)),
			CostBasis:     utils.ParseDecimalPtr(col(record, schema.costBasisMoney)),
			UnrealizedPnl: utils.ParseDecimalPtr(col(record, schema.fifoPnlUnrealized)),
			Currency:      col(record, schema.currency),
			Exchange:      col(record, schema.exchange),
		}
		if pos.ISIN == "" && pos.Symbol == "" {
			logger.L.Debug("Skipping position row without identifier", "row", i+1)
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}
