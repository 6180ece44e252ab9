package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/reference"
	"github.com/username/flexfolio/src/store"
)

// soldPositionProcessorImpl derives a closed round-trip from every sell
// transaction. Lot matching is FIFO-by-earliest: a sale is always paired with
// the earliest still-recorded buy, not true per-lot FIFO accounting.
type soldPositionProcessorImpl struct {
	store  *store.Store
	tables *reference.Tables
}

// NewSoldPositionProcessor creates the sold-position derivation pass.
func NewSoldPositionProcessor(s *store.Store, tables *reference.Tables) DerivedRecordProcessor {
	return &soldPositionProcessorImpl{store: s, tables: tables}
}

func (p *soldPositionProcessorImpl) Run() (RunSummary, error) {
	var summary RunSummary

	sells, err := p.store.FindTransactionsByTypes(models.TxSell)
	if err != nil {
		return summary, err
	}

	for _, sell := range sells {
		summary.Scanned++
		if sell.Quantity == nil || *sell.Quantity == 0 || sell.Price == nil {
			summary.Skipped++
			continue
		}

		isin := p.resolveISIN(sell)
		key := models.SoldPositionKey(isin, sell.Symbol)

		exists, err := p.store.SoldPositionExists(key, sell.Date, *sell.Quantity)
		if err != nil {
			logger.L.Error("Sold position dedup check failed", "externalID", sell.ExternalID, "error", err)
			summary.Failed++
			continue
		}
		if exists {
			summary.Skipped++
			continue
		}

		pos := models.SoldPosition{
			IdentifierKey: key,
			ISIN:          isin,
			Symbol:        sell.Symbol,
			CompanyName:   sell.CompanyName,
			Quantity:      *sell.Quantity,
			SaleDate:      sell.Date,
			SalePrice:     *sell.Price,
			Currency:      sell.Currency,
			RealizedPnl:   sell.RealizedPnl,
		}

		if sell.Broker == "nordnet" {
			p.fillNordnetBuy(&pos, sell, isin)
		} else {
			p.fillEarliestBuy(&pos, sell)
		}

		p.convertPnl(&pos, sell)

		switch outcome := p.store.InsertSoldPosition(pos); outcome.Status {
		case store.StatusInserted:
			summary.Inserted++
		case store.StatusSkipped:
			summary.Skipped++
		case store.StatusFailed:
			logger.L.Error("Sold position insert failed", "externalID", sell.ExternalID, "reason", outcome.Reason)
			summary.Failed++
		}
	}
	return summary, nil
}

// resolveISIN cascades: the sell row itself, then a known holding, then a
// dividend/withholding row with the same symbol, then the curated table.
func (p *soldPositionProcessorImpl) resolveISIN(sell store.StoredTransaction) string {
	if sell.ISIN != "" {
		return sell.ISIN
	}
	if isin, err := p.store.FindPositionISIN(sell.Symbol); err == nil && isin != "" {
		return isin
	}
	if isin, err := p.store.FindISINForSymbolFromDividends(sell.Symbol); err == nil && isin != "" {
		return isin
	}
	for isin, symbol := range p.tables.StaticSymbols {
		if symbol == sell.Symbol {
			return isin
		}
	}
	return ""
}

// fillNordnetBuy back-calculates the purchase price from realized P&L as
// sale price minus pnl per share. A non-positive result clamps to the sale
// price. The derived price is an approximation; Nordnet sell rows do not
// carry the original purchase price.
func (p *soldPositionProcessorImpl) fillNordnetBuy(pos *models.SoldPosition, sell store.StoredTransaction, isin string) {
	if sell.RealizedPnl != nil && *sell.Quantity != 0 {
		perShare := decimal.NewFromFloat(*sell.RealizedPnl).
			Div(decimal.NewFromFloat(*sell.Quantity))
		buyPrice := decimal.NewFromFloat(*sell.Price).Sub(perShare).InexactFloat64()
		if buyPrice <= 0 {
			buyPrice = *sell.Price
		}
		pos.BuyPrice = &buyPrice
	}
	if isin != "" {
		if buy, err := p.store.FindEarliestBuy(isin); err == nil && buy != nil {
			d := buy.Date
			pos.BuyDate = &d
		}
	}
}

// fillEarliestBuy resolves the IBKR path: no P&L or ISIN on the sell row, so
// the earliest matching buy is found by company name first, then by the
// ticker kept in auxiliary data, and its actual price is used.
func (p *soldPositionProcessorImpl) fillEarliestBuy(pos *models.SoldPosition, sell store.StoredTransaction) {
	var buy *store.StoredTransaction
	var err error
	if sell.CompanyName != "" {
		buy, err = p.store.FindEarliestBuyByCompanyName(sell.CompanyName)
		if err != nil {
			logger.L.Warn("Earliest-buy lookup by name failed", "name", sell.CompanyName, "error", err)
		}
	}
	if buy == nil {
		ticker := sell.Aux.Ticker
		if ticker == "" {
			ticker = sell.Symbol
		}
		buy, err = p.store.FindEarliestBuyByTicker(ticker)
		if err != nil {
			logger.L.Warn("Earliest-buy lookup by ticker failed", "ticker", ticker, "error", err)
		}
	}
	if buy == nil {
		return
	}
	d := buy.Date
	pos.BuyDate = &d
	pos.BuyPrice = buy.Price
}

// convertPnl converts realized P&L to EUR when the currency is foreign and a
// P&L figure exists. A missing rate leaves the EUR fields unset; guessing is
// worse than a gap.
func (p *soldPositionProcessorImpl) convertPnl(pos *models.SoldPosition, sell store.StoredTransaction) {
	if sell.Currency == "" || sell.Currency == "EUR" || sell.RealizedPnl == nil {
		return
	}
	rate := 0.0
	if sell.FxRate != nil && *sell.FxRate != 0 {
		rate = *sell.FxRate
	} else if r, found, err := p.store.FxRateOn(sell.Currency, sell.Date); err == nil && found && r != 0 {
		rate = r
	}
	if rate == 0 {
		return
	}
	pos.FxRate = &rate
	eur := *sell.RealizedPnl * rate
	pos.RealizedPnlEUR = &eur
}
