package processors

import (
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/store"
)

// fxEnrichmentImpl backfills missing FX rates on dividend and trade records
// from the rates ingested out of the Flex statements. Records that already
// carry a rate are left untouched, and a stored rate of exactly zero is
// treated as "not a real rate" rather than as data.
type fxEnrichmentImpl struct {
	store *store.Store
}

// NewFxEnrichment creates the FX backfill pass.
func NewFxEnrichment(s *store.Store) DerivedRecordProcessor {
	return &fxEnrichmentImpl{store: s}
}

func (p *fxEnrichmentImpl) Run() (RunSummary, error) {
	var summary RunSummary

	dividends, err := p.store.FindDividendsMissingFx()
	if err != nil {
		return summary, err
	}
	for _, d := range dividends {
		summary.Scanned++
		rate, found, err := p.store.FxRateOn(d.Currency, d.PayDate)
		if err != nil {
			logger.L.Error("FX lookup failed for dividend", "id", d.ID, "currency", d.Currency, "error", err)
			summary.Failed++
			continue
		}
		if !found || rate == 0 {
			summary.Skipped++
			continue
		}
		var amountEUR *float64
		if d.NetAmount != nil {
			eur := *d.NetAmount * rate
			amountEUR = &eur
		}
		if err := p.store.UpdateDividendFx(d.ID, rate, amountEUR); err != nil {
			logger.L.Error("FX backfill failed for dividend", "id", d.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.Inserted++
	}

	trades, err := p.store.FindTradesMissingFx()
	if err != nil {
		return summary, err
	}
	for _, t := range trades {
		summary.Scanned++
		rate, found, err := p.store.FxRateOn(t.Currency, t.TradeDate)
		if err != nil {
			logger.L.Error("FX lookup failed for trade", "id", t.ID, "currency", t.Currency, "error", err)
			summary.Failed++
			continue
		}
		if !found || rate == 0 {
			summary.Skipped++
			continue
		}
		var amountEUR *float64
		if t.Amount != nil {
			eur := *t.Amount * rate
			amountEUR = &eur
		}
		if err := p.store.UpdateTradeFx(t.ID, rate, amountEUR); err != nil {
			logger.L.Error("FX backfill failed for trade", "id", t.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.Inserted++
	}
	return summary, nil
}
