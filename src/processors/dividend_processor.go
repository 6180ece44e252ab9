package processors

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/store"
	"github.com/username/flexfolio/src/utils"
)

// Per-share extraction patterns for IBKR free-text descriptions, tried in
// order. The strict form matches "Cash Dividend USD 0.0350 per Share"; the
// loose fallback tolerates interleaved tax-withholding phrasing between the
// currency and the rate.
var (
	perShareStrict = regexp.MustCompile(`(?i)Cash Dividend\s+([A-Z]{3})\s+([\d.]+)\s+per\s+Share`)
	perShareLoose  = regexp.MustCompile(`(?i)\b([A-Z]{3})\s+([\d.]+)\s+per\s+Share`)
)

// dividendProcessorImpl derives DividendPayment facts from raw dividend-typed
// transactions.
type dividendProcessorImpl struct {
	store *store.Store
}

// NewDividendProcessor creates the dividend derivation pass.
func NewDividendProcessor(s *store.Store) DerivedRecordProcessor {
	return &dividendProcessorImpl{store: s}
}

func (p *dividendProcessorImpl) Run() (RunSummary, error) {
	var summary RunSummary

	txs, err := p.store.FindTransactionsByTypes(models.TxDividend, models.TxForeignTax)
	if err != nil {
		return summary, err
	}
	withheld, err := p.withheldByKey()
	if err != nil {
		return summary, err
	}

	for _, tx := range txs {
		summary.Scanned++

		// A pure foreign-tax row is a cost, not a dividend. It only counts
		// here when its description shows it rode along with a cash dividend.
		if tx.Type == models.TxForeignTax && !strings.Contains(tx.Description, "Cash Dividend") {
			summary.Skipped++
			continue
		}

		amountType, amount, currency := resolveAmount(tx)
		if amountType == "" || amount <= 0 {
			summary.Skipped++
			continue
		}
		if currency == "" {
			currency = tx.Currency
		}

		exists, err := p.exists(tx)
		if err != nil {
			logger.L.Error("Dividend dedup check failed", "externalID", tx.ExternalID, "error", err)
			summary.Failed++
			continue
		}
		if exists {
			summary.Skipped++
			continue
		}

		net := tx.Amount
		payment := models.DividendPayment{
			ExternalID:  tx.ExternalID,
			Broker:      tx.Broker,
			ISIN:        tx.ISIN,
			Symbol:      tx.Symbol,
			CompanyName: tx.CompanyName,
			PayDate:     tx.Date,
			AmountType:  amountType,
			Amount:      amount,
			Currency:    currency,
			NetAmount:   net,
			FxRate:      tx.FxRate,
		}
		if tax, ok := withheld[dividendKey(tx)]; ok && tax > 0 {
			payment.WithholdingTax = &tax
		}
		if tx.FxRate != nil && *tx.FxRate != 0 && net != nil {
			eur := *net * *tx.FxRate
			payment.AmountEUR = &eur
		}

		switch outcome := p.store.InsertDividendPayment(payment); outcome.Status {
		case store.StatusInserted:
			summary.Inserted++
		case store.StatusSkipped:
			summary.Skipped++
		case store.StatusFailed:
			logger.L.Error("Dividend insert failed", "externalID", tx.ExternalID, "reason", outcome.Reason)
			summary.Failed++
		}
	}
	return summary, nil
}

// withheldByKey sums withholding-tax rows per instrument and pay date so the
// derived payment carries the tax withheld alongside it.
func (p *dividendProcessorImpl) withheldByKey() (map[string]float64, error) {
	taxTxs, err := p.store.FindTransactionsByTypes(models.TxWithholdingTax)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, t := range taxTxs {
		if t.Amount == nil {
			continue
		}
		out[dividendKey(t)] += utils.AbsFloat(*t.Amount)
	}
	return out, nil
}

// dividendKey matches a tax row to its dividend: ISIN when present, symbol
// otherwise, always with the pay date.
func dividendKey(tx store.StoredTransaction) string {
	id := tx.ISIN
	if id == "" {
		id = tx.Symbol
	}
	return id + "|" + tx.Date.Format("2006-01-02")
}

// exists applies the dedup order: (ISIN, date) when an ISIN is present,
// (symbol, date) otherwise. ISIN wins because the same instrument can carry
// different symbols across brokers.
func (p *dividendProcessorImpl) exists(tx store.StoredTransaction) (bool, error) {
	if tx.ISIN != "" {
		return p.store.DividendExistsByISINDate(tx.ISIN, tx.Date)
	}
	return p.store.DividendExistsBySymbolDate(tx.Symbol, tx.Date)
}

// resolveAmount applies the broker-specific per-share rules. The returned
// amount type tags whether the figure is per share or a lump sum so later
// code never treats one as the other.
func resolveAmount(tx store.StoredTransaction) (models.DividendAmountType, float64, string) {
	switch tx.Broker {
	case "nordnet":
		if tx.Price != nil && *tx.Price > 0 {
			return models.AmountPerShare, *tx.Price, tx.Currency
		}
		if tx.Amount != nil && tx.Quantity != nil && *tx.Quantity != 0 {
			perShare := decimal.NewFromFloat(*tx.Amount).
				Div(decimal.NewFromFloat(*tx.Quantity)).InexactFloat64()
			return models.AmountPerShare, perShare, tx.Currency
		}
	default:
		if m := perShareStrict.FindStringSubmatch(tx.Description); m != nil {
			if d, err := decimal.NewFromString(m[2]); err == nil {
				return models.AmountPerShare, d.InexactFloat64(), strings.ToUpper(m[1])
			}
		}
		if m := perShareLoose.FindStringSubmatch(tx.Description); m != nil {
			if d, err := decimal.NewFromString(m[2]); err == nil {
				return models.AmountPerShare, d.InexactFloat64(), strings.ToUpper(m[1])
			}
		}
		// Neither pattern matched; store the lump sum tagged as such.
		if tx.Amount != nil {
			return models.AmountTotalNet, *tx.Amount, tx.Currency
		}
	}
	return "", 0, ""
}
