package processors

import (
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/store"
	"github.com/username/flexfolio/src/utils"
)

// costTypes maps the dedicated cost-producing transaction types to the
// derived cost classification.
var costTypes = map[models.TransactionType]models.CostType{
	models.TxWithholdingTax:  models.CostWithholdingTax,
	models.TxForeignTax:      models.CostForeignTax,
	models.TxLoanInterest:    models.CostLoanInterest,
	models.TxCapitalInterest: models.CostCapitalInterest,
}

// costProcessorImpl derives always-positive expense records along two paths:
// commissions attached to buy/sell rows, and dedicated cost transaction
// types. At most one cost per originating transaction.
type costProcessorImpl struct {
	store *store.Store
}

// NewCostProcessor creates the cost derivation pass.
func NewCostProcessor(s *store.Store) DerivedRecordProcessor {
	return &costProcessorImpl{store: s}
}

func (p *costProcessorImpl) Run() (RunSummary, error) {
	var summary RunSummary

	commissionTxs, err := p.store.TransactionsWithCommission()
	if err != nil {
		return summary, err
	}
	for _, tx := range commissionTxs {
		summary.Scanned++
		if tx.Commission == nil || *tx.Commission == 0 {
			summary.Skipped++
			continue
		}
		p.derive(&summary, tx, models.CostCommission, utils.AbsFloat(*tx.Commission))
	}

	typed, err := p.store.FindTransactionsByTypes(models.TxWithholdingTax, models.TxForeignTax,
		models.TxLoanInterest, models.TxCapitalInterest)
	if err != nil {
		return summary, err
	}
	for _, tx := range typed {
		summary.Scanned++
		if tx.Amount == nil || *tx.Amount == 0 {
			summary.Skipped++
			continue
		}
		p.derive(&summary, tx, costTypes[tx.Type], utils.AbsFloat(*tx.Amount))
	}
	return summary, nil
}

func (p *costProcessorImpl) derive(summary *RunSummary, tx store.StoredTransaction, costType models.CostType, amount float64) {
	exists, err := p.store.CostExistsForTransaction(tx.ID)
	if err != nil {
		logger.L.Error("Cost dedup check failed", "transactionID", tx.ID, "error", err)
		summary.Failed++
		return
	}
	if exists {
		summary.Skipped++
		return
	}

	cost := models.Cost{
		BrokerTransactionID: tx.ID,
		Type:                costType,
		Date:                tx.Date,
		Amount:              amount,
		Currency:            tx.Currency,
		ISIN:                tx.ISIN,
		Symbol:              tx.Symbol,
	}
	switch outcome := p.store.InsertCost(cost); outcome.Status {
	case store.StatusInserted:
		summary.Inserted++
	case store.StatusSkipped:
		summary.Skipped++
	case store.StatusFailed:
		logger.L.Error("Cost insert failed", "transactionID", tx.ID, "reason", outcome.Reason)
		summary.Failed++
	}
}
