package store

import (
	"fmt"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// CostExistsForTransaction reports whether a cost was already derived from
// the given raw transaction.
func (s *Store) CostExistsForTransaction(brokerTransactionID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM costs WHERE broker_transaction_id = ?`,
		brokerTransactionID).Scan(&n)
	return n > 0, err
}

// InsertCost persists one derived expense. At most one cost per originating
// transaction; a duplicate is a skip.
func (s *Store) InsertCost(c models.Cost) Outcome {
	res, err := s.db.Exec(`INSERT INTO costs (broker_transaction_id, cost_type, date, amount,
		currency, isin, symbol) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.BrokerTransactionID, string(c.Type), utils.FormatDate(c.Date), c.Amount,
		nullString(c.Currency), nullString(c.ISIN), nullString(c.Symbol))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("cost for transaction %d already derived", c.BrokerTransactionID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// CountCosts returns the number of derived cost records.
func (s *Store) CountCosts() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM costs`).Scan(&n)
	return n, err
}

// OrphanCostCount counts costs whose originating transaction is missing, a
// safety net behind the foreign key constraint.
func (s *Store) OrphanCostCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM costs c
		WHERE NOT EXISTS (SELECT 1 FROM transactions t WHERE t.id = c.broker_transaction_id)`).Scan(&n)
	return n, err
}
