package store

import (
	"database/sql"
	"fmt"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// InsertCashFlow persists one non-trade cash movement. Duplicate external_id
// is a skip.
func (s *Store) InsertCashFlow(c models.CashFlow) Outcome {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM cash_flows WHERE external_id = ?`, c.ExternalID).Scan(&existing)
	if err == nil {
		return skipped(fmt.Sprintf("cash flow %s already imported", c.ExternalID))
	}
	if err != sql.ErrNoRows {
		return failed(err)
	}

	res, err := s.db.Exec(`INSERT INTO cash_flows (external_id, broker, flow_type, date, amount,
		currency, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ExternalID, c.Broker, string(c.FlowType), utils.FormatDate(c.Date), c.Amount,
		nullString(c.Currency), nullString(c.Description))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("cash flow %s lost insert race", c.ExternalID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// CountCashFlows returns the number of persisted cash movements.
func (s *Store) CountCashFlows() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cash_flows`).Scan(&n)
	return n, err
}

// InsertCorporateAction persists one split/merger/symbol-change event.
func (s *Store) InsertCorporateAction(a models.CorporateAction) Outcome {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM corporate_actions WHERE external_id = ?`, a.ExternalID).Scan(&existing)
	if err == nil {
		return skipped(fmt.Sprintf("corporate action %s already imported", a.ExternalID))
	}
	if err != sql.ErrNoRows {
		return failed(err)
	}

	res, err := s.db.Exec(`INSERT INTO corporate_actions (external_id, broker, action_type, isin,
		symbol, date, details) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ExternalID, a.Broker, a.ActionType, nullString(a.ISIN), nullString(a.Symbol),
		utils.FormatDate(a.Date), nullString(a.Details))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("corporate action %s lost insert race", a.ExternalID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}
