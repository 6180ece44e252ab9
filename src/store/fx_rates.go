package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/flexfolio/src/utils"
)

// UpsertFxRate stores a (date, currency) rate; an existing pair is a skip.
func (s *Store) UpsertFxRate(date time.Time, currency string, rate float64) Outcome {
	res, err := s.db.Exec(`INSERT INTO fx_rates (rate_date, currency, rate) VALUES (?, ?, ?)`,
		utils.FormatDate(date), currency, rate)
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("fx rate for %s on %s already stored", currency, utils.FormatDate(date)))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// FxRateOn returns the rate for a currency on a date, falling back to the
// nearest preceding date when the exact one is absent. EUR always resolves
// to 1 without a stored row.
func (s *Store) FxRateOn(currency string, date time.Time) (float64, bool, error) {
	if currency == "EUR" {
		return 1.0, true, nil
	}
	var rate float64
	err := s.db.QueryRow(`SELECT rate FROM fx_rates
		WHERE currency = ? AND rate_date <= ?
		ORDER BY rate_date DESC LIMIT 1`, currency, utils.FormatDate(date)).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}
