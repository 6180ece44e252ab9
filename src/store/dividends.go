package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

const dividendColumns = `id, external_id, broker, isin, symbol, company_name, pay_date,
	amount_type, amount, currency, withholding_tax, net_amount, fx_rate, amount_eur`

// InsertDividendPayment persists one derived dividend fact. Duplicate
// external_id is a skip.
func (s *Store) InsertDividendPayment(d models.DividendPayment) Outcome {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM dividend_payments WHERE external_id = ?`, d.ExternalID).Scan(&existing)
	if err == nil {
		return skipped(fmt.Sprintf("dividend %s already derived", d.ExternalID))
	}
	if err != sql.ErrNoRows {
		return failed(err)
	}

	res, err := s.db.Exec(`INSERT INTO dividend_payments (external_id, broker, isin, symbol,
		company_name, pay_date, amount_type, amount, currency, withholding_tax, net_amount,
		fx_rate, amount_eur) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ExternalID, d.Broker, nullString(d.ISIN), nullString(d.Symbol),
		nullString(d.CompanyName), utils.FormatDate(d.PayDate), string(d.AmountType), d.Amount,
		nullString(d.Currency), nullFloat(d.WithholdingTax), nullFloat(d.NetAmount),
		nullFloat(d.FxRate), nullFloat(d.AmountEUR))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("dividend %s lost insert race", d.ExternalID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// DividendExistsByISINDate reports whether a dividend fact already exists for
// (ISIN, pay date). ISIN match takes priority over symbol match because the
// same instrument can carry different symbols across brokers.
func (s *Store) DividendExistsByISINDate(isin string, date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dividend_payments WHERE isin = ? AND pay_date = ?`,
		isin, utils.FormatDate(date)).Scan(&n)
	return n > 0, err
}

// DividendExistsBySymbolDate is the fallback dedup check for rows without an ISIN.
func (s *Store) DividendExistsBySymbolDate(symbol string, date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dividend_payments WHERE symbol = ? AND pay_date = ?`,
		symbol, utils.FormatDate(date)).Scan(&n)
	return n > 0, err
}

// FindDividendsBetween returns dividend facts with pay dates in [from, to].
func (s *Store) FindDividendsBetween(from, to time.Time) ([]models.DividendPayment, error) {
	rows, err := s.db.Query(`SELECT `+dividendColumns+` FROM dividend_payments
		WHERE pay_date >= ? AND pay_date <= ? ORDER BY pay_date, id`,
		utils.FormatDate(from), utils.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("querying dividends between dates: %w", err)
	}
	defer rows.Close()
	return scanDividends(rows)
}

// AllDividends returns every dividend fact, ordered by pay date.
func (s *Store) AllDividends() ([]models.DividendPayment, error) {
	rows, err := s.db.Query(`SELECT ` + dividendColumns + ` FROM dividend_payments ORDER BY pay_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying all dividends: %w", err)
	}
	defer rows.Close()
	return scanDividends(rows)
}

// CountDividendsBetween counts dividend facts in [from, to].
func (s *Store) CountDividendsBetween(from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dividend_payments WHERE pay_date >= ? AND pay_date <= ?`,
		utils.FormatDate(from), utils.FormatDate(to)).Scan(&n)
	return n, err
}

// FindDividendsMissingFx returns non-EUR dividends lacking an FX rate. A
// stored rate of exactly zero counts as missing; zero is never a real rate.
func (s *Store) FindDividendsMissingFx() ([]models.DividendPayment, error) {
	rows, err := s.db.Query(`SELECT ` + dividendColumns + ` FROM dividend_payments
		WHERE currency IS NOT NULL AND currency != 'EUR'
		AND (fx_rate IS NULL OR fx_rate = 0) ORDER BY pay_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying dividends missing fx: %w", err)
	}
	defer rows.Close()
	return scanDividends(rows)
}

// UpdateDividendFx backfills the FX rate and EUR amount on one dividend.
func (s *Store) UpdateDividendFx(id int64, rate float64, amountEUR *float64) error {
	_, err := s.db.Exec(`UPDATE dividend_payments SET fx_rate = ?, amount_eur = ? WHERE id = ?`,
		rate, nullFloat(amountEUR), id)
	return err
}

func scanDividends(rows *sql.Rows) ([]models.DividendPayment, error) {
	var out []models.DividendPayment
	for rows.Next() {
		var d models.DividendPayment
		var payDate, amountType string
		var isin, symbol, company, currency sql.NullString
		var wht, net, fx, eur sql.NullFloat64
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.Broker, &isin, &symbol, &company,
			&payDate, &amountType, &d.Amount, &currency, &wht, &net, &fx, &eur); err != nil {
			return nil, err
		}
		d.ISIN = stringVal(isin)
		d.Symbol = stringVal(symbol)
		d.CompanyName = stringVal(company)
		d.PayDate = mustDate(payDate)
		d.AmountType = models.DividendAmountType(amountType)
		d.Currency = stringVal(currency)
		d.WithholdingTax = floatPtr(wht)
		d.NetAmount = floatPtr(net)
		d.FxRate = floatPtr(fx)
		d.AmountEUR = floatPtr(eur)
		out = append(out, d)
	}
	return out, rows.Err()
}
