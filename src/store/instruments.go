package store

import (
	"database/sql"
	"fmt"

	"github.com/username/flexfolio/src/models"
)

// EnsureInstrument creates an instrument on first sighting of an ISIN and
// returns its id. Existing instruments get blank identity fields filled in;
// nothing is ever overwritten or deleted.
func (s *Store) EnsureInstrument(isin, symbol, currency, exchange, assetCategory string) (int64, error) {
	if isin == "" {
		return 0, fmt.Errorf("cannot ensure instrument without ISIN")
	}

	var id int64
	var curSymbol, curCurrency, curExchange sql.NullString
	err := s.db.QueryRow(`SELECT id, symbol, currency, exchange FROM instruments WHERE isin = ?`, isin).
		Scan(&id, &curSymbol, &curCurrency, &curExchange)
	if err == nil {
		if (!curSymbol.Valid || curSymbol.String == "") && symbol != "" {
			_, _ = s.db.Exec(`UPDATE instruments SET symbol = ? WHERE id = ?`, symbol, id)
		}
		if (!curCurrency.Valid || curCurrency.String == "") && currency != "" {
			_, _ = s.db.Exec(`UPDATE instruments SET currency = ? WHERE id = ?`, currency, id)
		}
		if (!curExchange.Valid || curExchange.String == "") && exchange != "" {
			_, _ = s.db.Exec(`UPDATE instruments SET exchange = ? WHERE id = ?`, exchange, id)
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO instruments (isin, symbol, currency, exchange, asset_category)
		VALUES (?, ?, ?, ?, ?)`,
		isin, nullString(symbol), nullString(currency), nullString(exchange), nullString(assetCategory))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race to a concurrent sighting; read the winner.
			err = s.db.QueryRow(`SELECT id FROM instruments WHERE isin = ?`, isin).Scan(&id)
			return id, err
		}
		return 0, err
	}
	return res.LastInsertId()
}

// InsertAlias records a (symbol, exchange, source) sighting for an instrument.
// A second primary alias for the same instrument is a skip, enforced by the
// partial unique index.
func (s *Store) InsertAlias(a models.InstrumentAlias) Outcome {
	res, err := s.db.Exec(`INSERT INTO instrument_aliases (instrument_id, symbol, exchange, source,
		valid_from, valid_to, is_primary) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.InstrumentID, a.Symbol, nullString(a.Exchange), nullString(a.Source),
		nullDate(a.ValidFrom), nullDate(a.ValidTo), a.Primary)
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("instrument %d already has a primary alias", a.InstrumentID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// KnownISINs returns the set of ISINs present in the instruments table.
func (s *Store) KnownISINs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT isin FROM instruments`)
	if err != nil {
		return nil, fmt.Errorf("querying known ISINs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var isin string
		if err := rows.Scan(&isin); err != nil {
			return nil, err
		}
		out[isin] = true
	}
	return out, rows.Err()
}

// AllInstruments returns every instrument row.
func (s *Store) AllInstruments() ([]models.Instrument, error) {
	rows, err := s.db.Query(`SELECT id, isin, symbol, cusip, figi, currency, exchange, asset_category
		FROM instruments ORDER BY isin`)
	if err != nil {
		return nil, fmt.Errorf("querying instruments: %w", err)
	}
	defer rows.Close()
	var out []models.Instrument
	for rows.Next() {
		var i models.Instrument
		var symbol, cusip, figi, currency, exchange, category sql.NullString
		if err := rows.Scan(&i.ID, &i.ISIN, &symbol, &cusip, &figi, &currency, &exchange, &category); err != nil {
			return nil, err
		}
		i.Symbol = stringVal(symbol)
		i.CUSIP = stringVal(cusip)
		i.FIGI = stringVal(figi)
		i.Currency = stringVal(currency)
		i.Exchange = stringVal(exchange)
		i.AssetCategory = stringVal(category)
		out = append(out, i)
	}
	return out, rows.Err()
}

// OrphanInstruments returns instruments no trade or dividend references.
func (s *Store) OrphanInstruments() ([]models.Instrument, error) {
	rows, err := s.db.Query(`SELECT i.id, i.isin, i.symbol FROM instruments i
		WHERE NOT EXISTS (SELECT 1 FROM trades t WHERE t.isin = i.isin)
		AND NOT EXISTS (SELECT 1 FROM dividend_payments d WHERE d.isin = i.isin)
		ORDER BY i.isin`)
	if err != nil {
		return nil, fmt.Errorf("querying orphan instruments: %w", err)
	}
	defer rows.Close()
	var out []models.Instrument
	for rows.Next() {
		var i models.Instrument
		var symbol sql.NullString
		if err := rows.Scan(&i.ID, &i.ISIN, &symbol); err != nil {
			return nil, err
		}
		i.Symbol = stringVal(symbol)
		out = append(out, i)
	}
	return out, rows.Err()
}

// UnresolvedInstrument pairs an ISIN that has no symbol yet with a company
// name taken from its transactions, for the structured-product heuristic.
type UnresolvedInstrument struct {
	ISIN string
	Name string
}

// InstrumentsMissingSymbol returns every ISIN with no symbol recorded, each
// carrying a company name from any transaction that has one.
func (s *Store) InstrumentsMissingSymbol() ([]UnresolvedInstrument, error) {
	rows, err := s.db.Query(`SELECT i.isin,
		COALESCE((SELECT t.company_name FROM transactions t
			WHERE t.isin = i.isin AND t.company_name IS NOT NULL AND t.company_name != ''
			LIMIT 1), '')
		FROM instruments i
		WHERE i.symbol IS NULL OR i.symbol = '' ORDER BY i.isin`)
	if err != nil {
		return nil, fmt.Errorf("querying instruments missing a symbol: %w", err)
	}
	defer rows.Close()
	var out []UnresolvedInstrument
	for rows.Next() {
		var u UnresolvedInstrument
		if err := rows.Scan(&u.ISIN, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// InstrumentsMissingCurrency returns instruments with no currency recorded.
func (s *Store) InstrumentsMissingCurrency() ([]models.Instrument, error) {
	rows, err := s.db.Query(`SELECT id, isin FROM instruments
		WHERE currency IS NULL OR currency = '' ORDER BY isin`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Instrument
	for rows.Next() {
		var i models.Instrument
		if err := rows.Scan(&i.ID, &i.ISIN); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
