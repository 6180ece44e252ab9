package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// SoldPositionExists reports whether a closed round-trip with the same
// identifier key, sale date and quantity is already recorded.
func (s *Store) SoldPositionExists(identifierKey string, saleDate time.Time, quantity float64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sold_positions
		WHERE identifier_key = ? AND sale_date = ? AND quantity = ?`,
		identifierKey, utils.FormatDate(saleDate), quantity).Scan(&n)
	return n > 0, err
}

// InsertSoldPosition persists one derived closed position. A collision on
// (identifier_key, sale_date, quantity) is a skip.
func (s *Store) InsertSoldPosition(p models.SoldPosition) Outcome {
	res, err := s.db.Exec(`INSERT INTO sold_positions (identifier_key, isin, symbol, company_name,
		quantity, buy_date, buy_price, sale_date, sale_price, currency, realized_pnl, fx_rate,
		realized_pnl_eur) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.IdentifierKey, nullString(p.ISIN), nullString(p.Symbol), nullString(p.CompanyName),
		p.Quantity, nullDate(p.BuyDate), nullFloat(p.BuyPrice), utils.FormatDate(p.SaleDate),
		p.SalePrice, nullString(p.Currency), nullFloat(p.RealizedPnl), nullFloat(p.FxRate),
		nullFloat(p.RealizedPnlEUR))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("sold position %s on %s already derived",
				p.IdentifierKey, utils.FormatDate(p.SaleDate)))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// AllSoldPositions returns every derived closed position.
func (s *Store) AllSoldPositions() ([]models.SoldPosition, error) {
	rows, err := s.db.Query(`SELECT id, identifier_key, isin, symbol, company_name, quantity,
		buy_date, buy_price, sale_date, sale_price, currency, realized_pnl, fx_rate,
		realized_pnl_eur FROM sold_positions ORDER BY sale_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying sold positions: %w", err)
	}
	defer rows.Close()
	var out []models.SoldPosition
	for rows.Next() {
		var p models.SoldPosition
		var saleDate string
		var isin, symbol, company, currency, buyDate sql.NullString
		var buyPrice, pnl, fx, pnlEUR sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.IdentifierKey, &isin, &symbol, &company, &p.Quantity,
			&buyDate, &buyPrice, &saleDate, &p.SalePrice, &currency, &pnl, &fx, &pnlEUR); err != nil {
			return nil, err
		}
		p.ISIN = stringVal(isin)
		p.Symbol = stringVal(symbol)
		p.CompanyName = stringVal(company)
		p.BuyDate = datePtr(buyDate)
		p.BuyPrice = floatPtr(buyPrice)
		p.SaleDate = mustDate(saleDate)
		p.Currency = stringVal(currency)
		p.RealizedPnl = floatPtr(pnl)
		p.FxRate = floatPtr(fx)
		p.RealizedPnlEUR = floatPtr(pnlEUR)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecomputeSoldPositionKeys revisits symbol-keyed sold positions whose ISIN
// has since become known and rewrites identifier_key to the ISIN. The key
// must always track the best identity we have.
func (s *Store) RecomputeSoldPositionKeys(resolve func(symbol string) string) (int, error) {
	rows, err := s.db.Query(`SELECT id, symbol FROM sold_positions
		WHERE (isin IS NULL OR isin = '') AND symbol IS NOT NULL AND symbol != ''`)
	if err != nil {
		return 0, fmt.Errorf("querying sold positions for key recompute: %w", err)
	}
	type pending struct {
		id     int64
		symbol string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.symbol); err != nil {
			rows.Close()
			return 0, err
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	updated := 0
	for _, p := range todo {
		isin := resolve(p.symbol)
		if isin == "" {
			continue
		}
		_, err := s.db.Exec(`UPDATE sold_positions SET isin = ?, identifier_key = ? WHERE id = ?`,
			isin, models.SoldPositionKey(isin, p.symbol), p.id)
		if err != nil {
			// A duplicate under the recomputed key means the same round-trip
			// was already recorded with its ISIN; drop nothing, keep the row.
			if isUniqueViolation(err) {
				continue
			}
			return updated, err
		}
		updated++
	}
	return updated, nil
}
