package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// InsertSnapshotWithPositions commits a snapshot and all its positions in one
// database transaction. A failure anywhere rolls back the snapshot row too.
// Positions that collide on (snapshot, identifier, date) are skipped inside
// the same transaction, so a re-delivered report inserts nothing new.
func (s *Store) InsertSnapshotWithPositions(snap models.PortfolioSnapshot, positions []models.Position) (int, error) {
	dbTx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`INSERT INTO portfolio_snapshots (id, snapshot_date, broker)
		VALUES (?, ?, ?)`, snap.ID, utils.FormatDate(snap.SnapshotDate), snap.Broker); err != nil {
		return 0, fmt.Errorf("error inserting snapshot: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO positions (snapshot_id, isin, symbol, description, date,
		identifier, quantity, mark_price, position_value, cost_basis, unrealized_pnl, currency, exchange)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing position insert: %w", err)
	}
	defer stmt.Close()

	insertedCount := 0
	for _, p := range positions {
		_, err := stmt.Exec(snap.ID, nullString(p.ISIN), nullString(p.Symbol),
			nullString(p.Description), utils.FormatDate(p.Date), p.Identifier(), p.Quantity,
			nullFloat(p.MarkPrice), nullFloat(p.PositionValue), nullFloat(p.CostBasis),
			nullFloat(p.UnrealizedPnl), nullString(p.Currency), nullString(p.Exchange))
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return 0, fmt.Errorf("error inserting position (identifier: %s): %w", p.Identifier(), err)
		}
		insertedCount++
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing snapshot: %w", err)
	}
	return insertedCount, nil
}

// SnapshotExists reports whether a snapshot already exists for (broker, date).
func (s *Store) SnapshotExists(broker string, date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshots WHERE broker = ? AND snapshot_date = ?`,
		broker, utils.FormatDate(date)).Scan(&n)
	return n > 0, err
}

// SnapshotDates returns all snapshot dates in ascending order.
func (s *Store) SnapshotDates() ([]time.Time, error) {
	rows, err := s.db.Query(`SELECT DISTINCT snapshot_date FROM portfolio_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot dates: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		if t, ok := utils.ParseDate(d); ok {
			out = append(out, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// FindPositionISIN returns the ISIN a held position records for a symbol.
func (s *Store) FindPositionISIN(symbol string) (string, error) {
	var isin sql.NullString
	err := s.db.QueryRow(`SELECT isin FROM positions
		WHERE symbol = ? AND isin IS NOT NULL AND isin != ''
		ORDER BY date DESC LIMIT 1`, symbol).Scan(&isin)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stringVal(isin), nil
}

// FindPositionSymbolExchange returns the symbol and exchange a held position
// records for an ISIN, for the resolver's local-holdings step.
func (s *Store) FindPositionSymbolExchange(isin string) (symbol, exchange string, err error) {
	var sym, exch sql.NullString
	err = s.db.QueryRow(`SELECT symbol, exchange FROM positions
		WHERE isin = ? AND symbol IS NOT NULL AND symbol != ''
		ORDER BY date DESC LIMIT 1`, isin).Scan(&sym, &exch)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return stringVal(sym), stringVal(exch), nil
}

// OrphanPositionCount counts positions whose snapshot row is missing, a
// safety net behind the foreign key constraint.
func (s *Store) OrphanPositionCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM positions p
		WHERE NOT EXISTS (SELECT 1 FROM portfolio_snapshots s WHERE s.id = p.snapshot_id)`).Scan(&n)
	return n, err
}
