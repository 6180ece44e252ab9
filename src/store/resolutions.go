package store

import (
	"database/sql"
	"fmt"
)

// ResolutionStatus is the resolver's persisted state per ISIN.
type ResolutionStatus string

const (
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionUnmappable ResolutionStatus = "unmappable"
	ResolutionPending    ResolutionStatus = "pending"
)

// Resolution is a persisted symbol-resolution outcome for one ISIN.
type Resolution struct {
	ISIN   string
	Status ResolutionStatus
	Symbol string
	Reason string
}

// GetResolution returns the stored resolution for an ISIN, if any.
func (s *Store) GetResolution(isin string) (*Resolution, error) {
	var r Resolution
	var symbol, reason sql.NullString
	err := s.db.QueryRow(`SELECT isin, status, symbol, reason FROM symbol_resolutions WHERE isin = ?`,
		isin).Scan(&r.ISIN, &r.Status, &symbol, &reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Symbol = stringVal(symbol)
	r.Reason = stringVal(reason)
	return &r, nil
}

// SaveResolution upserts the resolution row for an ISIN.
func (s *Store) SaveResolution(r Resolution) error {
	_, err := s.db.Exec(`INSERT INTO symbol_resolutions (isin, status, symbol, reason, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(isin) DO UPDATE SET status = excluded.status, symbol = excluded.symbol,
		reason = excluded.reason, updated_at = CURRENT_TIMESTAMP`,
		r.ISIN, string(r.Status), nullString(r.Symbol), nullString(r.Reason))
	if err != nil {
		return fmt.Errorf("saving resolution for %s: %w", r.ISIN, err)
	}
	return nil
}

// ListPendingResolutions returns all ISINs awaiting an external retry.
func (s *Store) ListPendingResolutions() ([]Resolution, error) {
	rows, err := s.db.Query(`SELECT isin, status, symbol, reason FROM symbol_resolutions
		WHERE status = 'pending' ORDER BY isin`)
	if err != nil {
		return nil, fmt.Errorf("querying pending resolutions: %w", err)
	}
	defer rows.Close()
	var out []Resolution
	for rows.Next() {
		var r Resolution
		var symbol, reason sql.NullString
		if err := rows.Scan(&r.ISIN, &r.Status, &symbol, &reason); err != nil {
			return nil, err
		}
		r.Symbol = stringVal(symbol)
		r.Reason = stringVal(reason)
		out = append(out, r)
	}
	return out, rows.Err()
}
