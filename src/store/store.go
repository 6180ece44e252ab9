// Package store provides the repository methods over the canonical SQLite
// schema. Every idempotency key is backed by a UNIQUE constraint; the
// application-level existence checks in the processors are an optimization,
// the constraints are the correctness guarantee.
package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/username/flexfolio/src/utils"
)

// Status is the three-way outcome of an upsert attempt. Skips are not
// errors: a duplicate detected pre-insert or lost to a unique constraint is
// reported as StatusSkipped so re-imports stay clean.
type Status int

const (
	StatusInserted Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInserted:
		return "inserted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome carries the status of a single record upsert plus the row id on
// success and a reason on skip/failure.
type Outcome struct {
	Status Status
	ID     int64
	Reason string
}

func inserted(id int64) Outcome     { return Outcome{Status: StatusInserted, ID: id} }
func skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }
func failed(err error) Outcome      { return Outcome{Status: StatusFailed, Reason: err.Error()} }

// Store wraps the shared *sql.DB with typed query methods.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// isUniqueViolation matches the sqlite driver's constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: utils.FormatDate(*t), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func stringVal(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}

func datePtr(n sql.NullString) *time.Time {
	if !n.Valid || n.String == "" {
		return nil
	}
	t, ok := utils.ParseDate(n.String)
	if !ok {
		return nil
	}
	return &t
}

func mustDate(s string) time.Time {
	t, _ := utils.ParseDate(s)
	return t
}
