package processors

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/database"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(db))
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func floatp(f float64) *float64 { return &f }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func insertTx(t *testing.T, s *store.Store, tx models.CanonicalTransaction) {
	t.Helper()
	out := s.InsertTransaction(tx)
	require.Equal(t, store.StatusInserted, out.Status, out.Reason)
}
