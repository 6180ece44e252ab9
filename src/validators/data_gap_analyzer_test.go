package validators

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/store"
)

func insertSnapshot(t *testing.T, s *store.Store, y int, m time.Month, d int) {
	t.Helper()
	id := uuid.NewString()
	_, err := s.InsertSnapshotWithPositions(
		models.PortfolioSnapshot{ID: id, SnapshotDate: date(y, m, d), Broker: "ibkr"},
		[]models.Position{{SnapshotID: id, Symbol: "AAPL", Date: date(y, m, d), Quantity: 1}},
	)
	require.NoError(t, err)
}

func TestSnapshotGapBoundary(t *testing.T) {
	s := newTestStore(t)
	insertSnapshot(t, s, 2024, 3, 1)
	insertSnapshot(t, s, 2024, 3, 8)  // exactly 7 days, on schedule
	insertSnapshot(t, s, 2024, 3, 16) // 8 days, a gap

	gaps, err := NewDataGapAnalyzer(s).SnapshotGaps()
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	require.Equal(t, 8, gaps[0].Days)
	require.True(t, gaps[0].From.Equal(date(2024, 3, 8)))
}

func TestDividendGapBoundary(t *testing.T) {
	s := newTestStore(t)
	insert := func(externalID string, y int, m time.Month, d int) {
		out := s.InsertDividendPayment(models.DividendPayment{
			ExternalID: externalID,
			Broker:     "ibkr",
			ISIN:       "US0378331005",
			PayDate:    date(y, m, d),
			AmountType: models.AmountPerShare,
			Amount:     0.24,
			Currency:   "USD",
		})
		require.Equal(t, store.StatusInserted, out.Status)
	}
	insert("d1", 2022, 1, 1)
	insert("d2", 2023, 2, 5)  // exactly 400 days later, not a gap
	insert("d3", 2024, 3, 12) // 401 days later, a gap

	gaps, err := NewDataGapAnalyzer(s).DividendGaps()
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	require.Equal(t, 401, gaps[0].Days)
	require.Equal(t, "US0378331005", gaps[0].Identifier)
}

func TestSnapshotCoverage(t *testing.T) {
	s := newTestStore(t)
	// Four weekly snapshots spanning 21 days: full coverage for the window.
	insertSnapshot(t, s, 2024, 3, 1)
	insertSnapshot(t, s, 2024, 3, 8)
	insertSnapshot(t, s, 2024, 3, 15)
	insertSnapshot(t, s, 2024, 3, 22)

	chunks, err := NewDataGapAnalyzer(s).SnapshotCoverage()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, 4, chunks[0].Actual)
	require.Equal(t, 4, chunks[0].Expected)
	require.Equal(t, 100.0, chunks[0].Percent)
}

func TestSnapshotCoverageEmptyHistory(t *testing.T) {
	s := newTestStore(t)
	chunks, err := NewDataGapAnalyzer(s).SnapshotCoverage()
	require.NoError(t, err)
	require.Empty(t, chunks)
}
