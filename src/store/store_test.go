package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/database"
	"github.com/username/flexfolio/src/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// The in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(db))
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func floatp(f float64) *float64 { return &f }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleTransaction(externalID string) models.CanonicalTransaction {
	return models.CanonicalTransaction{
		Broker:     "ibkr",
		ExternalID: externalID,
		Date:       date(2024, 3, 15),
		Type:       models.TxBuy,
		Symbol:     "AAPL",
		ISIN:       "US0378331005",
		Quantity:   floatp(10),
		Price:      floatp(170.5),
		Amount:     floatp(1705),
		Currency:   "USD",
	}
}

func TestInsertTransactionIdempotent(t *testing.T) {
	s := newTestStore(t)

	first := s.InsertTransaction(sampleTransaction("ibkr-1"))
	require.Equal(t, StatusInserted, first.Status)
	require.NotZero(t, first.ID)

	second := s.InsertTransaction(sampleTransaction("ibkr-1"))
	require.Equal(t, StatusSkipped, second.Status, "re-insert must be a skip, not an error")

	other := s.InsertTransaction(sampleTransaction("ibkr-2"))
	require.Equal(t, StatusInserted, other.Status)
}

func TestInsertTransactionPreservesNilNumerics(t *testing.T) {
	s := newTestStore(t)

	tx := sampleTransaction("ibkr-3")
	tx.Price = nil
	tx.FxRate = nil
	require.Equal(t, StatusInserted, s.InsertTransaction(tx).Status)

	stored, err := s.FindTransactionsByTypes(models.TxBuy)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Nil(t, stored[0].Price, "absent price must come back nil, not zero")
	require.Nil(t, stored[0].FxRate)
	require.NotNil(t, stored[0].Quantity)
	require.Equal(t, 10.0, *stored[0].Quantity)
}

func TestInsertTradeIdempotent(t *testing.T) {
	s := newTestStore(t)
	trade := models.Trade{
		ExternalID: "ibkr-t1",
		Broker:     "ibkr",
		Type:       models.TxBuy,
		ISIN:       "US0378331005",
		Symbol:     "AAPL",
		TradeDate:  date(2024, 3, 15),
		Quantity:   10,
		Currency:   "USD",
	}
	require.Equal(t, StatusInserted, s.InsertTrade(trade).Status)
	require.Equal(t, StatusSkipped, s.InsertTrade(trade).Status)
}

func TestDividendDedupByISINAndDate(t *testing.T) {
	s := newTestStore(t)
	d := models.DividendPayment{
		ExternalID: "div-1",
		Broker:     "ibkr",
		ISIN:       "US0378331005",
		Symbol:     "AAPL",
		PayDate:    date(2024, 5, 16),
		AmountType: models.AmountPerShare,
		Amount:     0.24,
		Currency:   "USD",
	}
	require.Equal(t, StatusInserted, s.InsertDividendPayment(d).Status)

	exists, err := s.DividendExistsByISINDate("US0378331005", date(2024, 5, 16))
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.DividendExistsByISINDate("US0378331005", date(2024, 8, 16))
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = s.DividendExistsBySymbolDate("AAPL", date(2024, 5, 16))
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSnapshotInsertIsAtomicAndDeduped(t *testing.T) {
	s := newTestStore(t)

	snap := models.PortfolioSnapshot{ID: "snap-1", SnapshotDate: date(2024, 3, 15), Broker: "ibkr"}
	positions := []models.Position{
		{SnapshotID: "snap-1", ISIN: "FI0009005961", Symbol: "NOKIA", Date: date(2024, 3, 15), Quantity: 200},
		{SnapshotID: "snap-1", ISIN: "FI0009005961", Symbol: "NOKIA", Date: date(2024, 3, 15), Quantity: 200},
		{SnapshotID: "snap-1", Symbol: "XYZ", Date: date(2024, 3, 15), Quantity: 5},
	}

	inserted, err := s.InsertSnapshotWithPositions(snap, positions)
	require.NoError(t, err)
	require.Equal(t, 2, inserted, "duplicate position within one snapshot must be dropped")

	exists, err := s.SnapshotExists("ibkr", date(2024, 3, 15))
	require.NoError(t, err)
	require.True(t, exists)

	dates, err := s.SnapshotDates()
	require.NoError(t, err)
	require.Len(t, dates, 1)
}

func TestFxRateNearestPreceding(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, StatusInserted, s.UpsertFxRate(date(2024, 3, 1), "SEK", 0.094).Status)
	require.Equal(t, StatusInserted, s.UpsertFxRate(date(2024, 3, 10), "SEK", 0.095).Status)

	rate, found, err := s.FxRateOn("SEK", date(2024, 3, 5))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 0.094, rate, "should pick the nearest preceding rate")

	rate, found, err = s.FxRateOn("SEK", date(2024, 3, 10))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 0.095, rate)

	_, found, err = s.FxRateOn("SEK", date(2024, 2, 1))
	require.NoError(t, err)
	require.False(t, found, "no rate exists before the first stored date")

	rate, found, err = s.FxRateOn("EUR", date(2024, 3, 5))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1.0, rate, "EUR is the base currency")
}

func TestSoldPositionUniqueness(t *testing.T) {
	s := newTestStore(t)
	sp := models.SoldPosition{
		IdentifierKey: "FI0009005961",
		ISIN:          "FI0009005961",
		Symbol:        "NOKIA",
		Quantity:      20,
		SaleDate:      date(2024, 4, 1),
		SalePrice:     24,
		Currency:      "EUR",
	}
	require.Equal(t, StatusInserted, s.InsertSoldPosition(sp).Status)
	require.Equal(t, StatusSkipped, s.InsertSoldPosition(sp).Status)

	exists, err := s.SoldPositionExists("FI0009005961", date(2024, 4, 1), 20)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCostUniquePerTransaction(t *testing.T) {
	s := newTestStore(t)
	out := s.InsertTransaction(sampleTransaction("ibkr-c1"))
	require.Equal(t, StatusInserted, out.Status)

	cost := models.Cost{
		BrokerTransactionID: out.ID,
		Type:                models.CostCommission,
		Date:                date(2024, 3, 15),
		Amount:              1,
		Currency:            "USD",
	}
	require.Equal(t, StatusInserted, s.InsertCost(cost).Status)
	require.Equal(t, StatusSkipped, s.InsertCost(cost).Status)

	exists, err := s.CostExistsForTransaction(out.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestResolutionUpsert(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveResolution(Resolution{ISIN: "FI0009005961", Status: ResolutionPending}))

	pending, err := s.ListPendingResolutions()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.SaveResolution(Resolution{
		ISIN: "FI0009005961", Status: ResolutionResolved, Symbol: "NOKIA.HE",
	}))

	got, err := s.GetResolution("FI0009005961")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, ResolutionResolved, got.Status)
	require.Equal(t, "NOKIA.HE", got.Symbol)

	pending, err = s.ListPendingResolutions()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRecomputeSoldPositionKeys(t *testing.T) {
	s := newTestStore(t)
	sp := models.SoldPosition{
		IdentifierKey: "symbol:NOKIA",
		Symbol:        "NOKIA",
		Quantity:      20,
		SaleDate:      date(2024, 4, 1),
		SalePrice:     24,
	}
	require.Equal(t, StatusInserted, s.InsertSoldPosition(sp).Status)

	n, err := s.RecomputeSoldPositionKeys(func(symbol string) string {
		if symbol == "NOKIA" {
			return "FI0009005961"
		}
		return ""
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := s.AllSoldPositions()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "FI0009005961", all[0].IdentifierKey)
}

func TestEnsureInstrumentFillsBlanks(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.EnsureInstrument("FI0009005961", "", "", "", "")
	require.NoError(t, err)

	id2, err := s.EnsureInstrument("FI0009005961", "NOKIA", "EUR", "HEX", "STK")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	all, err := s.AllInstruments()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "NOKIA", all[0].Symbol)
	require.Equal(t, "EUR", all[0].Currency)
}
