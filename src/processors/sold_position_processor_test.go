package processors

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/reference"
)

func TestSoldPositionNordnetBackCalculatesBuyPrice(t *testing.T) {
	s := newTestStore(t)
	insertTx(t, s, models.CanonicalTransaction{
		Broker:     "nordnet",
		ExternalID: "nn-buy-1",
		Date:       date(2024, 1, 10),
		Type:       models.TxBuy,
		Symbol:     "NOKIA",
		ISIN:       "FI0009005961",
		Quantity:   floatp(20),
		Price:      floatp(22.58),
		Currency:   "EUR",
	})
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "nordnet",
		ExternalID:  "nn-sell-1",
		Date:        date(2024, 4, 1),
		Type:        models.TxSell,
		Symbol:      "NOKIA",
		ISIN:        "FI0009005961",
		Quantity:    floatp(20),
		Price:       floatp(24),
		RealizedPnl: floatp(28.40),
		Currency:    "EUR",
	})

	summary, err := NewSoldPositionProcessor(s, reference.Defaults()).Run()
	require.NoError(t, err)
	require.Equal(t, 1, summary.Inserted)

	sold, err := s.AllSoldPositions()
	require.NoError(t, err)
	require.Len(t, sold, 1)

	sp := sold[0]
	require.Equal(t, "FI0009005961", sp.IdentifierKey)
	// buy price = sale price - pnl/quantity = 24 - 1.42
	require.NotNil(t, sp.BuyPrice)
	require.InDelta(t, 22.58, *sp.BuyPrice, 1e-9)
	require.NotNil(t, sp.BuyDate)
	require.True(t, sp.BuyDate.Equal(date(2024, 1, 10)))
}

func TestSoldPositionNordnetClampsNonPositiveBuyPrice(t *testing.T) {
	s := newTestStore(t)
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "nordnet",
		ExternalID:  "nn-sell-2",
		Date:        date(2024, 4, 1),
		Type:        models.TxSell,
		Symbol:      "TINY",
		Quantity:    floatp(10),
		Price:       floatp(1),
		RealizedPnl: floatp(50),
		Currency:    "EUR",
	})

	summary, err := NewSoldPositionProcessor(s, reference.Defaults()).Run()
	require.NoError(t, err)
	require.Equal(t, 1, summary.Inserted)

	sold, err := s.AllSoldPositions()
	require.NoError(t, err)
	require.NotNil(t, sold[0].BuyPrice)
	require.Equal(t, 1.0, *sold[0].BuyPrice, "non-positive derived price clamps to the sale price")
	require.Equal(t, "symbol:TINY", sold[0].IdentifierKey)
}

func TestSoldPositionIBKRUsesEarliestBuy(t *testing.T) {
	s := newTestStore(t)
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "ibkr",
		ExternalID:  "ib-buy-1",
		Date:        date(2023, 11, 2),
		Type:        models.TxBuy,
		Symbol:      "AAPL",
		ISIN:        "US0378331005",
		CompanyName: "APPLE INC",
		Quantity:    floatp(10),
		Price:       floatp(170.5),
		Currency:    "USD",
	})
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "ibkr",
		ExternalID:  "ib-buy-2",
		Date:        date(2024, 2, 2),
		Type:        models.TxBuy,
		Symbol:      "AAPL",
		ISIN:        "US0378331005",
		CompanyName: "APPLE INC",
		Quantity:    floatp(5),
		Price:       floatp(185),
		Currency:    "USD",
	})
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "ibkr",
		ExternalID:  "ib-sell-1",
		Date:        date(2024, 6, 20),
		Type:        models.TxSell,
		Symbol:      "AAPL",
		ISIN:        "US0378331005",
		CompanyName: "APPLE INC",
		Quantity:    floatp(10),
		Price:       floatp(195),
		RealizedPnl: floatp(245),
		FxRate:      floatp(0.93),
		Currency:    "USD",
	})

	summary, err := NewSoldPositionProcessor(s, reference.Defaults()).Run()
	require.NoError(t, err)
	require.Equal(t, 1, summary.Inserted)

	sold, err := s.AllSoldPositions()
	require.NoError(t, err)
	sp := sold[0]
	require.NotNil(t, sp.BuyDate)
	require.True(t, sp.BuyDate.Equal(date(2023, 11, 2)), "must pair with the earliest buy")
	require.NotNil(t, sp.BuyPrice)
	require.Equal(t, 170.5, *sp.BuyPrice)
	require.NotNil(t, sp.RealizedPnlEUR)
	require.InDelta(t, 245*0.93, *sp.RealizedPnlEUR, 1e-9)
}

func TestSoldPositionRerunIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	insertTx(t, s, models.CanonicalTransaction{
		Broker:      "nordnet",
		ExternalID:  "nn-sell-3",
		Date:        date(2024, 4, 1),
		Type:        models.TxSell,
		Symbol:      "NOKIA",
		ISIN:        "FI0009005961",
		Quantity:    floatp(20),
		Price:       floatp(24),
		RealizedPnl: floatp(28.40),
		Currency:    "EUR",
	})

	proc := NewSoldPositionProcessor(s, reference.Defaults())
	first, err := proc.Run()
	require.NoError(t, err)
	require.Equal(t, 1, first.Inserted)

	second, err := proc.Run()
	require.NoError(t, err)
	require.Equal(t, 0, second.Inserted)
	require.Equal(t, 1, second.Skipped)
}
