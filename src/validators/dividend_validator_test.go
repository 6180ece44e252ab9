package validators

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/reference"
)

func newDividendValidator() *DividendValidator {
	return NewDividendValidator(nil, reference.Defaults())
}

func perShare(isin, currency string, amount float64) models.DividendPayment {
	return models.DividendPayment{
		ISIN:       isin,
		PayDate:    date(2024, 5, 16),
		AmountType: models.AmountPerShare,
		Amount:     amount,
		Currency:   currency,
	}
}

func TestSuspiciousAmountThresholds(t *testing.T) {
	v := newDividendValidator()
	tests := []struct {
		name     string
		currency string
		amount   float64
		flagged  bool
	}{
		{"USD under threshold", "USD", 49.99, false},
		{"USD over threshold", "USD", 50.01, true},
		{"USD exactly at threshold", "USD", 50, false},
		{"SEK under threshold", "SEK", 549, false},
		{"SEK over threshold", "SEK", 551, true},
		{"pence quote under its own threshold", "GBp", 3999, false},
		{"pence quote over its own threshold", "GBp", 4001, true},
		{"unlisted currency uses default", "PLN", 51, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := v.SuspiciousAmounts([]models.DividendPayment{
				perShare("US0378331005", tt.currency, tt.amount),
			})
			if tt.flagged {
				require.Len(t, findings, 1)
				require.Equal(t, "suspicious_amount", findings[0].Check)
			} else {
				require.Empty(t, findings)
			}
		})
	}
}

func TestSuspiciousAmountExemptsLumpSums(t *testing.T) {
	v := newDividendValidator()
	d := perShare("US0378331005", "USD", 5000)
	d.AmountType = models.AmountTotalNet
	require.Empty(t, v.SuspiciousAmounts([]models.DividendPayment{d}),
		"a lump sum is not a per-share outlier")
}

func TestCurrencyMismatches(t *testing.T) {
	v := newDividendValidator()

	findings := v.CurrencyMismatches([]models.DividendPayment{
		perShare("US0378331005", "SEK", 1),
	})
	require.Len(t, findings, 1)
	require.Equal(t, "currency_mismatch", findings[0].Check)

	require.Empty(t, v.CurrencyMismatches([]models.DividendPayment{
		perShare("US0378331005", "USD", 1),
	}))

	// GBp is still sterling for prefix purposes.
	require.Empty(t, v.CurrencyMismatches([]models.DividendPayment{
		perShare("GB0002374006", "GBp", 80),
	}))

	// Unknown country prefixes are skipped entirely.
	require.Empty(t, v.CurrencyMismatches([]models.DividendPayment{
		perShare("ZA0000000001", "USD", 1),
	}))
}

func TestInconsistentAmounts(t *testing.T) {
	v := newDividendValidator()
	group := []models.DividendPayment{
		perShare("FI0009005961", "EUR", 0.04),
		perShare("FI0009005961", "EUR", 0.05),
		perShare("FI0009005961", "EUR", 0.045),
		perShare("FI0009005961", "EUR", 0.90),
	}
	findings := v.InconsistentAmounts(group)
	require.Len(t, findings, 1)
	require.Equal(t, 0.90, findings[0].Amount)
}

func TestInconsistentAmountsZeroMedianGuard(t *testing.T) {
	v := newDividendValidator()
	group := []models.DividendPayment{
		perShare("FI0009005961", "EUR", 0),
		perShare("FI0009005961", "EUR", 0),
		perShare("FI0009005961", "EUR", 5),
	}
	require.Empty(t, v.InconsistentAmounts(group), "a zero median disables the ratio check")
}

func TestCrossSourceDuplicates(t *testing.T) {
	v := newDividendValidator()
	a := perShare("US0378331005", "USD", 0.24)
	a.Broker = "ibkr"
	a.Symbol = "AAPL"
	b := perShare("US0378331005", "USD", 0.24)
	b.Broker = "nordnet"
	b.Symbol = "APPLE"

	findings := v.CrossSourceDuplicates([]models.DividendPayment{a, b})
	require.Len(t, findings, 1, "one flagged pair per (ISIN, date)")
	require.Equal(t, "cross_source_duplicate", findings[0].Check)

	// Same broker twice is not a cross-source duplicate.
	b.Broker = "ibkr"
	require.Empty(t, v.CrossSourceDuplicates([]models.DividendPayment{a, b}))
}

func TestMissingFxConversionFindings(t *testing.T) {
	v := newDividendValidator()
	missing := perShare("SE0000108656", "SEK", 2.70)
	converted := perShare("SE0000108656", "SEK", 2.70)
	converted.FxRate = floatp(0.094)
	domestic := perShare("FI0009005961", "EUR", 0.04)

	findings := v.MissingFxConversion([]models.DividendPayment{missing, converted, domestic})
	require.Len(t, findings, 1)
	require.Equal(t, "SEK", findings[0].Currency)
}

func TestSuggestThresholdsRequiresThreeFlags(t *testing.T) {
	v := newDividendValidator()

	two := []Finding{
		{Currency: "USD", Amount: 60},
		{Currency: "USD", Amount: 70},
	}
	require.Empty(t, v.SuggestThresholds(two), "below three flags the routine stays silent")

	three := append(two, Finding{Currency: "USD", Amount: 80})
	suggestions := v.SuggestThresholds(three)
	require.Len(t, suggestions, 1)
	require.InDelta(t, 80*1.2, suggestions["USD"], 1e-9)
}
