package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a broker-formatted decimal string. Nordnet exports use
// a comma as the fractional separator, IBKR uses a dot; both are accepted.
// Blank input returns ok=false so callers can distinguish "no data" from a
// true zero.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	// Thousands separators never appear in the exports we ingest, so a comma
	// is always the fractional separator.
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDecimalPtr is ParseDecimal with a nil result for absent values,
// convenient for optional model fields.
func ParseDecimalPtr(s string) *float64 {
	d, ok := ParseDecimal(s)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// AbsFloat returns the absolute value of f. Costs and dividend net amounts
// are stored as positive magnitudes regardless of the sign convention of the
// source row.
func AbsFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
