// Package reference holds the static lookup tables the engine consults:
// exchange suffixes, curated ISIN mappings, validator thresholds. They are
// loaded once at startup from a YAML file into an explicit Tables value that
// gets passed to the components needing it, so tests can substitute their own.
package reference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables is the process-wide immutable reference configuration.
type Tables struct {
	// ExchangeSuffixes maps a broker exchange name to the ticker suffix used
	// by the quote provider, e.g. "HEX" -> ".HE".
	ExchangeSuffixes map[string]string `yaml:"exchange_suffixes"`

	// StaticSymbols is the curated ISIN -> ticker table consulted before any
	// external lookup.
	StaticSymbols map[string]string `yaml:"static_symbols"`

	// UnmappableISINs lists ISINs known to have no tradable ticker, with a
	// short reason each.
	UnmappableISINs map[string]string `yaml:"unmappable_isins"`

	// UnmappableKeywords marks leveraged/structured products by name match.
	UnmappableKeywords []string `yaml:"unmappable_keywords"`

	// SuspiciousThresholds holds per-currency per-share dividend thresholds.
	// Currencies not listed fall back to DefaultThreshold.
	SuspiciousThresholds map[string]float64 `yaml:"suspicious_thresholds"`
	DefaultThreshold     float64            `yaml:"default_threshold"`

	// PrefixCurrencies maps an ISIN country prefix to its expected dividend
	// currency. Prefixes not listed are skipped by the mismatch check.
	PrefixCurrencies map[string]string `yaml:"prefix_currencies"`
}

// Load reads the tables from a YAML file. Missing sections fall back to the
// built-in defaults so a partial file stays usable.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference tables file '%s': %w", path, err)
	}
	t := Defaults()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reference tables from '%s': %w", path, err)
	}
	if t.DefaultThreshold <= 0 {
		t.DefaultThreshold = 50
	}
	return t, nil
}

// Defaults returns the built-in tables. They mirror the values the engine
// shipped with before the tables moved into configuration.
func Defaults() *Tables {
	return &Tables{
		ExchangeSuffixes: map[string]string{
			"HEX":  ".HE",
			"SFB":  ".ST",
			"OSE":  ".OL",
			"CPH":  ".CO",
			"LSE":  ".L",
			"IBIS": ".DE",
			"AEB":  ".AS",
			"SBF":  ".PA",
			"TSE":  ".TO",
		},
		StaticSymbols: map[string]string{
			"FI0009005961": "NOKIA.HE",
			"FI0009000681": "NDA-FI.HE",
			"SE0000108656": "ERIC-B.ST",
			"US0378331005": "AAPL",
			"IE00B4L5Y983": "IWDA.AS",
		},
		UnmappableISINs: map[string]string{
			"FI4000047485": "delisted",
			"SE0005676566": "structured product",
		},
		UnmappableKeywords: []string{
			"BULL", "BEAR", "TRACKER", "TURBO", "MINI L", "MINI S",
			"CERTIFICATE", "WARRANT",
		},
		SuspiciousThresholds: map[string]float64{
			"USD": 50,
			"EUR": 50,
			"GBP": 50,
			"GBp": 4000,
			"SEK": 550,
			"NOK": 550,
			"DKK": 550,
		},
		DefaultThreshold: 50,
		PrefixCurrencies: map[string]string{
			"US": "USD",
			"CA": "CAD",
			"GB": "GBP",
			"SE": "SEK",
			"NO": "NOK",
			"DK": "DKK",
			"CH": "CHF",
			"FI": "EUR",
			"IE": "EUR",
			"DE": "EUR",
			"FR": "EUR",
			"NL": "EUR",
		},
	}
}

// Threshold returns the suspicious-amount threshold for a currency.
func (t *Tables) Threshold(currency string) float64 {
	if v, ok := t.SuspiciousThresholds[currency]; ok {
		return v
	}
	return t.DefaultThreshold
}
