package validators

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/reference"
	"github.com/username/flexfolio/src/store"
	"github.com/username/flexfolio/src/utils"
)

// inconsistencyFactor flags a per-share amount more than this many times the
// group median.
const inconsistencyFactor = 10

// thresholdSuggestionMinFlags gates threshold suggestions: below this many
// flagged amounts per currency a suggestion would be a noisy single-sample
// guess, so the routine stays silent.
const thresholdSuggestionMinFlags = 3

// DividendValidator runs the data-quality checks over stored dividend
// payments. All checks read the same snapshot of the dividends table.
type DividendValidator struct {
	store  *store.Store
	tables *reference.Tables
}

func NewDividendValidator(s *store.Store, tables *reference.Tables) *DividendValidator {
	return &DividendValidator{store: s, tables: tables}
}

// Validate runs every check and returns the combined findings plus the
// per-currency threshold suggestions derived from the suspicious-amount
// flags.
func (v *DividendValidator) Validate() ([]Finding, map[string]float64, error) {
	dividends, err := v.store.AllDividends()
	if err != nil {
		return nil, nil, fmt.Errorf("loading dividends: %w", err)
	}

	var findings []Finding
	suspicious := v.SuspiciousAmounts(dividends)
	findings = append(findings, suspicious...)
	findings = append(findings, v.CurrencyMismatches(dividends)...)
	findings = append(findings, v.InconsistentAmounts(dividends)...)
	findings = append(findings, v.CrossSourceDuplicates(dividends)...)
	findings = append(findings, v.MissingFxConversion(dividends)...)

	return findings, v.SuggestThresholds(suspicious), nil
}

// SuspiciousAmounts flags per-share amounts strictly above the per-currency
// threshold. Lump-sum amounts are exempt; a large total is normal for a
// large holding.
func (v *DividendValidator) SuspiciousAmounts(dividends []models.DividendPayment) []Finding {
	var out []Finding
	for _, d := range dividends {
		if d.AmountType != models.AmountPerShare {
			continue
		}
		threshold := v.tables.Threshold(d.Currency)
		if d.Amount > threshold {
			out = append(out, Finding{
				Check:    "suspicious_amount",
				Severity: SeverityWarn,
				ISIN:     d.ISIN,
				Symbol:   d.Symbol,
				Date:     d.PayDate,
				Currency: d.Currency,
				Amount:   d.Amount,
				Message:  fmt.Sprintf("per-share amount %.4f %s exceeds threshold %.2f", d.Amount, d.Currency, threshold),
			})
		}
	}
	return out
}

// CurrencyMismatches flags dividends whose currency disagrees with the one
// expected for the ISIN's country prefix. Prefixes without a table entry are
// skipped so exotic markets do not produce false positives.
func (v *DividendValidator) CurrencyMismatches(dividends []models.DividendPayment) []Finding {
	var out []Finding
	for _, d := range dividends {
		prefix := utils.CountryPrefix(d.ISIN)
		if prefix == "" {
			continue
		}
		expected, known := v.tables.PrefixCurrencies[prefix]
		if !known {
			continue
		}
		// Pence quotes are still sterling for country-prefix purposes.
		actual := d.Currency
		if actual == "GBp" {
			actual = "GBP"
		}
		if actual != "" && actual != expected {
			out = append(out, Finding{
				Check:    "currency_mismatch",
				Severity: SeverityWarn,
				ISIN:     d.ISIN,
				Symbol:   d.Symbol,
				Date:     d.PayDate,
				Currency: d.Currency,
				Amount:   d.Amount,
				Message:  fmt.Sprintf("ISIN prefix %s expects %s but dividend is in %s", prefix, expected, d.Currency),
			})
		}
	}
	return out
}

// InconsistentAmounts groups per-share dividends by instrument and flags any
// amount more than 10x the group median. A zero median disables the check
// for that group.
func (v *DividendValidator) InconsistentAmounts(dividends []models.DividendPayment) []Finding {
	groups := make(map[string][]models.DividendPayment)
	for _, d := range dividends {
		if d.AmountType != models.AmountPerShare {
			continue
		}
		key := d.ISIN
		if key == "" {
			key = d.Symbol
		}
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], d)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Finding
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		med := median(group)
		if med == 0 {
			continue
		}
		for _, d := range group {
			if d.Amount > med*inconsistencyFactor {
				out = append(out, Finding{
					Check:    "inconsistent_amount",
					Severity: SeverityWarn,
					ISIN:     d.ISIN,
					Symbol:   d.Symbol,
					Date:     d.PayDate,
					Currency: d.Currency,
					Amount:   d.Amount,
					Message:  fmt.Sprintf("per-share amount %.4f is more than %dx the group median %.4f", d.Amount, inconsistencyFactor, med),
				})
			}
		}
	}
	return out
}

// CrossSourceDuplicates flags pairs of dividend records that share ISIN and
// pay date but come from different brokers. Each pair is reported once.
func (v *DividendValidator) CrossSourceDuplicates(dividends []models.DividendPayment) []Finding {
	type key struct {
		isin string
		date string
	}
	groups := make(map[key][]models.DividendPayment)
	var order []key
	for _, d := range dividends {
		if d.ISIN == "" {
			continue
		}
		k := key{d.ISIN, d.PayDate.Format(utils.ISODateFormat)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}

	var out []Finding
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		brokers := make(map[string]bool)
		for _, d := range group {
			brokers[d.Broker] = true
		}
		if len(brokers) < 2 {
			continue
		}
		names := make([]string, 0, len(brokers))
		for b := range brokers {
			names = append(names, b)
		}
		sort.Strings(names)
		out = append(out, Finding{
			Check:    "cross_source_duplicate",
			Severity: SeverityWarn,
			ISIN:     k.isin,
			Symbol:   group[0].Symbol,
			Date:     group[0].PayDate,
			Currency: group[0].Currency,
			Amount:   group[0].Amount,
			Message:  fmt.Sprintf("dividend on %s recorded by multiple sources: %s", k.date, strings.Join(names, ", ")),
		})
	}
	return out
}

// MissingFxConversion flags non-EUR dividends that never received an FX rate.
func (v *DividendValidator) MissingFxConversion(dividends []models.DividendPayment) []Finding {
	var out []Finding
	for _, d := range dividends {
		if d.Currency == "" || d.Currency == "EUR" {
			continue
		}
		if d.FxRate != nil && *d.FxRate != 0 {
			continue
		}
		out = append(out, Finding{
			Check:    "missing_fx_conversion",
			Severity: SeverityWarn,
			ISIN:     d.ISIN,
			Symbol:   d.Symbol,
			Date:     d.PayDate,
			Currency: d.Currency,
			Amount:   d.Amount,
			Message:  fmt.Sprintf("%s dividend has no FX rate to EUR", d.Currency),
		})
	}
	return out
}

// SuggestThresholds recommends a revised per-currency threshold from the
// flagged amounts: the 95th percentile times 1.2, once a currency has
// accumulated at least 3 flags.
func (v *DividendValidator) SuggestThresholds(suspicious []Finding) map[string]float64 {
	byCurrency := make(map[string][]float64)
	for _, f := range suspicious {
		byCurrency[f.Currency] = append(byCurrency[f.Currency], f.Amount)
	}

	out := make(map[string]float64)
	for currency, amounts := range byCurrency {
		if len(amounts) < thresholdSuggestionMinFlags {
			continue
		}
		sort.Float64s(amounts)
		idx := int(math.Ceil(0.95*float64(len(amounts)))) - 1
		out[currency] = amounts[idx] * 1.2
	}
	return out
}

func median(group []models.DividendPayment) float64 {
	amounts := make([]float64, len(group))
	for i, d := range group {
		amounts[i] = d.Amount
	}
	sort.Float64s(amounts)
	mid := len(amounts) / 2
	if len(amounts)%2 == 1 {
		return amounts[mid]
	}
	return (amounts[mid-1] + amounts[mid]) / 2
}
