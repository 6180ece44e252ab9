package validators

import (
	"fmt"

	"github.com/username/flexfolio/src/store"
)

// SchemaIntegrity runs the structural safety-net checks. The store's unique
// and foreign-key constraints should make the error-severity checks come
// back empty; a hit means a constraint was dropped or bypassed.
type SchemaIntegrity struct {
	store *store.Store
}

func NewSchemaIntegrity(s *store.Store) *SchemaIntegrity {
	return &SchemaIntegrity{store: s}
}

func (v *SchemaIntegrity) Validate() ([]Finding, error) {
	var out []Finding

	orphans, err := v.store.OrphanInstruments()
	if err != nil {
		return nil, fmt.Errorf("checking orphan instruments: %w", err)
	}
	for _, i := range orphans {
		out = append(out, Finding{
			Check:    "orphan_instrument",
			Severity: SeverityInfo,
			ISIN:     i.ISIN,
			Symbol:   i.Symbol,
			Message:  "no trades or dividends reference this instrument",
		})
	}

	missingCurrency, err := v.store.InstrumentsMissingCurrency()
	if err != nil {
		return nil, fmt.Errorf("checking instrument currencies: %w", err)
	}
	for _, i := range missingCurrency {
		out = append(out, Finding{
			Check:    "null_required_field",
			Severity: SeverityWarn,
			ISIN:     i.ISIN,
			Message:  "instrument has no currency recorded",
		})
	}

	orphanPositions, err := v.store.OrphanPositionCount()
	if err != nil {
		return nil, fmt.Errorf("checking position references: %w", err)
	}
	if orphanPositions > 0 {
		out = append(out, Finding{
			Check:    "referential_integrity",
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d positions reference a missing snapshot", orphanPositions),
		})
	}

	orphanCosts, err := v.store.OrphanCostCount()
	if err != nil {
		return nil, fmt.Errorf("checking cost references: %w", err)
	}
	if orphanCosts > 0 {
		out = append(out, Finding{
			Check:    "referential_integrity",
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d costs reference a missing transaction", orphanCosts),
		})
	}

	duplicates, err := v.store.DuplicateTradeExternalIDs()
	if err != nil {
		return nil, fmt.Errorf("checking trade duplicates: %w", err)
	}
	for _, id := range duplicates {
		out = append(out, Finding{
			Check:    "duplicate_external_id",
			Severity: SeverityError,
			Message:  fmt.Sprintf("trade external id %s appears more than once", id),
		})
	}

	return out, nil
}
