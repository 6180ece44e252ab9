package processors

import "fmt"

// RunSummary tallies one derivation pass. Skips are expected on every re-run;
// a nonzero Failed count is what warrants attention.
type RunSummary struct {
	Scanned  int
	Inserted int
	Skipped  int
	Failed   int
}

func (s RunSummary) String() string {
	return fmt.Sprintf("scanned=%d inserted=%d skipped=%d failed=%d",
		s.Scanned, s.Inserted, s.Skipped, s.Failed)
}

// DerivedRecordProcessor is a batch job that scans already-ingested raw
// transactions and upserts higher-level facts. Every implementation is
// idempotent: re-running over the same rows inserts nothing new.
type DerivedRecordProcessor interface {
	Run() (RunSummary, error)
}
