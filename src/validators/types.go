// Package validators holds the read-only data-quality checks. Validators
// never mutate stored data; a check finding zero issues is a normal outcome.
package validators

import "time"

// Status is the outcome of one reconciliation report.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Severity classifies a single data-quality finding.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Report is one named reconciliation result with optional detail lines.
type Report struct {
	Name    string
	Status  Status
	Message string
	Details []string
}

// Finding is one flagged record from a data-quality check.
type Finding struct {
	Check    string
	Severity Severity
	ISIN     string
	Symbol   string
	Date     time.Time
	Currency string
	Amount   float64
	Message  string
}
