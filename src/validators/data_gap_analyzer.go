package validators

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/store"
)

const (
	// maxDividendGapDays is the longest plausible span between consecutive
	// dividends of one instrument. Most payers distribute at least annually;
	// 400 days leaves room for a shifted annual schedule.
	maxDividendGapDays = 400

	// maxSnapshotGapDays is the longest acceptable span between portfolio
	// snapshots under the expected weekly delivery. Exactly 7 days is on
	// schedule and not a gap.
	maxSnapshotGapDays = 7

	coverageChunkDays = 365
)

// Gap is one detected hole in the data history.
type Gap struct {
	Identifier string
	From       time.Time
	To         time.Time
	Days       int
}

// CoverageChunk is one window of the snapshot history with its delivery
// completeness relative to the expected weekly cadence.
type CoverageChunk struct {
	From     time.Time
	To       time.Time
	Expected int
	Actual   int
	Percent  float64
}

// DataGapAnalyzer reports holes in the dividend and snapshot history.
type DataGapAnalyzer struct {
	store *store.Store
}

func NewDataGapAnalyzer(s *store.Store) *DataGapAnalyzer {
	return &DataGapAnalyzer{store: s}
}

// DividendGaps flags spans of more than 400 days between consecutive
// dividends of the same instrument.
func (a *DataGapAnalyzer) DividendGaps() ([]Gap, error) {
	dividends, err := a.store.AllDividends()
	if err != nil {
		return nil, fmt.Errorf("loading dividends: %w", err)
	}

	byInstrument := make(map[string][]models.DividendPayment)
	for _, d := range dividends {
		key := d.ISIN
		if key == "" {
			key = d.Symbol
		}
		if key == "" {
			continue
		}
		byInstrument[key] = append(byInstrument[key], d)
	}

	keys := make([]string, 0, len(byInstrument))
	for k := range byInstrument {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Gap
	for _, key := range keys {
		group := byInstrument[key]
		sort.Slice(group, func(i, j int) bool { return group[i].PayDate.Before(group[j].PayDate) })
		for i := 1; i < len(group); i++ {
			days := daysBetween(group[i-1].PayDate, group[i].PayDate)
			if days > maxDividendGapDays {
				out = append(out, Gap{
					Identifier: key,
					From:       group[i-1].PayDate,
					To:         group[i].PayDate,
					Days:       days,
				})
			}
		}
	}
	return out, nil
}

// SnapshotGaps flags spans of more than 7 days between consecutive portfolio
// snapshots.
func (a *DataGapAnalyzer) SnapshotGaps() ([]Gap, error) {
	dates, err := a.store.SnapshotDates()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot dates: %w", err)
	}
	var out []Gap
	for i := 1; i < len(dates); i++ {
		days := daysBetween(dates[i-1], dates[i])
		if days > maxSnapshotGapDays {
			out = append(out, Gap{From: dates[i-1], To: dates[i], Days: days})
		}
	}
	return out, nil
}

// SnapshotCoverage chunks the snapshot history into windows of at most 365
// days and reports per-window completeness against the weekly cadence.
func (a *DataGapAnalyzer) SnapshotCoverage() ([]CoverageChunk, error) {
	dates, err := a.store.SnapshotDates()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot dates: %w", err)
	}
	if len(dates) == 0 {
		return nil, nil
	}

	first, last := dates[0], dates[len(dates)-1]
	var out []CoverageChunk
	for start := first; !start.After(last); start = start.AddDate(0, 0, coverageChunkDays) {
		end := start.AddDate(0, 0, coverageChunkDays-1)
		if end.After(last) {
			end = last
		}

		actual := 0
		for _, d := range dates {
			if !d.Before(start) && !d.After(end) {
				actual++
			}
		}

		expected := (daysBetween(start, end) / 7) + 1
		percent := float64(actual) / float64(expected) * 100
		if percent > 100 {
			percent = 100
		}
		out = append(out, CoverageChunk{
			From:     start,
			To:       end,
			Expected: expected,
			Actual:   actual,
			Percent:  percent,
		})
	}
	return out, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
