// Package flex parses the Interactive Brokers Flex CSV statement family.
// The statement types share overlapping column vocabularies; the router is
// responsible for telling them apart before a parser here runs.
package flex

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/username/flexfolio/src/parsers"
)

const Broker = "ibkr"

// fxPairPattern matches FX-only synthetic trade symbols like "EUR.HKD".
var fxPairPattern = regexp.MustCompile(`^[A-Z]{3}\.[A-Z]{3}$`)

// readAll consumes a Flex CSV into header plus data records. A fully empty
// input is ErrEmptyCSV; a header-only file is an empty record set, not an
// error.
func readAll(r io.Reader) (header []string, records [][]string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV input: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil, parsers.ErrEmptyCSV
	}
	text = parsers.StripDuplicateHeaders(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err = reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records, err = reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return header, records, nil
}

// columnIndex maps column names to their first position in the header.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

// field returns the named column of a record, "" when absent or short.
func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// deriveExternalID builds a deterministic external id from the identifying
// parts of a row, for sources that do not assign their own unique ids. The
// same input always yields the same id, which is what makes re-import
// idempotent without broker cooperation.
func deriveExternalID(parts ...string) string {
	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:24]
}

// isFxPair reports whether a trade symbol denotes a currency pair rather
// than a security.
func isFxPair(symbol string) bool {
	return fxPairPattern.MatchString(symbol)
}
