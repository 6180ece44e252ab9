package utils

import "strings"

// CountryPrefix returns the two-letter country prefix of an ISIN, upper-cased.
// Returns "" for strings too short to carry one.
func CountryPrefix(isin string) string {
	isin = strings.TrimSpace(isin)
	if len(isin) < 2 {
		return ""
	}
	return strings.ToUpper(isin[:2])
}

// LooksLikeISIN reports whether s has the shape of an ISIN: two letters
// followed by ten alphanumeric characters. It does not verify the check digit;
// broker exports occasionally carry ISINs that fail it.
func LooksLikeISIN(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 12 {
		return false
	}
	for i, r := range s {
		switch {
		case i < 2:
			if r < 'A' || r > 'Z' {
				return false
			}
		default:
			if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
