package utils

import (
	"strings"
)

// NormalizeTicker converts a user-supplied ticker to the form used by the
// SEC company tickers file: upper case, share-class dots replaced by dashes
// ("brk.b" -> "BRK-B").
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	t = strings.TrimPrefix(t, "$")
	return strings.ReplaceAll(t, ".", "-")
}

// PadCIK pads a CIK number to 10 digits with leading zeros.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// TrimCIK strips leading zeros, the form EDGAR uses in archive paths.
func TrimCIK(cik string) string {
	t := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if t == "" {
		return "0"
	}
	return t
}

// IsNumeric reports whether s is a non-empty string of ASCII digits.
func IsNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
