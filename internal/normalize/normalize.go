// Package normalize canonicalizes free-text material names so that order
// sheets, the BOM and the price list join on the same key regardless of
// spacing or case drift in hand-entered data.
package normalize

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Name returns the canonical form of s: Unicode compatibility folding (NBSP
// and full-width forms become their ASCII equivalents), uppercasing, then
// trimming surrounding whitespace. Internal whitespace is kept as-is.
//
// Name is idempotent.
func Name(s string) string {
	s = norm.NFKC.String(s)
	// A Caser carries state and must not be shared across goroutines.
	s = cases.Upper(language.Und).String(s)
	return strings.TrimSpace(s)
}

// Value normalizes a cell value. It reports false for nil cells and for
// values that are empty after normalization; such names never take part in
// joins or aggregation.
func Value(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return "", false
	}
	n := Name(s)
	if n == "" {
		return "", false
	}
	return n, true
}

// Equal reports whether a and b normalize to the same non-empty name.
func Equal(a, b string) bool {
	na := Name(a)
	return na != "" && na == Name(b)
}
