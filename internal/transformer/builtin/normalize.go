// Package builtin contains the record transformers used on source snapshots.
package builtin

import (
	"strings"

	"bomcost/pkg/records"
)

// Normalize trims surrounding whitespace from every string cell and turns
// U+00A0 NO-BREAK SPACE into an ASCII space. Cells that end up empty become
// nil so that "blank" and "missing" are indistinguishable downstream.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			if s == "" {
				r[k] = nil
				continue
			}
			r[k] = s
		}
	}
	return in
}
