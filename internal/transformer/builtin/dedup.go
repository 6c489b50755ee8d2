package builtin

import (
	"strings"

	"bomcost/pkg/records"
)

// DeDup collapses records that share the same values for Keys.
//
// Policy selects the survivor: "keep-first" (default) keeps the earliest
// record, "keep-last" the latest. Survivors stay at the position of the
// first record of their group. Records missing a key field are passed
// through untouched.
type DeDup struct {
	Keys   []string
	Policy string
}

func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}
	keepLast := strings.EqualFold(strings.TrimSpace(d.Policy), "keep-last")

	pos := make(map[string]int, len(in))
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			out = append(out, r)
			continue
		}
		if i, seen := pos[key]; seen {
			if keepLast {
				out[i] = r
			}
			continue
		}
		pos[key] = len(out)
		out = append(out, r)
	}
	return out
}

func (d DeDup) keyOf(r records.Record) (string, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(records.String(v))
	}
	return b.String(), true
}
