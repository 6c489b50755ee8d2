// Package records defines the in-memory row model shared by the sources,
// parsers and report stages. A Record maps a column name to its value; a
// missing or empty cell is represented as nil.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Record is one row keyed by column name.
type Record map[string]any

// Table is an ordered set of rows plus the header they were read with.
// Columns preserves the source order, which matters for positional slot
// pairing.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the header.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// UniqueColumns renames repeated header names so that every column keeps
// its own cells: the second "WOOD" becomes "WOOD.1", the third "WOOD.2".
// Blank names are left as they are for Clean to drop, and a suffix that
// collides with another header moves on to the next number.
func UniqueColumns(cols []string) []string {
	taken := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		taken[c] = struct{}{}
	}
	used := make(map[string]struct{}, len(cols))
	next := make(map[string]int)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c
		if strings.TrimSpace(c) == "" {
			continue
		}
		if _, dup := used[c]; !dup {
			used[c] = struct{}{}
			continue
		}
		for {
			next[c]++
			cand := c + "." + strconv.Itoa(next[c])
			_, clash := taken[cand]
			if _, u := used[cand]; !clash && !u {
				out[i] = cand
				used[cand] = struct{}{}
				break
			}
		}
	}
	return out
}

// Clean drops rows whose every cell is nil and columns whose header is empty
// or starts with "Unnamed" (spreadsheet exports pad the header that way).
// It returns a new Table; the receiver is left untouched.
func (t Table) Clean() Table {
	cols := make([]string, 0, len(t.Columns))
	dropped := map[string]struct{}{}
	for _, c := range t.Columns {
		if strings.TrimSpace(c) == "" || strings.HasPrefix(c, "Unnamed") {
			dropped[c] = struct{}{}
			continue
		}
		cols = append(cols, c)
	}

	rows := make([]Record, 0, len(t.Rows))
	for _, r := range t.Rows {
		out := make(Record, len(cols))
		empty := true
		for _, c := range cols {
			v := r[c]
			out[c] = v
			if v != nil {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, out)
	}
	return Table{Name: t.Name, Columns: cols, Rows: rows}
}

// Fingerprint returns a content hash over the header and every cell in
// header order. Two tables with identical content hash equally regardless of
// map iteration order.
func (t Table) Fingerprint() uint64 {
	h := xxh3.New()
	for _, c := range t.Columns {
		_, _ = h.WriteString(c)
		_, _ = h.Write([]byte{0x1f})
	}
	_, _ = h.Write([]byte{0x1e})
	for _, r := range t.Rows {
		for _, c := range t.Columns {
			_, _ = h.WriteString(String(r[c]))
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{0x1e})
	}
	return h.Sum64()
}

// String renders a cell value for display and hashing. nil renders as "\x00".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
