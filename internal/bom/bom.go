// Package bom joins order-list rows to their bill of materials by model and
// melts the BOM's material slots into one line per (order, material).
package bom

import (
	"errors"
	"fmt"
	"time"

	"bomcost/internal/normalize"
	"bomcost/internal/orders"
	"bomcost/internal/schema"
	"bomcost/internal/transformer/builtin"
	"bomcost/pkg/records"
)

// DefaultModelColumn is the BOM column holding the model name orders refer to.
const DefaultModelColumn = "CONFIRM MODEL NAME"

// Line keys used for the long-form intermediate records.
const (
	keyPI       = "PI NUMBER"
	keyMaterial = "MATERIAL"
	keyUsage    = "USAGE"
	keyFamily   = "FAMILY"
	keyOrderIdx = "ORDER INDEX"
)

// Line is one material requirement of one order line.
type Line struct {
	PINumber  string     `json:"pi_number"`
	Model     string     `json:"model"`
	Order     string     `json:"order,omitempty"`
	Type      string     `json:"type,omitempty"`
	Timestamp *time.Time `json:"timestamp"`
	Family    string     `json:"family"`
	Material  string     `json:"material"`
	// Usage is the per-unit usage from the BOM; nil when not numeric.
	Usage *float64 `json:"usage"`
	// Quantity is the ordered quantity; nil when not numeric.
	Quantity *float64 `json:"quantity"`
}

// Index maps a normalized model name to its BOM row.
type Index struct {
	columns []string
	rows    map[string]records.Record
}

// NewIndex indexes t by modelCol. The first row per model wins; rows without
// a model are skipped.
func NewIndex(t records.Table, modelCol string) *Index {
	if modelCol == "" {
		modelCol = DefaultModelColumn
	}
	idx := &Index{columns: t.Columns, rows: make(map[string]records.Record, len(t.Rows))}
	for _, r := range t.Rows {
		m, ok := normalize.Value(r[modelCol])
		if !ok {
			continue
		}
		if _, dup := idx.rows[m]; dup {
			continue
		}
		idx.rows[m] = r
	}
	return idx
}

// Columns is the BOM header.
func (i *Index) Columns() []string { return i.columns }

// Lookup returns the BOM row for model.
func (i *Index) Lookup(model string) (records.Record, bool) {
	r, ok := i.rows[normalize.Name(model)]
	return r, ok
}

// Schemas resolves the slot layout of every family prefix on the BOM header.
// Prefixes with no columns in the BOM are skipped; a name/usage count
// mismatch is returned as an error.
func (i *Index) Schemas(prefixes []string) ([]schema.FamilySchema, error) {
	var out []schema.FamilySchema
	for _, p := range prefixes {
		fs, err := schema.Infer(p, i.columns)
		if errors.Is(err, schema.ErrNoSlots) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("bom: %w", err)
		}
		out = append(out, fs)
	}
	return out, nil
}

// Expansion is the result of Expand.
type Expansion struct {
	Lines []Line `json:"lines"`
	// UnmatchedModels lists order models with no BOM row, first-seen order.
	UnmatchedModels []string `json:"unmatched_models"`
}

// Expand left-joins every order to its BOM row and emits one Line per filled
// material slot across families. Lines repeating a (PI NUMBER, MATERIAL)
// pair are dropped, keeping the first.
func Expand(rows []orders.OrderRecord, idx *Index, families []schema.FamilySchema) Expansion {
	var (
		long      []records.Record
		unmatched []string
		missing   = map[string]struct{}{}
	)
	for oi, o := range rows {
		b, ok := idx.Lookup(o.Model)
		if !ok {
			m := normalize.Name(o.Model)
			if _, seen := missing[m]; !seen && m != "" {
				missing[m] = struct{}{}
				unmatched = append(unmatched, o.Model)
			}
			continue
		}
		for _, fs := range families {
			for _, s := range fs.Slots {
				name, ok := normalize.Value(b[s.NameColumn])
				if !ok {
					continue
				}
				long = append(long, records.Record{
					keyPI:       o.PINumber,
					keyMaterial: name,
					keyUsage:    b[s.UsageColumn],
					keyFamily:   fs.Prefix,
					keyOrderIdx: oi,
				})
			}
		}
	}

	long = builtin.DeDup{Keys: []string{keyPI, keyMaterial}, Policy: "keep-first"}.Apply(long)

	lines := make([]Line, 0, len(long))
	for _, r := range long {
		o := rows[r[keyOrderIdx].(int)]
		l := Line{
			PINumber:  o.PINumber,
			Model:     o.Model,
			Order:     o.Order,
			Type:      o.Type,
			Timestamp: o.Timestamp,
			Family:    r[keyFamily].(string),
			Material:  r[keyMaterial].(string),
			Quantity:  o.Quantity,
		}
		if u, ok := orders.ToNumeric(r[keyUsage]); ok {
			l.Usage = &u
		}
		lines = append(lines, l)
	}
	return Expansion{Lines: lines, UnmatchedModels: unmatched}
}
