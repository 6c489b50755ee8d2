// Package costing joins aggregated material usage against the price
// catalog and computes monetary totals, both per material and per order
// line.
package costing

import (
	"bomcost/internal/normalize"
	"bomcost/internal/orders"
	"bomcost/pkg/records"
)

// PriceEntry is one price-list row.
type PriceEntry struct {
	Description string   `json:"description"`
	UnitPrice   *float64 `json:"unit_price"`
}

// PriceColumns names the price-list columns.
type PriceColumns struct {
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
}

// DefaultPriceColumns is the header layout of the PRICE LIST sheet.
func DefaultPriceColumns() PriceColumns {
	return PriceColumns{Description: "Description", UnitPrice: "Unit Price"}
}

// PricesFromTable decodes price entries from t. An unparseable price is kept
// as a nil UnitPrice so the entry still matches by name.
func PricesFromTable(t records.Table, cols PriceColumns) []PriceEntry {
	def := DefaultPriceColumns()
	if cols.Description == "" {
		cols.Description = def.Description
	}
	if cols.UnitPrice == "" {
		cols.UnitPrice = def.UnitPrice
	}
	out := make([]PriceEntry, 0, len(t.Rows))
	for _, r := range t.Rows {
		e := PriceEntry{Description: orders.Text(r[cols.Description])}
		if p, ok := orders.ToNumeric(r[cols.UnitPrice]); ok {
			e.UnitPrice = &p
		}
		out = append(out, e)
	}
	return out
}

// Catalog indexes price entries by normalized description. When several
// entries normalize to the same description the first one wins.
type Catalog struct {
	byName  map[string]PriceEntry
	entries []PriceEntry
}

// NewCatalog builds a Catalog. Entries whose description is empty after
// normalization are ignored.
func NewCatalog(entries []PriceEntry) *Catalog {
	c := &Catalog{byName: make(map[string]PriceEntry, len(entries))}
	for _, e := range entries {
		name := normalize.Name(e.Description)
		if name == "" {
			continue
		}
		if _, dup := c.byName[name]; dup {
			continue
		}
		e.Description = name
		c.byName[name] = e
		c.entries = append(c.entries, e)
	}
	return c
}

// Lookup returns the unit price for a material name. The name is normalized
// before lookup. ok is false when the catalog has no entry; an entry with an
// unparseable price returns (nil, true).
func (c *Catalog) Lookup(material string) (price *float64, ok bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byName[normalize.Name(material)]
	if !ok {
		return nil, false
	}
	return e.UnitPrice, true
}

// Entries returns the deduplicated, normalized entries in source order.
func (c *Catalog) Entries() []PriceEntry {
	if c == nil {
		return nil
	}
	return append([]PriceEntry(nil), c.entries...)
}

// Len is the number of distinct priced materials.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
