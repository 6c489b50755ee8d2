package costing

import (
	"sort"

	"bomcost/internal/usage"
)

// CostedUsage is an aggregate joined with its unit price. UnitPrice and
// TotalPrice are nil when the material has no catalog price.
type CostedUsage struct {
	Material   string   `json:"material"`
	TotalUsage float64  `json:"total_usage"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
}

// Priced reports whether the row carries a total price.
func (c CostedUsage) Priced() bool { return c.TotalPrice != nil }

// Join left-joins aggs against cat and returns the costed rows:
//
//   - TotalPrice = TotalUsage × UnitPrice, nil when there is no price;
//   - rows with TotalUsage <= 0 are dropped;
//   - at most one row per material, the first one kept;
//   - sorted by TotalPrice descending with unpriced rows last, ties broken
//     by TotalUsage descending then material name.
//
// A nil or empty catalog is valid and yields all-unpriced rows.
func Join(aggs []usage.Aggregate, cat *Catalog) []CostedUsage {
	out := make([]CostedUsage, 0, len(aggs))
	seen := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		if a.TotalUsage <= 0 {
			continue
		}
		if _, dup := seen[a.Material]; dup {
			continue
		}
		seen[a.Material] = struct{}{}

		row := CostedUsage{Material: a.Material, TotalUsage: a.TotalUsage}
		if p, ok := cat.Lookup(a.Material); ok && p != nil {
			price := *p
			total := a.TotalUsage * price
			row.UnitPrice = &price
			row.TotalPrice = &total
		}
		out = append(out, row)
	}
	SortByPrice(out)
	return out
}

// SortByPrice applies the report ordering described on Join.
func SortByPrice(rows []CostedUsage) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Priced() != b.Priced() {
			return a.Priced()
		}
		if a.Priced() && *a.TotalPrice != *b.TotalPrice {
			return *a.TotalPrice > *b.TotalPrice
		}
		if a.TotalUsage != b.TotalUsage {
			return a.TotalUsage > b.TotalUsage
		}
		return a.Material < b.Material
	})
}

// Unpriced lists the materials in rows that have no catalog price, in row
// order.
func Unpriced(rows []CostedUsage) []string {
	var out []string
	for _, r := range rows {
		if !r.Priced() {
			out = append(out, r.Material)
		}
	}
	return out
}

// TotalPrice sums the priced rows.
func TotalPrice(rows []CostedUsage) float64 {
	var sum float64
	for _, r := range rows {
		if r.TotalPrice != nil {
			sum += *r.TotalPrice
		}
	}
	return sum
}
