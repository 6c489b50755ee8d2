// Package usage reshapes wide order rows into long (row, material, usage)
// occurrences for one material family and aggregates them into total usage
// per normalized material name.
//
// Families are processed independently. A material that appears under two
// families yields one aggregate per family; callers never merge them.
package usage

import (
	"sort"

	"bomcost/internal/normalize"
	"bomcost/internal/orders"
	"bomcost/internal/schema"
)

// Occurrence is one filled material slot on one order row.
type Occurrence struct {
	RowIndex int     `json:"row_index"`
	Slot     int     `json:"slot"`
	Material string  `json:"material"`
	Usage    float64 `json:"usage"`
	Quantity float64 `json:"quantity"`
	// Valid is false when either the usage cell or the row quantity failed
	// numeric parsing; such occurrences contribute zero.
	Valid bool `json:"valid"`
}

// Contribution is usage × quantity, or 0 for an invalid occurrence.
func (o Occurrence) Contribution() float64 {
	if !o.Valid {
		return 0
	}
	return o.Usage * o.Quantity
}

// Aggregate is the total weighted usage of one material within a family.
type Aggregate struct {
	Material   string  `json:"material"`
	TotalUsage float64 `json:"total_usage"`
}

// Reshape emits an Occurrence for every row × slot whose name cell
// normalizes to a non-empty material name. Slot pairing follows fs exactly.
func Reshape(rows []orders.OrderRecord, fs schema.FamilySchema) []Occurrence {
	out := make([]Occurrence, 0, len(rows))
	for i, o := range rows {
		qty, qtyOK := o.Qty()
		for k, s := range fs.Slots {
			name, ok := normalize.Value(o.Row[s.NameColumn])
			if !ok {
				continue
			}
			u, usageOK := orders.ToNumeric(o.Row[s.UsageColumn])
			out = append(out, Occurrence{
				RowIndex: i,
				Slot:     k,
				Material: name,
				Usage:    u,
				Quantity: qty,
				Valid:    usageOK && qtyOK,
			})
		}
	}
	return out
}

// Materials returns the distinct normalized material names in first-seen
// order.
func Materials(occ []Occurrence) []string {
	seen := make(map[string]struct{}, len(occ))
	var out []string
	for _, o := range occ {
		if _, ok := seen[o.Material]; ok {
			continue
		}
		seen[o.Material] = struct{}{}
		out = append(out, o.Material)
	}
	return out
}

// Sum adds up contributions per material. The result holds exactly one
// entry per distinct material, in first-seen order; a material whose every
// occurrence is invalid is kept with a zero total.
func Sum(occ []Occurrence) []Aggregate {
	idx := make(map[string]int, len(occ))
	var out []Aggregate
	for _, o := range occ {
		i, ok := idx[o.Material]
		if !ok {
			i = len(out)
			idx[o.Material] = i
			out = append(out, Aggregate{Material: o.Material})
		}
		out[i].TotalUsage += o.Contribution()
	}
	return out
}

// Family reshapes and aggregates rows for one family schema.
func Family(rows []orders.OrderRecord, fs schema.FamilySchema) []Aggregate {
	return Sum(Reshape(rows, fs))
}

// SortByUsage orders aggregates by descending total usage, breaking ties by
// material name so output is deterministic.
func SortByUsage(aggs []Aggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		if aggs[i].TotalUsage != aggs[j].TotalUsage {
			return aggs[i].TotalUsage > aggs[j].TotalUsage
		}
		return aggs[i].Material < aggs[j].Material
	})
}

// Total is the sum of TotalUsage over aggs.
func Total(aggs []Aggregate) float64 {
	var sum float64
	for _, a := range aggs {
		sum += a.TotalUsage
	}
	return sum
}
