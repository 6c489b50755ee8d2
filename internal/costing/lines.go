package costing

import "bomcost/internal/bom"

// LineCost is one order-line material requirement with its price.
// TotalPrice = Quantity × Usage × UnitPrice and is nil when any factor is.
type LineCost struct {
	bom.Line
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
}

// CostLines prices every line against cat, keeping line order.
func CostLines(lines []bom.Line, cat *Catalog) []LineCost {
	out := make([]LineCost, 0, len(lines))
	for _, l := range lines {
		lc := LineCost{Line: l}
		if p, ok := cat.Lookup(l.Material); ok && p != nil {
			price := *p
			lc.UnitPrice = &price
			if l.Quantity != nil && l.Usage != nil {
				total := *l.Quantity * *l.Usage * price
				lc.TotalPrice = &total
			}
		}
		out = append(out, lc)
	}
	return out
}

// LinesTotal sums the priced lines.
func LinesTotal(lines []LineCost) float64 {
	var sum float64
	for _, l := range lines {
		if l.TotalPrice != nil {
			sum += *l.TotalPrice
		}
	}
	return sum
}

// UnpricedMaterials lists the distinct materials among lines with no
// catalog price, first-seen order.
func UnpricedMaterials(lines []LineCost) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range lines {
		if l.UnitPrice != nil {
			continue
		}
		if _, ok := seen[l.Material]; ok {
			continue
		}
		seen[l.Material] = struct{}{}
		out = append(out, l.Material)
	}
	return out
}
