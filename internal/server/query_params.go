package server

import (
	"net/url"
	"strings"
	"time"

	"bomcost/internal/filter"
)

// Query parameters of the report endpoints. Each may repeat. An absent
// parameter leaves its clause unconstrained; a parameter present only with
// empty values (?trip=) matches nothing. plan_date is the exception: no
// dates means no constraint.
const (
	paramMonth         = "month"
	paramDeliveryMonth = "delivery_month"
	paramTrip          = "trip"
	paramPI            = "pi"
	paramCategory      = "category"
	paramPlanDate      = "plan_date"
	paramFamily        = "family"
)

func selection(q url.Values, name string) filter.Selection {
	vals, ok := q[name]
	if !ok {
		return filter.All()
	}
	return filter.Only(nonEmpty(vals)...)
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parsePredicates(q url.Values) (filter.Predicates, error) {
	p := filter.Predicates{
		OrderMonths:    selection(q, paramMonth),
		DeliveryMonths: selection(q, paramDeliveryMonth),
		Trips:          selection(q, paramTrip),
		PINumbers:      selection(q, paramPI),
		Categories:     selection(q, paramCategory),
	}
	for _, sel := range []struct {
		name string
		vals filter.Selection
	}{{paramMonth, p.OrderMonths}, {paramDeliveryMonth, p.DeliveryMonths}} {
		for _, v := range sel.vals {
			if _, err := time.Parse(filter.MonthLayout, v); err != nil {
				return filter.Predicates{}, &invalidParam{Name: sel.name, Value: v}
			}
		}
	}
	for _, v := range nonEmpty(q[paramPlanDate]) {
		if _, err := time.Parse(filter.DateLayout, v); err != nil {
			return filter.Predicates{}, &invalidParam{Name: paramPlanDate, Value: v}
		}
		p.PlanDates = append(p.PlanDates, v)
	}
	return p, nil
}
