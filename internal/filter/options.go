package filter

import (
	"sort"
	"time"

	"bomcost/internal/orders"
)

// Options are the distinct values a filter UI offers for an order
// snapshot. Months are newest first and plan dates oldest first; the other
// lists keep first-seen order. Missing values are omitted.
type Options struct {
	OrderMonths    []string `json:"order_months"`
	DeliveryMonths []string `json:"delivery_months"`
	Trips          []string `json:"trips"`
	PINumbers      []string `json:"pi_numbers"`
	Categories     []string `json:"categories"`
	PlanDates      []string `json:"plan_dates"`
}

// Domains collects the Options of rows.
func Domains(rows []orders.OrderRecord) Options {
	var (
		orderMonths = newMonthSet()
		delivery    = newMonthSet()
		trips       distinct
		pis         distinct
		cats        distinct
		plans       distinct
	)
	for _, o := range rows {
		orderMonths.add(o.Timestamp)
		delivery.add(o.DeliveryPlanDate)
		trips.add(o.Trip)
		pis.add(o.PINumber)
		cats.add(o.Category)
		if o.PlanDate != nil {
			plans.add(o.PlanDate.Format(DateLayout))
		}
	}
	planDates := plans.values()
	sort.Strings(planDates)
	return Options{
		OrderMonths:    orderMonths.newestFirst(),
		DeliveryMonths: delivery.newestFirst(),
		Trips:          trips.values(),
		PINumbers:      pis.values(),
		Categories:     cats.values(),
		PlanDates:      planDates,
	}
}

// Predicates returns the selection a UI starts with: every value selected.
// Unlike the zero Predicates, it is explicit, so unselecting a value in the
// UI narrows the result.
func (o Options) Predicates() Predicates {
	return Predicates{
		OrderMonths:    Only(o.OrderMonths...),
		DeliveryMonths: Only(o.DeliveryMonths...),
		Trips:          Only(o.Trips...),
		PINumbers:      Only(o.PINumbers...),
		Categories:     Only(o.Categories...),
	}
}

type distinct struct {
	seen map[string]struct{}
	list []string
}

func (d *distinct) add(v string) {
	if v == "" {
		return
	}
	if d.seen == nil {
		d.seen = map[string]struct{}{}
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.list = append(d.list, v)
}

func (d *distinct) values() []string {
	if d.list == nil {
		return []string{}
	}
	return d.list
}

type monthSet map[string]time.Time

func newMonthSet() monthSet { return monthSet{} }

func (m monthSet) add(ts *time.Time) {
	if ts == nil {
		return
	}
	key := ts.Format(MonthLayout)
	if _, ok := m[key]; !ok {
		m[key] = time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func (m monthSet) newestFirst() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return m[out[i]].After(m[out[j]]) })
	return out
}
