// Package filter narrows an order snapshot to the rows a report covers.
//
// Every clause is an independent per-row predicate and clauses are ANDed,
// so the order in which they are evaluated never changes the result.
package filter

import (
	"time"

	"bomcost/internal/orders"
)

// MonthLayout buckets timestamps by month, e.g. "Jan 2024".
const MonthLayout = "Jan 2006"

// DateLayout is the exact-date key used for plan dates.
const DateLayout = "2006-01-02"

// Selection is a multi-select clause. A nil Selection imposes no
// constraint. A non-nil Selection matches only its values, so an empty,
// non-nil Selection matches nothing.
type Selection []string

// All returns the unconstrained selection.
func All() Selection { return nil }

// Only returns a selection matching exactly vals. Only() with no
// arguments matches nothing.
func Only(vals ...string) Selection {
	out := make(Selection, 0, len(vals))
	return append(out, vals...)
}

// Active reports whether the selection constrains rows.
func (s Selection) Active() bool { return s != nil }

// Match reports whether v passes the selection. present is false when the
// row has no value for the clause (e.g. a nil date); such rows fail every
// active selection.
func (s Selection) Match(v string, present bool) bool {
	if s == nil {
		return true
	}
	if !present {
		return false
	}
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Predicates is the conjunctive filter over an order snapshot.
type Predicates struct {
	OrderMonths    Selection `json:"order_months"`
	DeliveryMonths Selection `json:"delivery_months"`
	Trips          Selection `json:"trips"`
	PINumbers      Selection `json:"pi_numbers"`
	Categories     Selection `json:"categories"`
	// PlanDates, when non-empty, restricts rows to these exact plan dates
	// (DateLayout). Empty means no constraint.
	PlanDates []string `json:"plan_dates"`
}

// Clause is a single row predicate.
type Clause func(orders.OrderRecord) bool

// Clauses returns the individual predicates of p.
func (p Predicates) Clauses() []Clause {
	return []Clause{
		func(o orders.OrderRecord) bool { return p.OrderMonths.Match(month(o.Timestamp)) },
		func(o orders.OrderRecord) bool { return p.DeliveryMonths.Match(month(o.DeliveryPlanDate)) },
		func(o orders.OrderRecord) bool { return p.Trips.Match(o.Trip, o.Trip != "") },
		func(o orders.OrderRecord) bool { return p.PINumbers.Match(o.PINumber, o.PINumber != "") },
		func(o orders.OrderRecord) bool { return p.Categories.Match(o.Category, o.Category != "") },
		func(o orders.OrderRecord) bool {
			if len(p.PlanDates) == 0 {
				return true
			}
			return Only(p.PlanDates...).Match(day(o.PlanDate))
		},
	}
}

// Match reports whether o satisfies every clause of p.
func (p Predicates) Match(o orders.OrderRecord) bool {
	for _, c := range p.Clauses() {
		if !c(o) {
			return false
		}
	}
	return true
}

// Apply returns the rows of in that satisfy p, in input order. The input
// slice is not modified.
func Apply(in []orders.OrderRecord, p Predicates) []orders.OrderRecord {
	clauses := p.Clauses()
	out := make([]orders.OrderRecord, 0, len(in))
rows:
	for _, o := range in {
		for _, c := range clauses {
			if !c(o) {
				continue rows
			}
		}
		out = append(out, o)
	}
	return out
}

// Month formats ts as a month bucket, or "" for nil.
func Month(ts *time.Time) string {
	s, _ := month(ts)
	return s
}

func month(ts *time.Time) (string, bool) {
	if ts == nil {
		return "", false
	}
	return ts.Format(MonthLayout), true
}

func day(ts *time.Time) (string, bool) {
	if ts == nil {
		return "", false
	}
	return ts.Format(DateLayout), true
}
