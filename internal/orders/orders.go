// Package orders decodes purchase-order rows from a source table into typed
// OrderRecords. Decoding is tolerant: malformed dates become nil and an
// unparseable quantity leaves Quantity nil, so one bad cell never aborts a
// report.
package orders

import (
	"time"

	"bomcost/pkg/records"
)

// Columns names the order-sheet columns the report reads.
type Columns struct {
	Timestamp        string `json:"timestamp"`
	DeliveryPlanDate string `json:"delivery_plan_date"`
	PINumber         string `json:"pi_number"`
	Trip             string `json:"trip"`
	Category         string `json:"category"`
	PlanDate         string `json:"plan_date"`
	Quantity         string `json:"quantity"`
	Model            string `json:"model"`
	Order            string `json:"order"`
	Type             string `json:"type"`
}

// DefaultColumns is the header layout of the order sheets.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:        "TIMESTAMP",
		DeliveryPlanDate: "DELIVERY PLAN DATE",
		PINumber:         "PI NUMBER",
		Trip:             "TRIP",
		Category:         "CATEGORY",
		PlanDate:         "PLAN DATE",
		Quantity:         "QTY",
		Model:            "MODEL",
		Order:            "ORDER",
		Type:             "TYPE",
	}
}

// WithDefaults fills empty column names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Columns{
		Timestamp:        pick(c.Timestamp, d.Timestamp),
		DeliveryPlanDate: pick(c.DeliveryPlanDate, d.DeliveryPlanDate),
		PINumber:         pick(c.PINumber, d.PINumber),
		Trip:             pick(c.Trip, d.Trip),
		Category:         pick(c.Category, d.Category),
		PlanDate:         pick(c.PlanDate, d.PlanDate),
		Quantity:         pick(c.Quantity, d.Quantity),
		Model:            pick(c.Model, d.Model),
		Order:            pick(c.Order, d.Order),
		Type:             pick(c.Type, d.Type),
	}
}

// OrderRecord is one purchase-order line. Row keeps the source cells so that
// material slot columns stay addressable by name.
type OrderRecord struct {
	Timestamp        *time.Time `json:"timestamp"`
	DeliveryPlanDate *time.Time `json:"delivery_plan_date"`
	PINumber         string     `json:"pi_number"`
	Trip             string     `json:"trip"`
	Category         string     `json:"category"`
	Model            string     `json:"model"`
	Order            string     `json:"order,omitempty"`
	Type             string     `json:"type,omitempty"`
	PlanDate         *time.Time `json:"plan_date"`
	// Quantity multiplies every material usage on the line; nil when the
	// cell is missing or not numeric.
	Quantity *float64       `json:"quantity"`
	Row      records.Record `json:"row"`
}

// Decode converts every row of t into an OrderRecord using cols.
func Decode(t records.Table, cols Columns) []OrderRecord {
	cols = cols.WithDefaults()
	out := make([]OrderRecord, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, DecodeRow(r, cols))
	}
	return out
}

// DecodeRow converts a single row. cols must already carry defaults.
func DecodeRow(r records.Record, cols Columns) OrderRecord {
	o := OrderRecord{
		Timestamp:        ParseTime(r[cols.Timestamp]),
		DeliveryPlanDate: ParseTime(r[cols.DeliveryPlanDate]),
		PINumber:         Text(r[cols.PINumber]),
		Trip:             Text(r[cols.Trip]),
		Category:         Text(r[cols.Category]),
		Model:            Text(r[cols.Model]),
		Order:            Text(r[cols.Order]),
		Type:             Text(r[cols.Type]),
		PlanDate:         ParseDate(r[cols.PlanDate]),
		Row:              r,
	}
	if q, ok := ToNumeric(r[cols.Quantity]); ok {
		o.Quantity = &q
	}
	return o
}

// Qty returns the quantity and whether it is usable.
func (o OrderRecord) Qty() (float64, bool) {
	if o.Quantity == nil {
		return 0, false
	}
	return *o.Quantity, true
}

// TotalQuantity sums the usable quantities of rows.
func TotalQuantity(rows []OrderRecord) float64 {
	var sum float64
	for _, o := range rows {
		if q, ok := o.Qty(); ok {
			sum += q
		}
	}
	return sum
}
