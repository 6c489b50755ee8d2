// Package metrics records report and HTTP activity against a pluggable
// Backend. Until SetBackend is called every helper writes to a no-op
// backend, so callers never need to check whether metrics are enabled.
// The prompush and datadog subpackages provide real backends.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal       = "report_step_total"
	StepDuration    = "report_step_duration_seconds"
	RowsTotal       = "report_rows_total"
	UnpricedTotal   = "report_unpriced_materials_total"
	RequestsTotal   = "report_http_requests_total"
	RequestDuration = "report_http_request_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives the samples produced by the Record helpers. Names are
// the constants above; a backend ignores names it does not know.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration in seconds.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush delivers buffered samples. Scrape-style backends return nil.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend replaces the active backend. nil is ignored.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush flushes the active backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one report stage (fetch, schema, filter, aggregate,
// join) and records how long it took. A non-nil err marks it failed.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": stepStatus(err)}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

func stepStatus(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordRows adds n to the row counter for kind: orders_read,
// orders_selected, occurrences, materials or lines. n <= 0 is dropped.
func RecordRows(job, kind string, n int) {
	if n > 0 {
		backend.IncCounter(RowsTotal, float64(n), Labels{"job": job, "kind": kind})
	}
}

// RecordUnpriced counts materials that had no price list match.
func RecordUnpriced(job, family string, n int) {
	if n > 0 {
		backend.IncCounter(UnpricedTotal, float64(n), Labels{"job": job, "family": family})
	}
}

// RecordRequest records one served HTTP request.
func RecordRequest(route, method string, code int, d time.Duration) {
	lbls := Labels{
		"route":  route,
		"method": method,
		"code":   codeClass(code),
	}
	backend.IncCounter(RequestsTotal, 1, lbls)
	backend.ObserveHistogram(RequestDuration, d.Seconds(), lbls)
}

func codeClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
