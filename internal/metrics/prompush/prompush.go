// Package prompush implements a Prometheus backend for the metrics package.
//
// The backend keeps client_golang collectors in a private registry. The CLI
// pushes that registry to a Pushgateway on Flush; the web server serves the
// same registry over /metrics via Handler, in which case Flush is a no-op.
package prompush

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"bomcost/internal/metrics"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091; empty in scrape mode
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // report_step_total
	stepDuration *prometheus.SummaryVec // report_step_duration_seconds

	rowCounter      *prometheus.CounterVec // report_rows_total
	unpricedCounter *prometheus.CounterVec // report_unpriced_materials_total

	requestCounter  *prometheus.CounterVec   // report_http_requests_total
	requestDuration *prometheus.HistogramVec // report_http_request_duration_seconds
}

// NewBackend constructs a Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	return newBackend(jobName, gatewayURL)
}

// NewScrapeBackend constructs a backend that is only exposed through
// Handler. Flush does nothing.
func NewScrapeBackend(jobName string) (*Backend, error) {
	return newBackend(jobName, "")
}

func newBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "bomreport"
	}

	reg := prometheus.NewRegistry()

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        reg,
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Total number of report step executions, partitioned by step and status.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StepDuration,
				Help:       "Duration of report steps in seconds, partitioned by step and status.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "status"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RowsTotal,
				Help: "Rows flowing through reports per kind (orders_read, orders_selected, materials, ...).",
			},
			[]string{"kind"},
		),
		unpricedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.UnpricedTotal,
				Help: "Materials reported without a price list match, per family.",
			},
			[]string{"family"},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RequestsTotal,
				Help: "HTTP requests served, partitioned by route, method and status class.",
			},
			[]string{"route", "method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metrics.RequestDuration,
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
	}

	for _, c := range []prometheus.Collector{
		b.stepCounter, b.stepDuration, b.rowCounter, b.unpricedCounter, b.requestCounter, b.requestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.UnpricedTotal:
		if b.unpricedCounter == nil {
			return
		}
		b.unpricedCounter.WithLabelValues(labels["family"]).Add(delta)

	case metrics.RequestsTotal:
		if b.requestCounter == nil {
			return
		}
		b.requestCounter.WithLabelValues(labels["route"], labels["method"], labels["code"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StepDuration:
		if b.stepDuration == nil {
			return
		}
		b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
	case metrics.RequestDuration:
		if b.requestDuration == nil {
			return
		}
		b.requestDuration.WithLabelValues(labels["route"], labels["method"], labels["code"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway. In scrape mode it
// does nothing.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

// Registry returns the underlying registry.
func (b *Backend) Registry() *prometheus.Registry { return b.reg }

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{})
}
