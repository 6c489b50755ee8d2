package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bomcost/internal/metrics"

	dto "github.com/prometheus/client_model/go"
)

// find gathers the registry and returns the sample of family name whose
// labels include every pair in want. It fails the test when none matches.
func find(t *testing.T, b *Backend, name string, want metrics.Labels) *dto.Metric {
	t.Helper()

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("no %s sample with labels %v", name, want)
	return nil
}

func TestNewBackend_Modes(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("bomreport", ""); err == nil {
		t.Fatalf("NewBackend without gateway: expected error")
	}

	push, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if push.jobName != "bomreport" {
		t.Fatalf("default job = %q; want bomreport", push.jobName)
	}

	scrape, err := NewScrapeBackend("nightly")
	if err != nil {
		t.Fatalf("NewScrapeBackend: %v", err)
	}
	if scrape.jobName != "nightly" || scrape.gatewayURL != "" {
		t.Fatalf("scrape backend = job %q gateway %q", scrape.jobName, scrape.gatewayURL)
	}
	if scrape.Registry() == push.Registry() {
		t.Fatalf("backends share a registry")
	}
}

func TestIncCounter_RoutesByName(t *testing.T) {
	t.Parallel()

	b, err := NewScrapeBackend("")
	if err != nil {
		t.Fatalf("NewScrapeBackend: %v", err)
	}

	b.IncCounter(metrics.RowsTotal, 12, metrics.Labels{"kind": "orders_read"})
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": "orders_read"})
	b.IncCounter(metrics.UnpricedTotal, 2, metrics.Labels{"family": "SPONGE"})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "join", "status": "failure"})
	b.IncCounter(metrics.RequestsTotal, 1, metrics.Labels{"route": "/api/reports/:family", "method": "GET", "code": "2xx"})
	b.IncCounter("report_bogus_total", 99, metrics.Labels{"kind": "orders_read"})

	checks := []struct {
		name   string
		labels metrics.Labels
		want   float64
	}{
		{metrics.RowsTotal, metrics.Labels{"kind": "orders_read"}, 15},
		{metrics.UnpricedTotal, metrics.Labels{"family": "SPONGE"}, 2},
		{metrics.StepTotal, metrics.Labels{"step": "join", "status": "failure"}, 1},
		{metrics.RequestsTotal, metrics.Labels{"route": "/api/reports/:family", "code": "2xx"}, 1},
	}
	for _, c := range checks {
		if got := find(t, b, c.name, c.labels).GetCounter().GetValue(); got != c.want {
			t.Errorf("%s%v = %v; want %v", c.name, c.labels, got, c.want)
		}
	}
}

func TestObserveHistogram_StepAndRequest(t *testing.T) {
	t.Parallel()

	b, err := NewScrapeBackend("")
	if err != nil {
		t.Fatalf("NewScrapeBackend: %v", err)
	}

	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "fetch", "status": "success"})
	b.ObserveHistogram(metrics.StepDuration, 0.75, metrics.Labels{"step": "fetch", "status": "success"})
	b.ObserveHistogram(metrics.RequestDuration, 0.01, metrics.Labels{"route": "/api/lines", "method": "GET", "code": "2xx"})
	b.ObserveHistogram(metrics.RowsTotal, 5, metrics.Labels{"kind": "materials"})

	s := find(t, b, metrics.StepDuration, metrics.Labels{"step": "fetch"}).GetSummary()
	if s.GetSampleCount() != 2 || s.GetSampleSum() != 1.0 {
		t.Fatalf("step summary count=%d sum=%v; want 2 and 1.0", s.GetSampleCount(), s.GetSampleSum())
	}

	h := find(t, b, metrics.RequestDuration, metrics.Labels{"route": "/api/lines"}).GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Fatalf("request histogram count = %d; want 1", h.GetSampleCount())
	}
}

func TestZeroBackendIgnoresWrites(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "lines"})
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{"step": "fetch"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush on zero backend: %v", err)
	}
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		body   string
	}
	got := make(chan pushed, 1)

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- pushed{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer gw.Close()

	b, err := NewBackend("bomreport-nightly", gw.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.UnpricedTotal, 4, metrics.Labels{"family": "FABRIC"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var req pushed
	select {
	case req = <-got:
	default:
		t.Fatalf("Flush sent nothing to the gateway")
	}
	if req.method != http.MethodPut {
		t.Errorf("method = %s; want PUT", req.method)
	}
	if req.path != "/metrics/job/bomreport-nightly" {
		t.Errorf("path = %s", req.path)
	}
	if !strings.Contains(req.body, "FABRIC") {
		t.Errorf("pushed body lacks the family label")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer gw.Close()

	b, err := NewBackend("", gw.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Fatalf("Flush against failing gateway: expected error")
	}
}

func TestHandler_ServesRegistry(t *testing.T) {
	t.Parallel()

	b, err := NewScrapeBackend("")
	if err != nil {
		t.Fatalf("NewScrapeBackend: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush in scrape mode: %v", err)
	}

	b.IncCounter(metrics.RowsTotal, 4, metrics.Labels{"kind": "materials"})

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `report_rows_total{kind="materials"} 4`) {
		t.Fatalf("exposition missing row counter:\n%s", body)
	}
}
