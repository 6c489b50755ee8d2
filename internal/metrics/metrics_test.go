package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
)

// recorder renders every call as "kind name value {k=v,...}" so tests can
// compare whole sequences.
type recorder struct {
	calls   []string
	flushes int
	err     error
}

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.calls = append(r.calls, fmt.Sprintf("inc %s %g %s", name, delta, render(labels)))
}

func (r *recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.calls = append(r.calls, fmt.Sprintf("obs %s %g %s", name, value, render(labels)))
}

func (r *recorder) Flush() error {
	r.flushes++
	return r.err
}

func render(l Labels) string {
	parts := make([]string, 0, len(l))
	for k, v := range l {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

// install swaps in a fresh recorder for the duration of the test.
func install(t *testing.T) *recorder {
	t.Helper()
	prev := backend
	t.Cleanup(func() { backend = prev })
	r := &recorder{}
	backend = r
	return r
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %d %q; want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestRecordStep(t *testing.T) {
	r := install(t)

	RecordStep("WOOD", "fetch", nil, 250*time.Millisecond)
	RecordStep("WOOD", "join", errors.New("price list missing"), 2*time.Second)

	assertCalls(t, r.calls, []string{
		"inc report_step_total 1 {job=WOOD,status=success,step=fetch}",
		"obs report_step_duration_seconds 0.25 {job=WOOD,status=success,step=fetch}",
		"inc report_step_total 1 {job=WOOD,status=failure,step=join}",
		"obs report_step_duration_seconds 2 {job=WOOD,status=failure,step=join}",
	})
}

func TestRecordRows_SkipsEmpty(t *testing.T) {
	r := install(t)

	RecordRows("lines", "orders_read", 40)
	RecordRows("lines", "orders_selected", 0)
	RecordRows("lines", "lines", -3)
	RecordUnpriced("SPONGE", "SPONGE", 2)
	RecordUnpriced("SPONGE", "SPONGE", 0)

	assertCalls(t, r.calls, []string{
		"inc report_rows_total 40 {job=lines,kind=orders_read}",
		"inc report_unpriced_materials_total 2 {family=SPONGE,job=SPONGE}",
	})
}

func TestRecordRequest(t *testing.T) {
	r := install(t)

	RecordRequest("/api/reports/:family", "GET", 200, 5*time.Millisecond)
	RecordRequest("/api/lines", "GET", 502, 0)

	assertCalls(t, r.calls, []string{
		"inc report_http_requests_total 1 {code=2xx,method=GET,route=/api/reports/:family}",
		"obs report_http_request_duration_seconds 0.005 {code=2xx,method=GET,route=/api/reports/:family}",
		"inc report_http_requests_total 1 {code=5xx,method=GET,route=/api/lines}",
		"obs report_http_request_duration_seconds 0 {code=5xx,method=GET,route=/api/lines}",
	})
}

func TestCodeClass(t *testing.T) {
	for code, want := range map[int]string{
		200: "2xx", 204: "2xx", 304: "3xx", 401: "4xx", 422: "4xx", 500: "5xx", 503: "5xx",
	} {
		if got := codeClass(code); got != want {
			t.Errorf("codeClass(%d) = %s; want %s", code, got, want)
		}
	}
}

func TestSetBackend(t *testing.T) {
	prev := backend
	t.Cleanup(func() { backend = prev })

	if err := Flush(); err != nil {
		t.Fatalf("Flush on default backend: %v", err)
	}

	r := &recorder{err: errors.New("gateway unreachable")}
	SetBackend(r)
	SetBackend(nil)

	if err := Flush(); err == nil || err.Error() != "gateway unreachable" {
		t.Fatalf("Flush = %v; want backend error", err)
	}
	if r.flushes != 1 {
		t.Fatalf("flushes = %d; want 1", r.flushes)
	}
}
