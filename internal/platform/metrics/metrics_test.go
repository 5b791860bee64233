package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := New()
	m.IncScans()
	m.IncDecodeOpens()
	m.IncDecodeOpens()

	called := false
	srv := httptest.NewServer(m.Handler(func() {
		called = true
		m.SetSessions(3, 1)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	if !called {
		t.Error("updateGauges should be called before scrape")
	}
	for _, want := range []string{
		"radio_scans_total 1",
		"radio_decode_opens_total 2",
		"radio_sessions 3",
		"radio_decoding_sessions 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRequestMiddleware_countsErrors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	scrape := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := scrape.Body.String()
	if !strings.Contains(out, "radio_http_requests_total 1") {
		t.Errorf("expected 1 request counted: %s", out)
	}
	if !strings.Contains(out, "radio_http_errors_total 1") {
		t.Errorf("expected 1 error counted: %s", out)
	}
}

func TestMetrics_failureCountersAreSeparate(t *testing.T) {
	m := New()
	m.IncDecodeOpenFailures()
	m.IncVolumePushFailures()
	m.IncVolumePushFailures()
	m.IncStreamFailures()

	scrape := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := scrape.Body.String()
	for _, want := range []string{
		"radio_decode_open_failures_total 1",
		"radio_volume_push_failures_total 2",
		"radio_stream_failures_total 1",
		"# HELP radio_decode_open_failures_total Total number of failed decode opens\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
