package stats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveAndHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.Observe("/sub", 200, 25*time.Millisecond)
	m.Observe("/sub", 400, 5*time.Millisecond)
	m.ObserveNodes("clash", 12)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`subconverter_requests_total{endpoint="/sub",status="2xx"} 1`,
		`subconverter_requests_total{endpoint="/sub",status="4xx"} 1`,
		"subconverter_request_duration_seconds",
		"subconverter_nodes_emitted",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q\nfull body:\n%s", want, body)
		}
	}
}

func TestStatusBucket(t *testing.T) {
	cases := map[int]string{200: "2xx", 204: "2xx", 404: "4xx", 403: "4xx", 500: "5xx", 503: "5xx"}
	for status, want := range cases {
		if got := statusBucket(status); got != want {
			t.Errorf("statusBucket(%d) = %q, want %q", status, got, want)
		}
	}
}
