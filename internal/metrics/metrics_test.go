package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestsCounter(t *testing.T) {
	before := testutil.ToFloat64(Requests.WithLabelValues("freeform"))
	Requests.WithLabelValues("freeform").Inc()
	after := testutil.ToFloat64(Requests.WithLabelValues("freeform"))
	if after != before+1 {
		t.Errorf("counter went %v -> %v, want +1", before, after)
	}
}

func TestHandlerExposition(t *testing.T) {
	Requests.WithLabelValues("freeform").Inc()
	LLMFallbacks.Inc()
	DynatraceRequests.WithLabelValues("/problems", "200").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"dynagent_requests_total",
		"dynagent_dynatrace_requests_total",
		"dynagent_llm_fallbacks_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
