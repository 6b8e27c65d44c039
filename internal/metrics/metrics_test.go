package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGenerationsCounter(t *testing.T) {
	before := testutil.ToFloat64(Generations.WithLabelValues(OutcomeNoHistory))
	Generations.WithLabelValues(OutcomeNoHistory).Inc()
	after := testutil.ToFloat64(Generations.WithLabelValues(OutcomeNoHistory))
	if after != before+1 {
		t.Fatalf("expected %v, got %v", before+1, after)
	}
}

func TestHandler_RendersMetrics(t *testing.T) {
	MessagesArchived.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(string(body), "parrotbot_messages_archived_total") {
		t.Fatalf("archived counter missing from output:\n%s", body)
	}
}
