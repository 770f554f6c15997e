package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGenerationCounter(t *testing.T) {
	m := New()
	m.Generation("user", "success")
	m.Generation("user", "success")
	m.Generation("guest", "TRIAL_EXHAUSTED")

	if got := testutil.ToFloat64(m.generations.WithLabelValues("user", "success")); got != 2 {
		t.Errorf("user success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues("guest", "TRIAL_EXHAUSTED")); got != 1 {
		t.Errorf("guest exhausted = %v, want 1", got)
	}
}

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("models/a", errors.New("x"), time.Second)
	m.ObserveAttempt("models/a", nil, 2*time.Second)

	if got := testutil.ToFloat64(m.providerAttempt.WithLabelValues("models/a", "failed")); got != 1 {
		t.Errorf("failed attempts = %v", got)
	}
	if got := testutil.ToFloat64(m.providerAttempt.WithLabelValues("models/a", "image")); got != 1 {
		t.Errorf("image attempts = %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/styles", "GET", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `magicpic_http_requests_total{method="GET",route="/api/styles",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}
