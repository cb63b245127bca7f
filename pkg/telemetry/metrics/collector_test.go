package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_ObserveProbe(t *testing.T) {
	c := NewCollector(Config{})

	c.ObserveProbe("datastore", nil, 5*time.Millisecond)
	c.ObserveProbe("datastore", nil, 5*time.Millisecond)
	c.ObserveProbe("datastore", errors.New("refused"), time.Second)

	if got := testutil.ToFloat64(c.probeAttempts.WithLabelValues("datastore", "ready")); got != 2 {
		t.Errorf("ready attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.probeAttempts.WithLabelValues("datastore", "unready")); got != 1 {
		t.Errorf("unready attempts = %v, want 1", got)
	}
}

func TestCollector_GateAndPool(t *testing.T) {
	c := NewCollector(Config{})

	c.SetGateState("datastore", 1)
	c.ObserveGateTransition("datastore", "ready")
	c.SetPoolSize(3)

	if got := testutil.ToFloat64(c.gateState.WithLabelValues("datastore")); got != 1 {
		t.Errorf("gate state = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.gateTransitions.WithLabelValues("datastore", "ready")); got != 1 {
		t.Errorf("gate transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.poolSize); got != 3 {
		t.Errorf("pool size = %v, want 3", got)
	}
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector(Config{Namespace: "testns"})

	c.ObserveRequest("/api", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	c.ObserveRequest("/api", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	c.ObserveRequest("/", http.MethodGet, http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("/api", "GET", "200")); got != 2 {
		t.Errorf("requests{/api,GET,200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("/", "GET", "404")); got != 1 {
		t.Errorf("requests{/,GET,404} = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(Config{})
	c.ObserveProbe("datastore", nil, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "drawbridge_probe_attempts_total") {
		t.Errorf("exposition missing probe counter:\n%s", rec.Body.String())
	}
}
