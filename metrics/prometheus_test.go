package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder_CountsByTags(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewPrometheusRecorder(registry, WithNamespace("issuer"))
	ctx := context.Background()

	recorder.IncCounter(ctx, "agent.requests.total", 1, map[string]string{"method": "GET", "status": "200"})
	recorder.IncCounter(ctx, "agent.requests.total", 2, map[string]string{"method": "GET", "status": "200"})
	recorder.IncCounter(ctx, "agent.requests.total", 1, map[string]string{"method": "POST", "status": "502"})

	counter := recorder.counters["agent.requests.total"].collector
	if got := testutil.ToFloat64(counter.WithLabelValues("GET", "200")); got != 3 {
		t.Fatalf("expected 3 GET requests, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("POST", "502")); got != 1 {
		t.Fatalf("expected 1 POST request, got %v", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "issuer_agent_requests_total" {
		t.Fatalf("unexpected families: %v", families)
	}
}

func TestPrometheusRecorder_LabelSetFixedByFirstObservation(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewPrometheusRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, "agent.onboarding.total", 1, map[string]string{"status": "completed"})
	recorder.IncCounter(ctx, "agent.onboarding.total", 1, map[string]string{"status": "failed", "extra": "dropped"})
	recorder.IncCounter(ctx, "agent.onboarding.total", 1, nil)

	counter := recorder.counters["agent.onboarding.total"].collector
	if got := testutil.ToFloat64(counter.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected extra tag to be dropped, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("")); got != 1 {
		t.Fatalf("expected missing tag recorded as empty, got %v", got)
	}
}

func TestPrometheusRecorder_ObservesHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewPrometheusRecorder(registry, WithBuckets([]float64{10, 100}))

	recorder.ObserveHistogram(context.Background(), "agent.requests.duration_ms", 42, map[string]string{"method": "GET"})

	if got := testutil.CollectAndCount(registry, "agent_requests_duration_ms"); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestPrometheusRecorder_SharesAlreadyRegisteredCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewPrometheusRecorder(registry)
	second := NewPrometheusRecorder(registry)
	ctx := context.Background()

	first.IncCounter(ctx, "agent.jobs.events.total", 1, map[string]string{"phase": "start"})
	second.IncCounter(ctx, "agent.jobs.events.total", 1, map[string]string{"phase": "start"})

	counter := first.counters["agent.jobs.events.total"].collector
	if got := testutil.ToFloat64(counter.WithLabelValues("start")); got != 2 {
		t.Fatalf("expected shared collector to count 2, got %v", got)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"agent.requests.total": "agent_requests_total",
		"9lives":               "_lives",
		" status-code ":        "status_code",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
