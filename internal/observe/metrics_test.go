package observe

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "put", true, 10*time.Millisecond)
	rec.Observe(ctx, "put", true, 5*time.Millisecond)
	rec.Observe(ctx, "put", false, 2*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if snap.Results["put"]["success"] != 2 || snap.Results["put"]["error"] != 1 {
		t.Fatalf("unexpected result counts: %+v", snap.Results)
	}
	if snap.DurationsMS["put"] < 16 || snap.DurationsMS["put"] > 18 {
		t.Fatalf("unexpected duration total: %v", snap.DurationsMS["put"])
	}
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}

	// Snapshot copies must not alias internal state.
	snap.Results["put"]["success"] = 99
	if rec.Snapshot().Results["put"]["success"] != 2 {
		t.Fatalf("snapshot mutation leaked into recorder")
	}
}

func TestNoopRecorder(t *testing.T) {
	var rec MetricsRecorder = NoopRecorder{}
	rec.Observe(context.Background(), "put", true, time.Millisecond)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg, "qiime2_test")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "get", true, 3*time.Millisecond)
	rec.Observe(ctx, "get", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "qiime2_test_operation_results_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["operation"]+"/"+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	if counts["get/success"] != 1 || counts["get/error"] != 1 {
		t.Fatalf("unexpected counter values: %v", counts)
	}

	if _, err := NewPrometheusRecorder(reg, "qiime2_test"); err == nil {
		t.Fatalf("duplicate registration should error")
	}
}
