package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestLifecycleMetricsRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewLifecycleMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.RecordTransition(ctx, "order", "paid", "preparing")
	m.RecordTransition(ctx, "order", "paid", "preparing")
	m.RecordConflict(ctx, "swap")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[md.Name] += dp.Value
				}
			}
		}
	}
	if got["lifecycle_transitions_total"] != 2 {
		t.Fatalf("transitions=%d", got["lifecycle_transitions_total"])
	}
	if got["lifecycle_version_conflicts_total"] != 1 {
		t.Fatalf("conflicts=%d", got["lifecycle_version_conflicts_total"])
	}
}

func TestNilLifecycleMetricsIsSafe(t *testing.T) {
	var m *LifecycleMetrics
	m.RecordTransition(context.Background(), "order", "", "pending_payment")
	m.RecordConflict(context.Background(), "order")
	m.RecordOrderAmount(context.Background(), 1)
}
