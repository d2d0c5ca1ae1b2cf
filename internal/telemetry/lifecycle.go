package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LifecycleMetrics counts committed transitions and lost version races.
type LifecycleMetrics struct {
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
	amount      metric.Int64Histogram
}

func NewLifecycleMetrics(mp metric.MeterProvider) (*LifecycleMetrics, error) {
	meter := mp.Meter("closet-market/lifecycle")
	transitions, err := meter.Int64Counter("lifecycle_transitions_total",
		metric.WithDescription("Committed status transitions by entity and target status."))
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("lifecycle_version_conflicts_total",
		metric.WithDescription("Optimistic version conflicts that forced a retry."))
	if err != nil {
		return nil, err
	}
	amount, err := meter.Int64Histogram("order_total_amount",
		metric.WithDescription("Total amount of created orders."),
		metric.WithUnit("{VND}"))
	if err != nil {
		return nil, err
	}
	return &LifecycleMetrics{transitions: transitions, conflicts: conflicts, amount: amount}, nil
}

func (m *LifecycleMetrics) RecordTransition(ctx context.Context, entity, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *LifecycleMetrics) RecordConflict(ctx context.Context, entity string) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entity)))
}

func (m *LifecycleMetrics) RecordOrderAmount(ctx context.Context, amount int64) {
	if m == nil {
		return
	}
	m.amount.Record(ctx, amount)
}
