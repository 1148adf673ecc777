package engine

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type engineMetricsCollection struct {
	resolveCount    metric.Int64Counter
	resolveDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

var metrics engineMetricsCollection

func init() {
	const name = "memolith/engine"
	meter := otel.Meter(name)

	resolveCount, err := meter.Int64Counter(
		"engine/resolve_count",
		metric.WithDescription("Total number of resolved computations by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create resolve count metric: %w", err))
	}

	resolveDuration, err := meter.Float64Histogram(
		"engine/resolve_duration_seconds",
		metric.WithDescription("Time callers spent waiting for a resolution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create resolve duration metric: %w", err))
	}

	inFlight, err := meter.Int64UpDownCounter(
		"engine/in_flight_computations",
		metric.WithDescription("Number of computations currently in flight"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create in flight computations metric: %w", err))
	}

	metrics = engineMetricsCollection{
		resolveCount:    resolveCount,
		resolveDuration: resolveDuration,
		inFlight:        inFlight,
	}
}
