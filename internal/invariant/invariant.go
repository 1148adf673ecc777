package invariant

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var violationsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "memolith_invariant_violations_total",
	Help: "The total number of invariant violations encountered by component and kind",
}, []string{"component", "kind"})

var testMode atomic.Bool

// EnableTestMode makes Raise panic so violated invariants fail tests instead
// of only being counted.
func EnableTestMode() {
	testMode.Store(true)
}

// Raise records a violated internal invariant. In production this increments
// the violation counter and logs the violation, in test mode it panics.
func Raise(component string, kind string, msg string, args ...any) {
	violationsMetric.WithLabelValues(component, kind).Inc()
	slog.With("component", component, "kind", kind).Error(msg, args...)

	if testMode.Load() {
		panic(fmt.Sprintf("invariant violated in %s: %s", component, kind))
	}
}

// MetricValue returns the current violation count for the given labels.
func MetricValue(component string, kind string) float64 {
	var metric dto.Metric
	if err := violationsMetric.WithLabelValues(component, kind).Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}
