package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// KeyCounts is a point-in-time view of the loaded keys.
type KeyCounts struct {
	Active   int
	TimedOut int
}

// RegisterKeyGauge exports the number of loaded keys by state. observe is called
// on every collection and must be safe for concurrent use.
func RegisterKeyGauge(meterProvider metric.MeterProvider, namespace string, observe func() KeyCounts) error {
	meter := meterProvider.Meter(namespace)

	_, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_loaded_keys", namespace),
		metric.WithDescription("Number of keys held in memory by state"),
		metric.WithUnit("{key}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			counts := observe()
			o.Observe(int64(counts.Active), metric.WithAttributes(attribute.String("state", "active")))
			o.Observe(int64(counts.TimedOut), metric.WithAttributes(attribute.String("state", "timed_out")))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create loaded keys gauge: %w", err)
	}
	return nil
}
