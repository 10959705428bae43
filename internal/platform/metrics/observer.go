// Package metrics records operation outcomes. The apply path reports every terminal
// operation result to an Observer; which backend records it is chosen at wiring time.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OperationResultsCounter is the instrument every operation result is counted on.
const OperationResultsCounter = "ledger.operation.results"

// DefaultMeterName is used when no meter name is configured.
const DefaultMeterName = "debit-ledger.operations"

// Observer receives one call per applied or rejected operation, e.g.
// ("op-manage-debit", "failure", "no-debitor").
type Observer interface {
	Observe(ctx context.Context, operation, outcome, reason string)
}

// OtelObserver counts results on an OpenTelemetry Int64Counter.
type OtelObserver struct {
	results metric.Int64Counter
}

// NewOtelObserver builds an observer on the named meter of provider. A nil provider
// falls back to the global one.
func NewOtelObserver(provider metric.MeterProvider, meterName string) (*OtelObserver, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	if meterName == "" {
		meterName = DefaultMeterName
	}

	counter, err := provider.Meter(meterName).Int64Counter(
		OperationResultsCounter,
		metric.WithDescription("Number of operation results by operation, outcome and reason"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", OperationResultsCounter, err)
	}

	return &OtelObserver{results: counter}, nil
}

func (o *OtelObserver) Observe(ctx context.Context, operation, outcome, reason string) {
	o.results.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}

// LogObserver writes each result as a debug line.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("component", "operation_observer")}
}

func (o *LogObserver) Observe(ctx context.Context, operation, outcome, reason string) {
	o.logger.DebugContext(ctx, "Operation result",
		"operation", operation,
		"outcome", outcome,
		"reason", reason,
	)
}

// NopObserver discards results.
type NopObserver struct{}

func NewNopObserver() NopObserver { return NopObserver{} }

func (NopObserver) Observe(context.Context, string, string, string) {}

// Fanout reports to every observer in order.
type Fanout []Observer

func (f Fanout) Observe(ctx context.Context, operation, outcome, reason string) {
	for _, o := range f {
		o.Observe(ctx, operation, outcome, reason)
	}
}
