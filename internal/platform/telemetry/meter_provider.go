// Package telemetry owns the OpenTelemetry SDK providers of a process.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewMeterProvider builds the SDK meter provider and installs it as the global one.
// With a collector endpoint configured, metrics are pushed over OTLP gRPC every
// ExportInterval; without one they are aggregated in process and only reach the
// extra readers passed in opts. Callers own the provider and must Shutdown it.
func NewMeterProvider(ctx context.Context, logger *slog.Logger, serviceName string, cfg config.MetricsConfig, opts ...sdkmetric.Option) (*sdkmetric.MeterProvider, error) {
	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	options := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.CollectorEndpoint != "" {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		options = append(options, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.ExportInterval)),
		))
		logger.Info("Exporting metrics to collector",
			"endpoint", cfg.CollectorEndpoint,
			"interval", cfg.ExportInterval.String(),
		)
	} else {
		logger.Warn("No metrics collector configured, operation metrics stay in process")
	}

	mp := sdkmetric.NewMeterProvider(append(options, opts...)...)
	otel.SetMeterProvider(mp)
	return mp, nil
}
