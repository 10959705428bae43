package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resetGlobal(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })
}

func TestNewMeterProvider_InstallsGlobalProvider(t *testing.T) {
	resetGlobal(t)
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	mp, err := NewMeterProvider(ctx, newTestLogger(), "transaction_processor",
		config.MetricsConfig{Enabled: true, MeterName: "test"},
		sdkmetric.WithReader(reader),
	)
	require.NoError(t, err)
	defer func() { assert.NoError(t, mp.Shutdown(ctx)) }()

	// A nil provider resolves to the global one, which must now be the SDK provider.
	obs, err := metrics.NewOtelObserver(nil, "test")
	require.NoError(t, err)
	obs.Observe(ctx, "op-direct-debit", "failure", "no-debit")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	name, ok := rm.Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "transaction_processor", name.AsString())

	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, metrics.OperationResultsCounter, m.Name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	reason, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("reason"))
	require.True(t, ok)
	assert.Equal(t, "no-debit", reason.AsString())
}

func TestNewMeterProvider_WithCollector(t *testing.T) {
	resetGlobal(t)

	mp, err := NewMeterProvider(context.Background(), newTestLogger(), "transaction_processor",
		config.MetricsConfig{
			Enabled:           true,
			MeterName:         "test",
			CollectorEndpoint: "127.0.0.1:4317",
			ExportInterval:    time.Minute,
		},
	)
	require.NoError(t, err)
	assert.Same(t, mp, otel.GetMeterProvider())

	// Nothing listens on the endpoint; shutdown only has to return.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}
