package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koidash/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestOTelInitialization tests provider setup with the default exporters
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// tracing defaults to none, metrics to prometheus
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.TelemetryConfig)
		wantErr bool
	}{
		{name: "stdout traces", mutate: func(c *config.TelemetryConfig) { c.TraceExporter = "stdout" }},
		{name: "everything disabled", mutate: func(c *config.TelemetryConfig) {
			c.TraceExporter = "none"
			c.MetricExporter = "none"
		}},
		{name: "unknown trace exporter", mutate: func(c *config.TelemetryConfig) { c.TraceExporter = "jaeger" }, wantErr: true},
		{name: "unknown metric exporter", mutate: func(c *config.TelemetryConfig) { c.MetricExporter = "statsd" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Telemetry
			tt.mutate(&cfg)

			providers, err := InitializeOTel(NewOTelConfig(cfg), testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestCreateMetrics(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, metrics.PollFetchesTotal)
	assert.NotNil(t, metrics.PollFetchDuration)
	assert.NotNil(t, metrics.SnapshotUpdatesTotal)

	ctx := context.Background()
	RecordPollMetrics(ctx, metrics, "koi", 10*time.Millisecond, nil)
	RecordPollMetrics(ctx, metrics, "ticks", 5*time.Millisecond, errors.New("boom"))
	RecordPollMetrics(ctx, nil, "koi", time.Millisecond, nil)
}

// TestPrometheusEndpoint tests that recorded poll metrics are exposed
func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateMetrics(providers.Meter)
	require.NoError(t, err)
	RecordPollMetrics(context.Background(), metrics, "analyses", time.Millisecond, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "poll_fetches_total")
}

func TestNoopMetrics(t *testing.T) {
	metrics := NoopMetrics()
	require.NotNil(t, metrics)
	RecordPollMetrics(context.Background(), metrics, "koi", time.Millisecond, nil)
}
