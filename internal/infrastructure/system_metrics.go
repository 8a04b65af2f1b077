package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics samples Go runtime gauges for the /metrics endpoint
type SystemMetrics struct {
	goroutines  metric.Int64Gauge
	heapInUse   metric.Int64Gauge
	memorySys   metric.Int64Gauge
	gcCount     metric.Int64Gauge
	lastGCPause metric.Float64Gauge
	uptime      metric.Float64Gauge
}

// NewSystemMetrics creates the runtime gauges on meter
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapInUse, err := meter.Int64Gauge(
		"system_memory_heap_bytes",
		metric.WithDescription("Heap memory in use in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySys, err := meter.Int64Gauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"system_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	lastGCPause, err := meter.Float64Gauge(
		"system_gc_last_pause_seconds",
		metric.WithDescription("Duration of the most recent garbage collection pause"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goroutines:  goroutines,
		heapInUse:   heapInUse,
		memorySys:   memorySys,
		gcCount:     gcCount,
		lastGCPause: lastGCPause,
		uptime:      uptime,
	}, nil
}

// SystemStats holds one runtime sample
type SystemStats struct {
	Goroutines    int64
	HeapInUse     int64
	MemorySystem  int64
	GCCount       uint32
	LastGCPause   time.Duration
	ProcessUptime time.Duration
	Timestamp     time.Time
}

// Collect samples the runtime and records every gauge
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapInUse:     int64(memStats.HeapInuse),
		MemorySystem:  int64(memStats.Sys),
		GCCount:       memStats.NumGC,
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}
	if memStats.NumGC > 0 {
		stats.LastGCPause = time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])
	}

	sm.goroutines.Record(ctx, stats.Goroutines)
	sm.heapInUse.Record(ctx, stats.HeapInUse)
	sm.memorySys.Record(ctx, stats.MemorySystem)
	sm.gcCount.Record(ctx, int64(stats.GCCount))
	sm.lastGCPause.Record(ctx, stats.LastGCPause.Seconds())
	sm.uptime.Record(ctx, stats.ProcessUptime.Seconds())

	return stats
}

// FormatStats returns the sample in the shape of the detailed health report
func (stats *SystemStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":       stats.Goroutines,
		"heap_in_use_mb":   stats.HeapInUse / 1024 / 1024,
		"memory_system_mb": stats.MemorySystem / 1024 / 1024,
		"gc_count":         stats.GCCount,
		"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
		"uptime_seconds":   stats.ProcessUptime.Seconds(),
		"timestamp":        stats.Timestamp.Format(time.RFC3339),
	}
}

// SystemMetricsCollector samples the runtime on a fixed interval
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	startTime time.Time
	interval  time.Duration
	logger    *slog.Logger
}

// NewSystemMetricsCollector creates a collector sampling every interval
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration, logger *slog.Logger) (*SystemMetricsCollector, error) {
	if logger == nil {
		logger = GetLogger()
	}
	if interval <= 0 {
		return nil, fmt.Errorf("runtime metrics interval must be positive, got %s", interval)
	}

	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		logger:    logger.With(slog.String("component", "system_metrics")),
	}, nil
}

// Run collects until ctx is cancelled
func (smc *SystemMetricsCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.metrics.Collect(ctx, smc.startTime)
	smc.logger.DebugContext(ctx, "runtime metrics collection started",
		slog.Duration("interval", smc.interval))

	for {
		select {
		case <-ticker.C:
			smc.metrics.Collect(ctx, smc.startTime)
		case <-ctx.Done():
			return nil
		}
	}
}

// CurrentStats takes a fresh sample
func (smc *SystemMetricsCollector) CurrentStats(ctx context.Context) *SystemStats {
	return smc.metrics.Collect(ctx, smc.startTime)
}

// RuntimeStats is CurrentStats formatted for the detailed health report
func (smc *SystemMetricsCollector) RuntimeStats(ctx context.Context) map[string]interface{} {
	return smc.CurrentStats(ctx).FormatStats()
}
