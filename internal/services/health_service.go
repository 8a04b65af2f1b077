package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"koidash/pkg/contracts"
)

// BridgeStatus reports whether the trading process is connected
type BridgeStatus interface {
	Connected() bool
}

// ClientCounter reports the number of connected dashboard browsers
type ClientCounter interface {
	ClientCount() int
}

// VersionSource reports how many updates the store has applied
type VersionSource interface {
	Version() uint64
}

// RuntimeSource samples process runtime statistics
type RuntimeSource interface {
	RuntimeStats(ctx context.Context) map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	bridge    BridgeStatus
	clients   ClientCounter
	store     VersionSource
	runtime   RuntimeSource
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. Any dependency may be
// nil, in which case its check reports not_ready.
func NewHealthService(version, buildTime string, bridge BridgeStatus, clients ClientCounter, st VersionSource, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		bridge:    bridge,
		clients:   clients,
		store:     st,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// WithRuntime adds runtime statistics to the detailed report
func (hs *HealthService) WithRuntime(src RuntimeSource) *HealthService {
	hs.runtime = src
	return hs
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"bridge": hs.checkBridgeHealth(),
		},
	}
}

// ReadinessCheck reports ready once the trading process is connected.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"bridge":    hs.checkBridgeHealth(),
			"websocket": hs.checkWebSocketHealth(),
			"store":     hs.checkStoreHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"api_version":  contracts.APIVersion,
		"git_commit":   contracts.GitCommit,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkBridgeHealth() ServiceHealth {
	if hs.bridge == nil || !hs.bridge.Connected() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "Trading process is not connected",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "Trading process is connected",
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "WebSocket hub not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "WebSocket service is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkStoreHealth() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "state store not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "state store is healthy",
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
	}
	if hs.clients != nil {
		stats["websocket_clients"] = hs.clients.ClientCount()
	}
	if hs.store != nil {
		stats["state_version"] = hs.store.Version()
	}

	detailed := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
	if hs.runtime != nil {
		detailed["runtime"] = hs.runtime.RuntimeStats(ctx)
	}
	return detailed
}
