package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"koidash/internal/shared/testutil"
)

// MockHealthDeps stands in for the bridge, the websocket hub and the store
type MockHealthDeps struct {
	mock.Mock
}

func (m *MockHealthDeps) Connected() bool {
	return m.Called().Bool(0)
}

func (m *MockHealthDeps) ClientCount() int {
	return m.Called().Int(0)
}

func (m *MockHealthDeps) Version() uint64 {
	return m.Called().Get(0).(uint64)
}

type staticRuntime map[string]interface{}

func (s staticRuntime) RuntimeStats(context.Context) map[string]interface{} {
	return s
}

func TestHealthService(t *testing.T) {
	t.Run("Health_Check_Basic", testHealthCheckBasic)
	t.Run("Readiness_Check_Scenarios", testReadinessCheckScenarios)
	t.Run("Liveness_Check", testLivenessCheck)
	t.Run("Version_Information", testVersionInformation)
	t.Run("Detailed_Health_Report", testDetailedHealthReport)
}

func testHealthCheckBasic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	deps := &MockHealthDeps{}
	deps.On("Connected").Return(false)

	service := NewHealthService("1.0.0", "", deps, deps, deps, logger)
	health := service.HealthCheck(context.Background())

	assert.Equal(t, "ok", health.Status, "a disconnected bridge does not make the process unhealthy")
	assert.Equal(t, "1.0.0", health.Version)
	assert.False(t, health.Timestamp.IsZero())
	assert.Equal(t, "not_ready", health.Services["bridge"].(ServiceHealth).Status)
	assert.True(t, logs.ContainsMessage("HealthService initialized"))
}

func testReadinessCheckScenarios(t *testing.T) {
	tests := []struct {
		name           string
		connected      bool
		nilClients     bool
		expectedStatus string
	}{
		{name: "all_ready", connected: true, expectedStatus: "ready"},
		{name: "bridge_disconnected", connected: false, expectedStatus: "not_ready"},
		{name: "hub_missing", connected: true, nilClients: true, expectedStatus: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			deps := &MockHealthDeps{}
			deps.On("Connected").Return(tt.connected)

			var clients ClientCounter = deps
			if tt.nilClients {
				clients = nil
			}
			service := NewHealthService("1.0.0", "", deps, clients, deps, logger)

			status := service.ReadinessCheck(context.Background())
			assert.Equal(t, tt.expectedStatus, status.Status)
			assert.Contains(t, status.Services, "bridge")
			assert.Contains(t, status.Services, "websocket")
			assert.Contains(t, status.Services, "store")
			deps.AssertExpectations(t)
		})
	}
}

func testLivenessCheck(t *testing.T) {
	service := NewHealthService("1.0.0", "", nil, nil, nil, nil)

	status := service.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Contains(t, status.Runtime, "goroutines")
	assert.Contains(t, status.Runtime, "go_version")
	assert.GreaterOrEqual(t, status.Runtime["uptime"].(float64), 0.0)
}

func testVersionInformation(t *testing.T) {
	service := NewHealthService("2.1.0", "2026-01-02T15:04:05Z", nil, nil, nil, nil)

	info := service.Version()
	assert.Equal(t, "2.1.0", info["version"])
	assert.Equal(t, "2026-01-02T15:04:05Z", info["build_time"])
	assert.Equal(t, "v1", info["api_version"])
	_, err := time.Parse(time.RFC3339, info["start_time"].(string))
	assert.NoError(t, err)

	assert.NotContains(t, NewHealthService("2.1.0", "", nil, nil, nil, nil).Version(), "build_time")
}

func testDetailedHealthReport(t *testing.T) {
	deps := &MockHealthDeps{}
	deps.On("Connected").Return(true)
	deps.On("ClientCount").Return(3)
	deps.On("Version").Return(uint64(42))

	service := NewHealthService("1.0.0", "", deps, deps, deps, nil)
	report := service.GetDetailedHealth(context.Background())

	assert.Contains(t, report, "health")
	assert.Contains(t, report, "readiness")
	assert.Contains(t, report, "liveness")

	stats := report["stats"].(map[string]interface{})
	assert.Equal(t, 3, stats["websocket_clients"])
	assert.Equal(t, uint64(42), stats["state_version"])
	assert.Equal(t, "ready", report["readiness"].(HealthStatus).Status)
	assert.NotContains(t, report, "runtime")

	service.WithRuntime(staticRuntime{"goroutines": int64(12)})
	report = service.GetDetailedHealth(context.Background())
	assert.Equal(t, int64(12), report["runtime"].(map[string]interface{})["goroutines"])
}
