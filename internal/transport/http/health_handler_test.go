package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koidash/internal/services"
	"koidash/internal/shared/testutil"
)

type connected bool

func (c connected) Connected() bool { return bool(c) }

type clients int

func (c clients) ClientCount() int { return int(c) }

type version uint64

func (v version) Version() uint64 { return uint64(v) }

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	newHandler := func(bridge services.BridgeStatus) *HealthHandler {
		return NewHealthHandler(services.NewHealthService("1.2.0", "", bridge, clients(2), version(9), logger), logger)
	}

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(connected(false)).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "1.2.0", body["version"])
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(connected(true)).ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decode(t, rec)["status"])
	})

	t.Run("not ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(connected(false)).ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_ready", decode(t, rec)["status"])
	})

	t.Run("live", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(nil).LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alive", decode(t, rec)["status"])
	})

	t.Run("version", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(nil).Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

		body := decode(t, rec)
		assert.Equal(t, "1.2.0", body["version"])
		assert.NotContains(t, body, "build_time")
	})

	t.Run("detailed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(connected(true)).Detailed(rec, httptest.NewRequest(http.MethodGet, "/api/health/detailed", nil))

		stats, ok := decode(t, rec)["stats"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(2), stats["websocket_clients"])
		assert.Equal(t, float64(9), stats["state_version"])
	})
}
