package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	api "koidash/pkg/contracts/api/v1"
)

// CommandRoutes returns the /api/commands routes
func (h *DashboardHandler) CommandRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/market-streaming/toggle", h.ToggleMarketStreaming)
	r.Post("/crypto-streaming/toggle", h.ToggleCryptoStreaming)

	r.Route("/strategies/{name}", func(r chi.Router) {
		r.Use(h.StrategyCtx)
		r.Post("/active", h.SetStrategyActive)
		r.Post("/capital", h.SetStrategyCapital)
		r.Post("/backtest", h.BacktestStrategy)
		r.Post("/analyze", h.AnalyzeStrategy)
		r.Post("/toggle", h.ToggleStrategy)
	})
	return r
}

type strategyKey struct{}

// StrategyCtx validates the strategy name path parameter
func (h *DashboardHandler) StrategyCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name" validate:"required,max=100"`
		}
		req.Name = chi.URLParam(r, "name")
		if err := h.validator.ValidateStruct(req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), strategyKey{}, req.Name)))
	})
}

func strategyName(r *http.Request) string {
	name, _ := r.Context().Value(strategyKey{}).(string)
	return name
}

// accepted renders the command acknowledgement, or the error.
func (h *DashboardHandler) accepted(w http.ResponseWriter, r *http.Request, command, strategy string, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.CommandResponse{Status: "accepted", Command: command, Strategy: strategy})
}

// ToggleMarketStreaming handles POST /api/commands/market-streaming/toggle
func (h *DashboardHandler) ToggleMarketStreaming(w http.ResponseWriter, r *http.Request) {
	h.accepted(w, r, "toggle_market_streaming", "", h.service.ToggleMarketStreaming(r.Context()))
}

// ToggleCryptoStreaming handles POST /api/commands/crypto-streaming/toggle
func (h *DashboardHandler) ToggleCryptoStreaming(w http.ResponseWriter, r *http.Request) {
	h.accepted(w, r, "toggle_crypto_streaming", "", h.service.ToggleCryptoStreaming(r.Context()))
}

// SetStrategyActive handles POST /api/commands/strategies/{name}/active
func (h *DashboardHandler) SetStrategyActive(w http.ResponseWriter, r *http.Request) {
	var req api.ActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strategyName(r)
	h.accepted(w, r, "set_strategy_active_state", name, h.service.SetStrategyActive(r.Context(), name, *req.Active))
}

// SetStrategyCapital handles POST /api/commands/strategies/{name}/capital
func (h *DashboardHandler) SetStrategyCapital(w http.ResponseWriter, r *http.Request) {
	var req api.CapitalRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strategyName(r)
	h.accepted(w, r, "set_strategy_capital", name, h.service.SetStrategyCapital(r.Context(), name, req.Capital))
}

// BacktestStrategy handles POST /api/commands/strategies/{name}/backtest
func (h *DashboardHandler) BacktestStrategy(w http.ResponseWriter, r *http.Request) {
	name := strategyName(r)
	h.accepted(w, r, "backtest_strategy", name, h.service.BacktestStrategy(r.Context(), name))
}

// AnalyzeStrategy handles POST /api/commands/strategies/{name}/analyze
func (h *DashboardHandler) AnalyzeStrategy(w http.ResponseWriter, r *http.Request) {
	name := strategyName(r)
	h.accepted(w, r, "analyze_strategy", name, h.service.AnalyzeStrategy(r.Context(), name))
}

// ToggleStrategy handles POST /api/commands/strategies/{name}/toggle
func (h *DashboardHandler) ToggleStrategy(w http.ResponseWriter, r *http.Request) {
	name := strategyName(r)
	h.accepted(w, r, "toggle_strategy", name, h.service.ToggleStrategy(r.Context(), name))
}
