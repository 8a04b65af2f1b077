package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	api "koidash/pkg/contracts/api/v1"
)

// SelectionRoutes returns the /api/selection routes
func (h *DashboardHandler) SelectionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Put("/page", h.SetPage)
	r.Put("/tick-tab", h.SetTickTab)
	r.Put("/strategy", h.SelectStrategy)
	r.Put("/backtest", h.SelectBacktest)
	r.Put("/analysis", h.SelectAnalysis)
	r.Put("/window", h.SetWindow)
	r.Put("/extremes", h.SetExtremes)
	r.Put("/analysis-symbol", h.SetAnalysisSymbol)
	r.Put("/bars-symbol", h.SetBarsSymbol)
	r.Put("/history", h.SetHistory)
	r.Put("/direction", h.SetDirection)
	r.Put("/category", h.SetCategory)
	r.Put("/dark-mode", h.SetDarkMode)
	r.Put("/focus", h.FocusTransaction)
	return r
}

// applied renders the state after a selection change, or the error.
func (h *DashboardHandler) applied(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, h.service.State(r.Context()))
}

func selectWith[T any](h *DashboardHandler, apply func(ctx context.Context, req T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if !h.decode(w, r, &req) {
			return
		}
		h.applied(w, r, apply(r.Context(), req))
	}
}

// SetPage handles PUT /api/selection/page
func (h *DashboardHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.PageRequest) error {
		return h.service.SetPage(ctx, req.Page)
	})(w, r)
}

// SetTickTab handles PUT /api/selection/tick-tab
func (h *DashboardHandler) SetTickTab(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.TickTabRequest) error {
		return h.service.SetTickTab(ctx, req.Tab)
	})(w, r)
}

// SelectStrategy handles PUT /api/selection/strategy
func (h *DashboardHandler) SelectStrategy(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.StrategyRequest) error {
		return h.service.SelectStrategy(ctx, *req.Index)
	})(w, r)
}

// SelectBacktest handles PUT /api/selection/backtest
func (h *DashboardHandler) SelectBacktest(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.NameRequest) error {
		return h.service.SelectBacktest(ctx, req.Name)
	})(w, r)
}

// SelectAnalysis handles PUT /api/selection/analysis
func (h *DashboardHandler) SelectAnalysis(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.NameRequest) error {
		return h.service.SelectAnalysis(ctx, req.Name)
	})(w, r)
}

// SetWindow handles PUT /api/selection/window
func (h *DashboardHandler) SetWindow(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.SizeRequest) error {
		return h.service.SetWindow(ctx, req.Size)
	})(w, r)
}

// SetExtremes handles PUT /api/selection/extremes
func (h *DashboardHandler) SetExtremes(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.SizeRequest) error {
		return h.service.SetExtremes(ctx, req.Size)
	})(w, r)
}

// SetAnalysisSymbol handles PUT /api/selection/analysis-symbol
func (h *DashboardHandler) SetAnalysisSymbol(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.SymbolRequest) error {
		return h.service.SetAnalysisSymbol(ctx, req.Symbol)
	})(w, r)
}

// SetBarsSymbol handles PUT /api/selection/bars-symbol
func (h *DashboardHandler) SetBarsSymbol(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.SymbolRequest) error {
		return h.service.SetBarsSymbol(ctx, req.Symbol)
	})(w, r)
}

// SetHistory handles PUT /api/selection/history
func (h *DashboardHandler) SetHistory(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.HistoryRequest) error {
		return h.service.SetHistory(ctx, req.History.HistorySelection)
	})(w, r)
}

// SetDirection handles PUT /api/selection/direction
func (h *DashboardHandler) SetDirection(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.DirectionRequest) error {
		return h.service.SetDirection(ctx, req.Direction)
	})(w, r)
}

// SetCategory handles PUT /api/selection/category
func (h *DashboardHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.CategoryRequest) error {
		return h.service.SetCategory(ctx, req.Category)
	})(w, r)
}

// SetDarkMode handles PUT /api/selection/dark-mode
func (h *DashboardHandler) SetDarkMode(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.DarkModeRequest) error {
		return h.service.SetDarkMode(ctx, req.DarkMode)
	})(w, r)
}

// FocusTransaction handles PUT /api/selection/focus
func (h *DashboardHandler) FocusTransaction(w http.ResponseWriter, r *http.Request) {
	selectWith(h, func(ctx context.Context, req api.FocusRequest) error {
		return h.service.FocusTransaction(ctx, req.Symbol, req.Date, req.BuyDate)
	})(w, r)
}
