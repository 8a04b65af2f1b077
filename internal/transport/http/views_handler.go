package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"koidash/internal/exporter"
)

// State handles GET /api/state
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.State(r.Context()))
}

// ViewRoutes returns the /api/views routes
func (h *DashboardHandler) ViewRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/bars", h.Bars)
	r.Get("/transactions", h.Transactions)
	r.Get("/transactions/export", h.ExportTransactions)
	r.Get("/ticks", h.Ticks)
	r.Get("/stats", h.Stats)
	r.Get("/holdings", h.Holdings)
	r.Get("/analysis", h.Analysis)
	r.Get("/analysis/highlights", h.Highlights)
	return r
}

// Bars handles GET /api/views/bars
func (h *DashboardHandler) Bars(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Bars(r.Context()))
}

// Transactions handles GET /api/views/transactions
func (h *DashboardHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Transactions(r.Context()))
}

// Ticks handles GET /api/views/ticks
func (h *DashboardHandler) Ticks(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Tickers(r.Context()))
}

// Stats handles GET /api/views/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Stats(r.Context()))
}

// Holdings handles GET /api/views/holdings
func (h *DashboardHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Holdings(r.Context()))
}

// Analysis handles GET /api/views/analysis
func (h *DashboardHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Analysis(r.Context()))
}

// Highlights handles GET /api/views/analysis/highlights
func (h *DashboardHandler) Highlights(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Highlights(r.Context()))
}

// ExportTransactions handles GET /api/views/transactions/export?format=csv|xlsx
func (h *DashboardHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	value, ok := h.query.ValidateEnum(w, r, "format", exporter.Formats, string(exporter.FormatCSV))
	if !ok {
		return
	}
	format := exporter.Format(value)

	export := h.service.ExportTransactions(r.Context())
	table := exporter.TransactionTable(export.View)
	category := string(export.View.Category)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, export.Backtest+"_"+category, table); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("failed to export transactions: %w", err))
		return
	}

	h.logger.InfoContext(r.Context(), "transactions exported",
		slog.String("backtest", export.Backtest),
		slog.String("category", category),
		slog.String("format", value),
		slog.Int("rows", len(table.Records)))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, exporter.Filename(export.Backtest, category, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
