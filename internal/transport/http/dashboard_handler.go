package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "koidash/internal/errors"
	"koidash/internal/middleware"
	"koidash/internal/services"
)

// DashboardHandler serves views, selection changes and commands
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// decode reads a JSON body into v and validates it. On failure the error
// response has been written and false is returned.
func (h *DashboardHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validator.ValidateStruct(v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// fail renders err, mapping unknown strategies and analyses to 404.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownStrategy):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("strategy"))
	case errors.Is(err, services.ErrUnknownAnalysis):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("analysis"))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
