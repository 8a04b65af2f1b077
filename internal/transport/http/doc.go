// Package http implements the dashboard's HTTP handlers.
//
// Handlers are thin: they decode and validate the request, call
// services.DashboardService or services.HealthService, and render the
// result with go-chi/render. Errors are rendered as RFC 7807 problem
// details by errors.ErrorHandler.
//
//	GET  /api/views/...          derived views over the current state
//	PUT  /api/selection/...      operator selection changes
//	POST /api/commands/...       commands forwarded to the trading process
//
// Selection changes reply with the updated state so the browser can render
// without a second request.
package http
