// Package services implements the operations behind the dashboard's HTTP
// surface.
//
// DashboardService reads the current application state from the store and
// derives the views the browser renders: the bar window, the transaction
// list, ticker rows, strategy statistics, holdings and the extremes
// highlights. Selection changes are applied through the store so every
// reader observes them in order. Commands are forwarded to the trading
// process and their failures are translated into API errors:
//
//	bridge.ErrNotConnected -> 503 BRIDGE_UNAVAILABLE
//	bridge.ErrRateLimited  -> 429 RATE_LIMIT_EXCEEDED
//	bridge.ErrRemote       -> 502 BRIDGE_CALL_FAILED
//
// HealthService reports liveness, readiness and version information.
package services
