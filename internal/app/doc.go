// Package app wires the dashboard together and manages its lifecycle.
//
// NewApplication loads the configuration, initializes logging and
// OpenTelemetry, and builds every component:
//
//	bridge.Client        websocket RPC session with the trading process
//	store.Store          single writer of the application state
//	scheduler.Scheduler  polls the trading process into the store
//	websocket.Hub        pushes snapshot:updated notifications to browsers
//	services, handlers   the HTTP API
//
// Run starts them under one errgroup and blocks until the context is
// cancelled or any of them fails, then shuts the HTTP server and the
// telemetry providers down. The app never calls os.Exit.
package app
