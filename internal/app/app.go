package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"koidash/internal/bridge"
	"koidash/internal/config"
	apierrors "koidash/internal/errors"
	"koidash/internal/infrastructure"
	customMiddleware "koidash/internal/middleware"
	"koidash/internal/scheduler"
	"koidash/internal/services"
	"koidash/internal/store"
	handlers "koidash/internal/transport/http"
	ws "koidash/internal/websocket"
	"koidash/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	Runtime       *infrastructure.SystemMetricsCollector

	Bridge    *bridge.Client
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Hub       *ws.Hub

	DashboardService *services.DashboardService
	HealthService    *services.HealthService

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.ValidationMiddleware
	upgrader     websocket.Upgrader
	clientConfig ws.ClientConfig
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from cfg
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("version", contracts.Version),
		slog.String("bridge_url", cfg.Bridge.URL),
		slog.String("address", cfg.Address()))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	runtimeMetrics, err := infrastructure.NewSystemMetricsCollector(otelProviders.Meter, cfg.Telemetry.RuntimeInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Runtime:       runtimeMetrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the components in dependency order
func (a *Application) initializeServices() error {
	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}

	a.Bridge = bridge.NewClient(a.Config.Bridge, a.Metrics, a.Logger)
	a.Store = store.New(a.Metrics, a.Logger)
	a.Hub = ws.NewHub(wsMetrics, a.Logger)
	a.Store.Subscribe(a.Hub.SnapshotListener())
	a.Scheduler = scheduler.New(a.Bridge, a.Store, scheduler.DefaultTasks(a.Config.Polling, a.Logger), a.Metrics, a.Logger)

	a.DashboardService = services.NewDashboardService(a.Store, a.Bridge, a.Config.Dashboard, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Bridge, a.Hub, a.Store, a.Logger).
		WithRuntime(a.Runtime)

	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	a.validator = customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	a.clientConfig = ws.NewClientConfig(a.Config.WebSocket)
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     a.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			a.errorHandler.HandleError(w, r, apierrors.WebSocketUpgradeError(status, reason))
		},
	}

	return nil
}

// setupRouter builds the chi router
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Minimal middleware so the websocket upgrade gets an unwrapped writer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", a.handleWebSocket)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r)

		if a.Config.Server.StaticDir != "" {
			r.Handle("/*", http.FileServer(http.Dir(a.Config.Server.StaticDir)))
		}
	})

	a.Router = r
}

// setupAPIRoutes mounts the /api routes
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.validator, a.errorHandler, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(a.validator, a.errorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(a.errorHandler.NotFound)
		r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(a.validator.ValidateRequest)

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/detailed", healthHandler.Detailed)
		r.Get("/version", healthHandler.Version)

		r.Get("/state", dashboardHandler.State)
		r.Mount("/views", dashboardHandler.ViewRoutes())
		r.Mount("/selection", dashboardHandler.SelectionRoutes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuditLog(a.Logger))
			if a.Config.Security.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Security.RateLimit.RPS,
					a.Config.Security.RateLimit.Burst,
					a.errorHandler,
					a.Logger,
				).Handler)
			}
			r.Mount("/commands", dashboardHandler.CommandRoutes())
		})

		r.Post("/logs", clientLogHandler.Handle)
	})
}

// getCORSConfig returns the CORS configuration for the browser dashboard
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// checkOrigin accepts same-origin upgrades and the configured origins
func (a *Application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host) {
		return true
	}
	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	a.Logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", a.Config.Security.AllowedOrigins))
	return false
}

// handleWebSocket upgrades the request and attaches the client to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := customMiddleware.GetRequestID(ctx)

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied
		return
	}

	client := ws.NewClient(a.Hub, ws.WrapConn(conn), a.clientConfig, reqID, a.Logger)
	if !a.Hub.Register(client) {
		a.Logger.WarnContext(ctx, "WebSocket hub stopped, closing connection")
		conn.Close()
		return
	}

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. It always shuts the server and telemetry down before
// returning.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Store.Run(gctx) })
	g.Go(func() error { return a.Hub.Run(gctx) })
	g.Go(func() error { return a.Bridge.Run(gctx) })
	g.Go(func() error { return a.Scheduler.Run(gctx) })
	g.Go(func() error { return a.Runtime.Run(gctx) })

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	err := g.Wait()
	a.Logger.Info("Application shutdown complete")
	return err
}

// Stop gracefully stops the HTTP server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	return errors.Join(errs...)
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
