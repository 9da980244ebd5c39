// Package app wires the report server together: configuration, logging,
// observability, the pipeline runner and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"sicreport/internal/config"
	apperrors "sicreport/internal/errors"
	"sicreport/internal/files"
	"sicreport/internal/infrastructure"
	custommw "sicreport/internal/middleware"
	"sicreport/internal/pipeline"
	"sicreport/internal/registry"
	"sicreport/internal/services"
	"sicreport/internal/sic"
	handlers "sicreport/internal/transport/http"
	ws "sicreport/internal/websocket"
	"sicreport/pkg/contracts"
)

// Application is the container for the report server.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Hub           *ws.Hub
	ReportService *services.ReportService
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication builds the server from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion))

	paths := config.NewPaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	clientOpts := []registry.ClientOption{
		registry.WithRateLimit(cfg.Registry.RateLimitRPS, cfg.Registry.RateLimitBurst),
		registry.WithHTTPClient(&http.Client{Timeout: cfg.Registry.RequestTimeout}),
	}
	if cfg.Registry.BaseURL != "" {
		clientOpts = append(clientOpts, registry.WithBaseURL(cfg.Registry.BaseURL))
	}
	client := registry.NewClient(logger, clientOpts...)

	runner := pipeline.NewRunner(client.Fetch, logger,
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(providers.Metrics))

	hub := ws.NewHub(logger)
	hub.Start()

	store := files.NewStore(paths.ReportsDir, logger)
	reportService := services.NewReportService(runner, sic.NewValidator(logger), hub, store, logger)

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		Hub:           hub,
		ReportService: reportService,
		OTelProviders: providers,
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.Metrics)
	r.Use(chimiddleware.Timeout(a.Config.Server.RunTimeout))

	errorHandler := apperrors.NewErrorHandler(a.Logger)
	reportHandler := handlers.NewReportHandler(a.ReportService, a.Logger, errorHandler, a.Config.Server.MaxUploadBytes)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/reports", reportHandler.Routes())
		r.Get("/healthz", a.handleHealth)
	})

	r.Get("/metrics", a.OTelProviders.PrometheusHTTP.ServeHTTP)
	r.Get("/ws", a.handleWebSocket)

	a.Router = r
}

func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":            "ok",
		"version":           contracts.Version,
		"websocket_clients": a.Hub.ClientCount(),
	})
}

func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws.ServeWS(a.Hub, a.Logger, w, r)
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Hub.Stop()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("observability shutdown failed", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}
