package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qpcrcli/internal/config"
	"qpcrcli/internal/errors"
	"qpcrcli/internal/infrastructure"
	customMiddleware "qpcrcli/internal/middleware"
	"qpcrcli/internal/services"
	handlers "qpcrcli/internal/transport/http"
	"qpcrcli/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Metrics         *infrastructure.AnalysisMetrics
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
}

// NewApplication loads the configuration and builds the web service from it
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewAnalysisMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.AnalysisService = services.NewAnalysisService(logger, otelProviders.Tracer, metrics).WithSource("http")
	app.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, logger)

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}
	app.createServer()

	return app, nil
}

func (a *Application) setupRouter() error {
	defaults, err := a.Config.Analysis.Options()
	if err != nil {
		return errors.NewConfigError("invalid analysis defaults", err)
	}

	errorHandler := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics)

	r := chi.NewRouter()

	// RequestID → OTel → Logger/Recoverer → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(otelMiddleware.Handler)
	r.Use(errors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/healthz", health.HealthCheck)
	r.Get("/readyz", health.ReadinessCheck)
	r.Get("/livez", health.LivenessCheck)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	analysis := handlers.NewAnalysisHandler(a.AnalysisService, handlers.AnalysisDefaults{
		Options: defaults,
		Sheet:   a.Config.Analysis.Sheet,
	}, a.Config.Server.MaxUploadBytes, a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Get("/version", health.Version)
		r.With(customMiddleware.MaxBodyBytes(a.Config.Server.MaxUploadBytes)).
			Mount("/analyze", analysis.Routes())
	})

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure cancels the
// application context through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	status := a.HealthService.ReadinessCheck(ctx)
	if status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check failed", slog.Any("checks", status.Checks))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(ctx)
}
