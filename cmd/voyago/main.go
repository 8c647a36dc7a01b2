package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	vhttp "github.com/voyago/voyago/internal/adapter/http"
	"github.com/voyago/voyago/internal/adapter/llmintent"
	"github.com/voyago/voyago/internal/adapter/memory"
	vnats "github.com/voyago/voyago/internal/adapter/nats"
	"github.com/voyago/voyago/internal/adapter/otel"
	"github.com/voyago/voyago/internal/adapter/postgres"
	"github.com/voyago/voyago/internal/adapter/ristretto"
	"github.com/voyago/voyago/internal/adapter/travelapi"
	"github.com/voyago/voyago/internal/adapter/ws"
	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/logger"
	"github.com/voyago/voyago/internal/middleware"
	"github.com/voyago/voyago/internal/port/eventsink"
	"github.com/voyago/voyago/internal/port/threadstore"
	"github.com/voyago/voyago/internal/resilience"
	"github.com/voyago/voyago/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"log_level", cfg.Logging.Level,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Thread store ---
	var store threadstore.Store
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
		slog.Info("postgres connected")
	default:
		store = memory.NewStore()
		slog.Info("using in-memory thread store")
	}

	// --- Event sink (optional) ---
	var sink eventsink.Sink = eventsink.Nop{}
	if cfg.NATS.URL != "" {
		natsSink, err := vnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsSink.Close() }()
		sink = natsSink
		slog.Info("nats event sink connected")
	}

	// --- Search providers ---
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	travelBreaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	callPool := travelapi.NewPool(cfg.Travel.MaxConcurrent)
	travelClient := travelapi.NewClient(cfg.Travel, travelBreaker, callPool, cache, log)
	travelClient.SetMetrics(metrics)

	// --- Classifier ---
	cls := llmintent.New(cfg.Classifier, log)
	cls.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Orchestration ---
	workers := []service.Worker{
		service.NewFlightWorker(travelClient),
		service.NewHotelWorker(travelClient),
		service.NewResearchWorker(travelClient, travelClient),
	}
	coordinator := service.NewCoordinator(cls, store, workers, log)

	registry := service.NewRegistry(cfg.Orchestrator.RegistryTTL)
	stopJanitor := registry.StartJanitor(cfg.Orchestrator.JanitorInterval)
	defer stopJanitor()

	hub := ws.NewHub()
	orch := service.NewOrchestrator(cfg.Orchestrator, registry, store, coordinator, sink, hub, metrics, log)

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(vhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(vhttp.SecurityHeaders)
	r.Use(vhttp.Logger)
	r.Use(limiter.Handler)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.Recoverer)

	vhttp.MountRoutes(r, vhttp.NewHandlers(orch, hub))

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: SSE streams stay open for the query lifetime.
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
