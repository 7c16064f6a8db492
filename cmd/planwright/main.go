package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	pwhttp "github.com/planwright/planwright/internal/adapter/http"
	pwnats "github.com/planwright/planwright/internal/adapter/nats"
	"github.com/planwright/planwright/internal/adapter/ollama"
	"github.com/planwright/planwright/internal/adapter/otel"
	"github.com/planwright/planwright/internal/adapter/postgres"
	"github.com/planwright/planwright/internal/adapter/ristretto"
	"github.com/planwright/planwright/internal/adapter/ws"
	"github.com/planwright/planwright/internal/config"
	"github.com/planwright/planwright/internal/insight"
	"github.com/planwright/planwright/internal/logger"
	"github.com/planwright/planwright/internal/resilience"
	"github.com/planwright/planwright/internal/schedule"
	"github.com/planwright/planwright/internal/service"
)

const serviceName = "planwright"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

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

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"ollama_model", cfg.Ollama.Model,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	// Run migrations
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	// NATS
	queue, err := pwnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// Insight cache
	cache, err := ristretto.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// Tracing and metrics
	shutdownTracer := otel.InitTracer(serviceName)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Task generation ---
	gen := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.Timeout, log)
	gen.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	gen.OnFallback(func(ctx context.Context) {
		metrics.GenerationFallback.Add(ctx, 1)
	})

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	engine := schedule.NewEngine()
	engine.Tolerance = cfg.Scheduler.SlackTolerance

	planSvc := service.NewPlanService(store, gen, queue, hub, engine, metrics, log,
		service.PlanServiceOptions{
			MaxTasks:                 cfg.Scheduler.MaxTasks,
			MaxConcurrentGenerations: cfg.Scheduler.MaxConcurrentGenerations,
			GenerateTimeout:          cfg.Scheduler.GenerateTimeout,
		})
	insightSvc := service.NewInsightService(store, insight.NewAnalyzer(insight.DefaultPolicy()),
		cache, cfg.Cache.InsightTTL, log)

	// Audit trail for plan lifecycle events published to the queue.
	stopAudit, err := planSvc.StartEventAudit(ctx)
	if err != nil {
		return fmt.Errorf("event audit: %w", err)
	}
	defer stopAudit()

	// --- HTTP ---
	handlers := pwhttp.NewHandlers(planSvc, insightSvc, gen)

	r := chi.NewRouter()

	// Middleware
	r.Use(pwhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(pwhttp.RequestID)
	r.Use(pwhttp.Logger)
	r.Use(pwhttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(serviceName))

	// Health endpoint with service status
	r.Get("/health", healthHandler(queue, gen))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// API routes
	pwhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(queue *pwnats.Queue, gen *ollama.Client) http.HandlerFunc {
	type healthStatus struct {
		Status  string `json:"status"`
		NATS    string `json:"nats"`
		Breaker string `json:"breaker"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:  "ok",
			NATS:    "connected",
			Breaker: gen.BreakerState(),
		}
		if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "disconnected"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
