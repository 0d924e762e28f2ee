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

	athttp "github.com/atelier-hq/atelier/internal/adapter/http"
	"github.com/atelier-hq/atelier/internal/adapter/legacy"
	atnats "github.com/atelier-hq/atelier/internal/adapter/nats"
	atotel "github.com/atelier-hq/atelier/internal/adapter/otel"
	"github.com/atelier-hq/atelier/internal/adapter/postgres"
	"github.com/atelier-hq/atelier/internal/adapter/ristretto"
	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/logger"
	"github.com/atelier-hq/atelier/internal/middleware"
	"github.com/atelier-hq/atelier/internal/port/events"
	"github.com/atelier-hq/atelier/internal/resilience"
	"github.com/atelier-hq/atelier/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

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

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"source", cfg.Source.BaseURL,
		"workers", cfg.Migration.Workers,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	// Progress events are optional; without a broker the engine runs silent.
	var pub events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		queue, err := atnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		pub = queue
		log.Info("nats connected")
	}

	memo, err := ristretto.New(cfg.Migration.MemoCacheMB << 20)
	if err != nil {
		return fmt.Errorf("memo cache: %w", err)
	}
	defer memo.Close()

	metrics, err := atotel.NewMetrics()
	if err != nil {
		log.Warn("metrics disabled", "error", err)
	}

	// --- Services ---

	pacer := resilience.NewPacer(cfg.Source.MinInterval)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	src := legacy.NewClient(cfg.Source, pacer, breaker)

	store := postgres.NewStore(pool)
	migrator := service.NewMigrator(src, store, memo, pub, metrics, log, cfg.Migration)
	authSvc := service.NewAuthService(store, &cfg.Auth)

	// --- HTTP ---

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	handlers := &athttp.Handlers{
		Runs: migrator,
		Auth: authSvc,
		DB:   store,
		Log:  log,
	}
	if queue, ok := pub.(*atnats.Publisher); ok {
		handlers.Queue = queue
	}
	router := athttp.NewRouter(handlers, authSvc, rl, cfg.Server, cfg.Logging.Service)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A migration run executes within its triggering request.
		WriteTimeout: cfg.Server.RequestTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

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
