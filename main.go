package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricewatch/cache"
	"pricewatch/config"
	"pricewatch/database"
	"pricewatch/handlers"
	"pricewatch/middleware"
	"pricewatch/notifier"
	"pricewatch/repository"
	"pricewatch/scheduler"
	"pricewatch/scraper"
	"pricewatch/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	var (
		store repository.Store
		db    *sql.DB
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.CreateTables(ctx, db); err != nil {
			slog.Error("Failed to create tables", "error", err)
			os.Exit(1)
		}
		store = repository.NewPostgresStore(db)
	default:
		store = repository.NewFileStore(cfg.Store.DataFile)
	}
	slog.Info("Tracking store ready", "driver", cfg.Store.Driver)

	// Initialize scraper
	fetcher, err := scraper.NewCollyFetcher(scraper.FetcherOptions{
		UserAgent:   cfg.Scraper.UserAgent,
		Timeout:     cfg.Scraper.FetchTimeout,
		Parallelism: cfg.Checker.Workers,
	})
	if err != nil {
		slog.Error("Failed to create fetcher", "error", err)
		os.Exit(1)
	}
	priceScraper := scraper.NewScraper(fetcher, scraper.NewExtractor(scraper.DefaultRegistry()))

	// Snapshot cache is optional
	var snapshots cache.SnapshotCache = cache.NoopCache{}
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			slog.Warn("Snapshot cache disabled", "error", err)
		} else {
			defer redisCache.Close()
			snapshots = redisCache
		}
	}

	checkService := services.NewCheckService(priceScraper, snapshots)
	mailer := notifier.NewSMTPNotifier(cfg.SMTP)

	pipeline := scheduler.NewPipeline(priceScraper, store, mailer, scheduler.PipelineOptions{
		Workers:      cfg.Checker.Workers,
		PerHostLimit: cfg.Checker.PerHostLimit,
		BatchTimeout: cfg.Checker.BatchTimeout,
	})
	priceChecker := scheduler.NewPriceChecker(pipeline, cfg.Checker.Schedule, cfg.Checker.RunOnStart)
	if err := priceChecker.Start(); err != nil {
		slog.Error("Failed to start price checker", "error", err)
		os.Exit(1)
	}

	h := handlers.NewHandlers(checkService, store, priceChecker)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimit(cfg.Server.RateLimitPerSecond))
	h.Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	priceChecker.Stop()
	slog.Info("Graceful shutdown complete")
}
