package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/levicap/github-scrapper/internal/api"
	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/enricher"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/metrics"
	"github.com/levicap/github-scrapper/internal/scheduler"
	"github.com/levicap/github-scrapper/internal/server"
	"github.com/levicap/github-scrapper/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := server.LoadConfig()

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database")

	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.Connect(cfg.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("connected to NATS", "url", cfg.NatsURL)
	}

	metrics.Init(core.Version)

	sched := scheduler.New(st, pub, scheduler.Config{
		LeaseTimeout: cfg.LeaseTimeout,
		ReclaimEvery: cfg.ReclaimEvery,
		StatsEvery:   cfg.StatsEvery,
	})
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	var searcher api.UsernameSearcher
	if len(cfg.GitHubTokens) > 0 {
		searcher = enricher.NewClient(enricher.NewTokenSource(cfg.GitHubTokens))
	}

	router := server.NewRouter(st, pub, searcher, cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		slog.Info("scraper daemon listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
