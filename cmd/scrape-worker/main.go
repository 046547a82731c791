package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/enricher"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/server"
	"github.com/levicap/github-scrapper/internal/store"
	"github.com/levicap/github-scrapper/internal/worker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	stageName := flag.String("stage", core.StageProfile.Name, "pipeline stage to run (profile or social)")
	reclaim := flag.Bool("reclaim", false, "sweep stale leases before each claim cycle")
	flag.Parse()

	_ = godotenv.Load()

	cfg := server.LoadConfig()

	stage, ok := core.StageByName(*stageName)
	if !ok {
		slog.Error("unknown stage", "stage", *stageName)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.Connect(cfg.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
	}

	client := enricher.NewClient(enricher.NewTokenSource(cfg.GitHubTokens))

	var collab worker.Collaborator
	switch stage.Name {
	case core.StageProfile.Name:
		collab = enricher.NewProfileEnricher(client)
	case core.StageSocial.Name:
		collab = enricher.NewSocialEnricher(st, client)
	}

	w, err := worker.New(st, collab, pub, worker.Config{
		Stage:              stage,
		BatchSize:          cfg.BatchSize,
		MaxRetries:         cfg.MaxRetries,
		PollInterval:       cfg.PollInterval,
		LeaseTimeout:       cfg.LeaseTimeout,
		ReclaimBeforeClaim: *reclaim,
		UnitDelay:          cfg.UnitDelay,
	})
	if err != nil {
		slog.Error("failed to create worker", "error", err)
		os.Exit(1)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
