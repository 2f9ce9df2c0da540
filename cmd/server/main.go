package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/kgharvest/internal/config"
	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/logging"
	"github.com/vanshika/kgharvest/internal/metrics"
	"github.com/vanshika/kgharvest/internal/repository"
	"github.com/vanshika/kgharvest/internal/server"
	"github.com/vanshika/kgharvest/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, closeSource, err := buildSource(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open graph store", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	var (
		graphClient graph.Client
		paths       server.PathFinder
	)
	if cfg.Graph.URI != "" {
		graphClient, err = graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		paths = repository.New(graphClient)
	}

	deps := server.RouterDependencies{
		Health:           server.StoreHealthService{Source: source, Graph: graphClient},
		API:              server.NewAPIHandlers(logger, source, paths, cfg.Output.Category),
		AllowedOrigins:   server.ParseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Metrics = metrics.NewCollector()
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

// buildSource prefers the SQLite store and falls back to the N3 tree.
func buildSource(ctx context.Context, logger *slog.Logger, cfg config.Config) (store.Source, func(), error) {
	if cfg.Store.Path == "" {
		logger.Info("serving N3 output", "root", cfg.Output.Root)
		return store.NewN3Dir(cfg.Output.Root), func() {}, nil
	}

	db, err := store.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("serving sqlite store", "path", cfg.Store.Path)
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing sqlite store failed", "error", err)
		}
	}, nil
}
