package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/kgharvest/internal/config"
	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/harvest"
	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/logging"
	"github.com/vanshika/kgharvest/internal/repository"
	"github.com/vanshika/kgharvest/internal/store"
)

var errNoTargets = errors.New("no ingestion target configured: set GRAPH_URI or STORE_PATH")

func main() {
	var (
		root     = flag.String("output-root", "", "N3 output tree to ingest (defaults to OUTPUT_ROOT)")
		category = flag.String("category", "", "category to ingest (defaults to OUTPUT_CATEGORY)")
		workers  = flag.Int("workers", 4, "Number of concurrent writes")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Output.Root = *root
	}
	if *category != "" {
		cfg.Output.Category = *category
	}

	logger, runID := logging.WithRun(logging.New(cfg.Logging))
	logger = logger.With("component", "ingest")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphs, err := loadGraphs(ctx, store.NewN3Dir(cfg.Output.Root), cfg.Output.Category)
	if err != nil {
		logger.Error("failed to read N3 output", "error", err, "root", cfg.Output.Root)
		os.Exit(1)
	}
	if len(graphs) == 0 {
		logger.Error("no graphs to ingest", "root", cfg.Output.Root, "category", cfg.Output.Category)
		os.Exit(1)
	}

	sinks, closeSinks, err := buildTargets(ctx, logger, cfg, runID)
	if err != nil {
		logger.Error("failed to open ingestion targets", "error", err)
		os.Exit(1)
	}
	defer closeSinks()

	publisher := harvest.NewPublisher(sinks, harvest.PublisherOptions{
		Category:    cfg.Output.Category,
		Concurrency: *workers,
		Logger:      logger,
	})

	start := time.Now()
	logger.Info("ingesting graphs", "count", len(graphs), "workers", *workers)
	summaries, err := publisher.Publish(ctx, graphs)
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		closeSinks()
		os.Exit(2)
	}

	triples := 0
	for _, s := range summaries {
		triples += s.Triples
	}
	logger.Info("ingestion complete", "duration", time.Since(start).String(), "graphs", len(summaries), "triples", triples)
}

// loadGraphs reads every graph of category from the N3 tree.
func loadGraphs(ctx context.Context, src store.Source, category string) ([]*kg.Graph, error) {
	summaries, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	var graphs []*kg.Graph
	for _, s := range summaries {
		if s.Category != category {
			continue
		}
		g, err := src.Load(ctx, s.Category, s.Name)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", s.Category, s.Name, err)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

func buildTargets(ctx context.Context, logger *slog.Logger, cfg config.Config, runID string) ([]store.Sink, func(), error) {
	var (
		sinks   []store.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	if cfg.Store.Path != "" {
		db, err := store.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing sqlite store failed", "error", err)
			}
		})
		sinks = append(sinks, db.ForRun(runID))
	}

	if cfg.Graph.URI != "" {
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		})
		repo := repository.New(client)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
		sinks = append(sinks, repo)
	}

	if len(sinks) == 0 {
		return nil, nil, errNoTargets
	}
	return sinks, closeAll, nil
}
