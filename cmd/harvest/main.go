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
	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/harvest"
	"github.com/vanshika/kgharvest/internal/logging"
	"github.com/vanshika/kgharvest/internal/metrics"
	"github.com/vanshika/kgharvest/internal/repository"
	"github.com/vanshika/kgharvest/internal/sparql"
	"github.com/vanshika/kgharvest/internal/store"
	"github.com/vanshika/kgharvest/internal/terms"
)

const (
	exitFatal       = 1
	exitWriteFailed = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitFatal
	}

	var (
		termsPath   = flag.String("terms", "terms.csv", "CSV file with a word column of search terms")
		fixturePath = flag.String("fixture", "", "serve triples from a fixture JSON file instead of the SPARQL endpoint")
		skipFailed  = flag.Bool("skip-failed", cfg.Harvest.OnError == config.OnErrorSkip, "skip terms whose fetch fails instead of aborting")
		merge       = flag.Bool("merge", cfg.Harvest.Merge, "also write the merged graph and select over it")
		minCount    = flag.Int("min-count", cfg.Harvest.MinCount, "minimum node occurrences (0 = number of terms)")
		workers     = flag.Int("workers", cfg.Harvest.Workers, "number of concurrent fetches")
		outputRoot  = flag.String("output-root", cfg.Output.Root, "root directory of the N3 output")
		category    = flag.String("category", cfg.Output.Category, "output category directory")
	)
	flag.Parse()

	cfg.Harvest.Merge = *merge
	cfg.Harvest.MinCount = *minCount
	cfg.Harvest.Workers = *workers
	cfg.Output.Root = *outputRoot
	cfg.Output.Category = *category
	if *skipFailed {
		cfg.Harvest.OnError = config.OnErrorSkip
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitFatal
	}

	logger, runID := logging.WithRun(logging.New(cfg.Logging))
	logger = logger.With("component", "harvest")

	selection, err := harvest.NewSelection(
		cfg.Harvest.MinCount,
		cfg.Harvest.IncludePatterns,
		cfg.Harvest.ExcludePatterns,
		cfg.Harvest.Merge,
		cfg.Harvest.MergedName,
	)
	if err != nil {
		logger.Error("invalid node pattern", "error", err)
		return exitFatal
	}

	words, err := terms.ReadFile(*termsPath)
	if err != nil {
		logger.Error("failed to read search terms", "error", err)
		return exitFatal
	}
	if len(words) == 0 {
		logger.Warn("no search terms", "path", *termsPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fetcher, err := buildFetcher(cfg, *fixturePath)
	if err != nil {
		logger.Error("failed to create fetcher", "error", err)
		return exitFatal
	}

	sinks, closeSinks, err := buildSinks(ctx, logger, cfg, runID)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		return exitFatal
	}
	defer closeSinks()

	collector := metrics.NewCollector()
	runner := &harvest.Runner{
		RunID: runID,
		Harvester: harvest.NewHarvester(fetcher, harvest.HarvesterOptions{
			Workers:    cfg.Harvest.Workers,
			SkipFailed: cfg.Harvest.OnError == config.OnErrorSkip,
			Logger:     logger,
			Metrics:    collector,
		}),
		Pipeline: harvest.NewPipeline(selection, logger, collector),
		Publisher: harvest.NewPublisher(sinks, harvest.PublisherOptions{
			Category:    cfg.Output.Category,
			Concurrency: cfg.Harvest.Workers,
			Logger:      logger,
			Metrics:     collector,
		}),
		Logger: logger,
	}

	logger.Info("starting harvest", "terms", len(words), "workers", cfg.Harvest.Workers, "on_error", cfg.Harvest.OnError)
	report, err := runner.Run(ctx, words)
	writeTextfile(logger, collector, cfg.Harvest.MetricsTextfile)

	switch {
	case err == nil:
	case harvest.IsWriteFailure(err):
		logger.Error("some graphs could not be written", "error", err)
		logReport(logger, report)
		return exitWriteFailed
	default:
		var fetchErr *sparql.FetchError
		if errors.As(err, &fetchErr) {
			logger.Error("harvest aborted", "term", fetchErr.Term, "kind", fetchErr.Kind, "error", err)
		} else {
			logger.Error("harvest failed", "error", err)
		}
		return exitFatal
	}

	logReport(logger, report)
	return 0
}

func buildFetcher(cfg config.Config, fixturePath string) (sparql.Fetcher, error) {
	if fixturePath != "" {
		return sparql.LoadFixture(fixturePath)
	}

	client, err := sparql.NewClient(sparql.Options{
		Endpoint:  cfg.SPARQL.Endpoint,
		Timeout:   cfg.SPARQL.Timeout,
		RateLimit: cfg.SPARQL.RateLimit,
	})
	if err != nil {
		return nil, err
	}
	return sparql.NewResourceFetcher(client, sparql.FetcherOptions{
		ResourcePrefix: cfg.SPARQL.ResourcePrefix,
		Include:        cfg.Harvest.IncludePatterns,
		Exclude:        cfg.Harvest.ExcludePatterns,
		Hops:           cfg.SPARQL.Hops,
	}), nil
}

// buildSinks always writes N3 files and adds every other configured target.
func buildSinks(ctx context.Context, logger *slog.Logger, cfg config.Config, runID string) ([]store.Sink, func(), error) {
	sinks := []store.Sink{store.NewN3Dir(cfg.Output.Root)}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
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
		sinks = append(sinks, repo)
	}

	if cfg.ObjectStore.Endpoint != "" {
		objects, err := store.NewObjectStore(store.ObjectStoreOptions{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Bucket:    cfg.ObjectStore.Bucket,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, objects)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("sinks ready", "sinks", names)
	return sinks, closeAll, nil
}

func writeTextfile(logger *slog.Logger, collector *metrics.Collector, path string) {
	if path == "" {
		return
	}
	if err := collector.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics textfile", "error", err, "path", path)
	}
}

func logReport(logger *slog.Logger, report domain.RunReport) {
	for _, skipped := range report.Skipped {
		logger.Warn("term skipped", "term", skipped.Term, "reason", skipped.Reason)
	}
	logger.Info("harvest complete",
		"terms", report.Terms,
		"skipped", len(report.Skipped),
		"min_count", report.MinCount,
		"targets", report.TargetNodes,
		"graphs", len(report.Graphs),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
	)
}
