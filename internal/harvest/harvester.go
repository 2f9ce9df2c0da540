// Package harvest runs a harvest: it fetches one graph per search term,
// reduces the graphs to the selected core and hands the result to the sinks.
package harvest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/metrics"
	"github.com/vanshika/kgharvest/internal/sparql"
)

const defaultWorkers = 4

// HarvesterOptions configures NewHarvester.
type HarvesterOptions struct {
	Workers int
	// SkipFailed drops terms whose fetch failed instead of aborting the run.
	SkipFailed bool
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Harvester fetches the triples of many terms with a bounded worker pool.
type Harvester struct {
	fetcher    sparql.Fetcher
	workers    int
	skipFailed bool
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Fetched is the per-term outcome of a harvest, in term order.
type Fetched struct {
	Graphs  []*kg.Graph
	Skipped []domain.SkippedTerm
}

// NewHarvester returns a Harvester that uses fetcher for every term.
func NewHarvester(fetcher sparql.Fetcher, opts HarvesterOptions) *Harvester {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Harvester{
		fetcher:    fetcher,
		workers:    workers,
		skipFailed: opts.SkipFailed,
		logger:     logger.With("component", "harvester"),
		metrics:    collector,
	}
}

// Harvest builds one graph per term. Graphs keep the order of terms. Without
// SkipFailed the first failure cancels the remaining fetches and is returned.
func (h *Harvester) Harvest(ctx context.Context, terms []string) (Fetched, error) {
	graphs := make([]*kg.Graph, len(terms))
	failures := make([]error, len(terms))

	err := h.run(ctx, len(terms), func(ctx context.Context, idx int) error {
		g, err := h.fetch(ctx, terms[idx])
		if err != nil {
			failures[idx] = err
			return err
		}
		graphs[idx] = g
		return nil
	})
	if err != nil {
		return Fetched{}, err
	}

	var out Fetched
	for idx, term := range terms {
		if failures[idx] != nil {
			h.logger.Warn("skipping term", "term", term, "error", failures[idx])
			out.Skipped = append(out.Skipped, domain.SkippedTerm{
				Term:   term,
				Reason: failures[idx].Error(),
			})
			continue
		}
		out.Graphs = append(out.Graphs, graphs[idx])
	}
	return out, nil
}

func (h *Harvester) fetch(ctx context.Context, term string) (*kg.Graph, error) {
	start := time.Now()
	triples, err := h.fetcher.Fetch(ctx, term)
	h.metrics.ObserveFetch(start, len(triples), err)
	if err != nil {
		return nil, err
	}
	g := kg.NewGraph(term, triples)
	h.logger.Debug("fetched term", "term", term, "triples", g.Len(), "duration", time.Since(start))
	return g, nil
}

func (h *Harvester) run(ctx context.Context, total int, task func(ctx context.Context, idx int) error) error {
	if total == 0 {
		return nil
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	indexCh := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := task(runCtx, idx); err != nil && !h.skipFailed {
				cancel(err)
			}
		}
	}

	for i := 0; i < min(h.workers, total); i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-runCtx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Cause(runCtx)
}
