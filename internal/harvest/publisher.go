package harvest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/metrics"
	"github.com/vanshika/kgharvest/internal/store"
)

// TaskError accumulates the write failures of a publish.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// PublisherOptions configures NewPublisher.
type PublisherOptions struct {
	Category string
	// Concurrency bounds the number of writes in flight.
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

// Publisher writes graphs to every sink. A failed write does not stop the
// other writes.
type Publisher struct {
	sinks       []store.Sink
	category    string
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Collector
}

// NewPublisher returns a Publisher for sinks.
func NewPublisher(sinks []store.Sink, opts PublisherOptions) *Publisher {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Publisher{
		sinks:       sinks,
		category:    opts.Category,
		concurrency: concurrency,
		logger:      logger.With("component", "publisher"),
		metrics:     collector,
	}
}

// Publish writes every graph to every sink and returns a summary of each graph
// that every sink wrote. Graphs whose name collides with an earlier
// graph are rejected with store.ErrNameCollision. The returned error is a
// *TaskError of *store.WriteError values.
func (p *Publisher) Publish(ctx context.Context, graphs []*kg.Graph) ([]domain.GraphSummary, error) {
	var (
		mu      sync.Mutex
		taskErr TaskError
		failed  = make(map[*kg.Graph]struct{})
	)

	rejected := store.CheckNames(p.category, graphs)
	accepted := make([]*kg.Graph, 0, len(graphs))
	for i, g := range graphs {
		if err := rejected[i]; err != nil {
			p.logger.Error("graph rejected", "graph", g.Name(), "error", err)
			taskErr.append(&store.WriteError{Sink: "publish", Graph: g.Name(), Err: err})
			continue
		}
		accepted = append(accepted, g)
	}

	var group errgroup.Group
	group.SetLimit(p.concurrency)
	for _, g := range accepted {
		g := g
		for _, sink := range p.sinks {
			sink := sink
			group.Go(func() error {
				err := sink.Publish(ctx, p.category, g)
				p.metrics.ObservePublish(sink.Name(), g.Len(), err)
				if err != nil {
					p.logger.Error("write failed", "sink", sink.Name(), "graph", g.Name(), "error", err)
					mu.Lock()
					taskErr.append(&store.WriteError{Sink: sink.Name(), Graph: g.Name(), Err: err})
					failed[g] = struct{}{}
					mu.Unlock()
					return nil
				}
				p.logger.Debug("graph written", "sink", sink.Name(), "graph", g.Name(), "triples", g.Len())
				return nil
			})
		}
	}
	_ = group.Wait()

	summaries := make([]domain.GraphSummary, 0, len(accepted))
	for _, g := range accepted {
		if _, ok := failed[g]; ok {
			continue
		}
		summaries = append(summaries, domain.GraphSummary{
			Name:     g.Name(),
			Category: p.category,
			Triples:  g.Len(),
			Nodes:    g.UniqueNodes().Len(),
		})
	}
	return summaries, taskErr.asError()
}

// IsWriteFailure reports whether err carries at least one *store.WriteError.
func IsWriteFailure(err error) bool {
	var writeErr *store.WriteError
	return errors.As(err, &writeErr)
}
