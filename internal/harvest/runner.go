package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/vanshika/kgharvest/internal/domain"
)

// Runner ties fetching, reduction and publishing together.
type Runner struct {
	RunID     string
	Harvester *Harvester
	Pipeline  *Pipeline
	Publisher *Publisher
	Logger    *slog.Logger
}

// Run harvests terms and publishes the reduced graphs. A fetch error aborts
// before anything is written. Write errors are returned together with the
// report.
func (r *Runner) Run(ctx context.Context, terms []string) (domain.RunReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := domain.RunReport{
		RunID:     r.RunID,
		Terms:     len(terms),
		StartedAt: time.Now().UTC(),
	}

	fetched, err := r.Harvester.Harvest(ctx, terms)
	if err != nil {
		return report, err
	}
	report.Skipped = fetched.Skipped
	logger.Info("harvest complete", "graphs", len(fetched.Graphs), "skipped", len(fetched.Skipped))

	reduction := r.Pipeline.Run(fetched.Graphs, len(terms))
	report.MinCount = reduction.MinCount
	report.TargetNodes = reduction.Targets.Len()

	summaries, err := r.Publisher.Publish(ctx, reduction.Graphs)
	for i := range summaries {
		summaries[i].RunID = r.RunID
		summaries[i].UpdatedAt = time.Now().UTC()
	}
	report.Graphs = summaries
	report.FinishedAt = time.Now().UTC()
	return report, err
}
