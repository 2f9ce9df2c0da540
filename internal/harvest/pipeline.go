package harvest

import (
	"context"
	"log/slog"

	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/metrics"
)

// Selection holds the node selection parameters of a run.
type Selection struct {
	// MinCount of 0 means one occurrence per search term.
	MinCount int
	// A nil Include skips the include stage.
	Include    *kg.PatternSet
	Exclude    *kg.PatternSet
	Merge      bool
	MergedName string
}

// NewSelection compiles the include and exclude patterns. An empty include
// list disables the include stage.
func NewSelection(minCount int, include, exclude []string, merge bool, mergedName string) (Selection, error) {
	sel := Selection{MinCount: minCount, Merge: merge, MergedName: mergedName}
	if len(include) > 0 {
		set, err := kg.CompilePatterns(include...)
		if err != nil {
			return Selection{}, err
		}
		sel.Include = set
	}
	set, err := kg.CompilePatterns(exclude...)
	if err != nil {
		return Selection{}, err
	}
	sel.Exclude = set
	return sel, nil
}

// Reduction is the output of the pipeline.
type Reduction struct {
	// Graphs are the filtered per-term graphs, followed by the merged graph
	// when merging is enabled.
	Graphs      []*kg.Graph
	Frequencies []kg.NodeCount
	Targets     kg.NodeSet
	MinCount    int
}

// Pipeline reduces fetched graphs to the nodes that pass the selection.
type Pipeline struct {
	selection Selection
	logger    *slog.Logger
	metrics   *metrics.Collector
}

// NewPipeline returns a pipeline for sel. logger and collector may be nil.
func NewPipeline(sel Selection, logger *slog.Logger, collector *metrics.Collector) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Pipeline{
		selection: sel,
		logger:    logger.With("component", "pipeline"),
		metrics:   collector,
	}
}

// Run counts node occurrences, selects the target nodes and filters every
// graph to them. terms is the number of search terms of the run and sets the
// threshold when MinCount is 0.
//
// With merging enabled the counts come from the merged graph, so a node needs
// MinCount edges across all terms instead of the sum of per-term counts.
func (p *Pipeline) Run(graphs []*kg.Graph, terms int) Reduction {
	minCount := p.selection.MinCount
	if minCount <= 0 {
		minCount = max(terms, 1)
	}

	var merged *kg.Graph
	var freqs []kg.NodeCount
	if p.selection.Merge {
		merged = kg.Merge(p.selection.MergedName, graphs...)
		freqs = merged.NodeFrequencies()
	} else {
		freqs = kg.ReduceGraphs(graphs...)
	}

	targets := kg.Select(freqs, minCount, p.selection.Include, p.selection.Exclude)
	p.metrics.TargetNodes.Set(float64(targets.Len()))
	p.logger.Info("selected target nodes", "nodes", len(freqs), "targets", targets.Len(), "min_count", minCount)
	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("target nodes", "targets", targets.Sorted())
	}

	out := Reduction{
		Graphs:      make([]*kg.Graph, 0, len(graphs)+1),
		Frequencies: freqs,
		Targets:     targets,
		MinCount:    minCount,
	}
	for _, g := range graphs {
		out.Graphs = append(out.Graphs, g.FilterByNodes(targets))
	}
	if merged != nil {
		out.Graphs = append(out.Graphs, merged.FilterByNodes(targets))
	}
	return out
}
