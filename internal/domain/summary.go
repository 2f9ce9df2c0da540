package domain

import "time"

// GraphSummary describes a stored graph without its triples.
type GraphSummary struct {
	Name      string
	Category  string
	Triples   int
	Nodes     int
	RunID     string
	UpdatedAt time.Time
}

// SkippedTerm records a search term whose fetch failed under the skip policy.
type SkippedTerm struct {
	Term   string
	Reason string
}

// RunReport summarises one harvest run.
type RunReport struct {
	RunID       string
	Terms       int
	Skipped     []SkippedTerm
	MinCount    int
	TargetNodes int
	Graphs      []GraphSummary
	StartedAt   time.Time
	FinishedAt  time.Time
}
