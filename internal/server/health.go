package server

import (
	"context"
	"fmt"

	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/store"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// StoreHealthService checks the graph source and, when configured, the Neo4j
// export target.
type StoreHealthService struct {
	Source store.Source
	Graph  graph.Client
}

// Probe implements HealthService.
func (s StoreHealthService) Probe(ctx context.Context) error {
	if s.Source != nil {
		if err := s.Source.Ping(ctx); err != nil {
			return fmt.Errorf("graph store: %w", err)
		}
	}
	if s.Graph != nil {
		if err := s.Graph.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("graph database: %w", err)
		}
	}
	return nil
}
