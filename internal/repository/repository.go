// Package repository exports harvested graphs to Neo4j. Every node becomes a
// :Resource keyed by IRI and every triple a :LINK relationship tagged with its
// predicate, graph and category.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/kg"
)

const defaultBatchSize = 500

// Repository writes graphs through a graph.Client.
type Repository struct {
	client    graph.Client
	batchSize int
}

// New returns a Repository backed by client.
func New(client graph.Client) *Repository {
	return &Repository{client: client, batchSize: defaultBatchSize}
}

// WithBatchSize sets how many triples go into one UNWIND statement.
func (r *Repository) WithBatchSize(n int) *Repository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Name identifies the repository as a sink.
func (r *Repository) Name() string {
	return "neo4j"
}

// EnsureSchema creates the IRI uniqueness constraint.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, resourceConstraintCypher, nil); err != nil {
		return fmt.Errorf("create resource constraint: %w", err)
	}
	return nil
}

// Publish replaces the relationships of g in category. The clear and every
// batch run in one transaction, so a failed publish leaves the previous
// version in place. Resources are shared across graphs and are never deleted
// here.
func (r *Repository) Publish(ctx context.Context, category string, g *kg.Graph) error {
	if g.Name() == "" {
		return errors.New("graph name is required")
	}

	triples := g.Triples()
	queries := make([]graph.Query, 0, 1+(len(triples)+r.batchSize-1)/r.batchSize)
	queries = append(queries, graph.Query{
		Cypher: clearGraphCypher,
		Params: map[string]any{
			"graph":    g.Name(),
			"category": category,
		},
	})
	for start := 0; start < len(triples); start += r.batchSize {
		end := min(start+r.batchSize, len(triples))
		queries = append(queries, graph.Query{
			Cypher: mergeTriplesCypher,
			Params: map[string]any{
				"graph":    g.Name(),
				"category": category,
				"triples":  tripleParams(triples[start:end]),
			},
		})
	}

	if err := r.client.ExecuteWriteTx(ctx, queries); err != nil {
		return fmt.Errorf("replace graph %s: %w", g.Name(), err)
	}
	return nil
}

// CountTriples returns the number of LINK relationships stored for a graph.
func (r *Repository) CountTriples(ctx context.Context, category, name string) (int64, error) {
	res, err := r.client.ExecuteRead(ctx, countTriplesCypher, map[string]any{
		"graph":    name,
		"category": category,
	})
	if err != nil {
		return 0, fmt.Errorf("count triples: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return res.Records[0].Int64("triples"), nil
}

// ShortestPath finds the shortest undirected path between two resources using
// only the links of one graph.
func (r *Repository) ShortestPath(ctx context.Context, category, name, source, target string) (domain.ResourcePath, error) {
	path := domain.ResourcePath{Graph: name, Source: source, Target: target}
	if source == "" || target == "" {
		return path, errors.New("source and target are required")
	}
	if source == target {
		path.Nodes = []string{source}
		return path, nil
	}

	res, err := r.client.ExecuteRead(ctx, shortestPathCypher, map[string]any{
		"graph":    name,
		"category": category,
		"source":   source,
		"target":   target,
	})
	if err != nil {
		return path, fmt.Errorf("shortest path query: %w", err)
	}
	if len(res.Records) == 0 {
		return path, nil
	}

	record := res.Records[0]
	if nodes, ok := record["nodes"].([]any); ok {
		for _, n := range nodes {
			if iri, ok := n.(string); ok {
				path.Nodes = append(path.Nodes, iri)
			}
		}
	}
	if edges, ok := record["edges"].([]any); ok {
		for _, e := range edges {
			edge, ok := e.(map[string]any)
			if !ok {
				continue
			}
			path.Edges = append(path.Edges, domain.PathEdge{
				Subject:   toString(edge["subject"]),
				Predicate: toString(edge["predicate"]),
				Object:    toString(edge["object"]),
			})
		}
	}
	path.Hops = int(record.Int64("hops"))
	return path, nil
}

func tripleParams(triples []kg.Triple) []map[string]any {
	out := make([]map[string]any, 0, len(triples))
	for _, t := range triples {
		out = append(out, map[string]any{
			"s": t.Subject,
			"p": t.Predicate,
			"o": t.Object,
		})
	}
	return out
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

const resourceConstraintCypher = `
CREATE CONSTRAINT resource_iri IF NOT EXISTS
FOR (r:Resource) REQUIRE r.iri IS UNIQUE
`

const clearGraphCypher = `
MATCH (:Resource)-[l:LINK {graph: $graph, category: $category}]->(:Resource)
DELETE l
`

const mergeTriplesCypher = `
UNWIND $triples AS t
MERGE (s:Resource {iri: t.s})
MERGE (o:Resource {iri: t.o})
MERGE (s)-[l:LINK {predicate: t.p, graph: $graph, category: $category}]->(o)
RETURN count(l) AS merged
`

const countTriplesCypher = `
MATCH (:Resource)-[l:LINK {graph: $graph, category: $category}]->(:Resource)
RETURN count(l) AS triples
`

const shortestPathCypher = `
MATCH (source:Resource {iri: $source}), (target:Resource {iri: $target})
MATCH path = shortestPath((source)-[:LINK*..6]-(target))
WHERE all(l IN relationships(path) WHERE l.graph = $graph AND l.category = $category)
RETURN [n IN nodes(path) | n.iri] AS nodes,
[l IN relationships(path) | {
  subject: startNode(l).iri,
  predicate: l.predicate,
  object: endNode(l).iri
}] AS edges,
length(path) AS hops
`
