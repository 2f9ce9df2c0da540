package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/vanshika/kgharvest/internal/graph"
	"github.com/vanshika/kgharvest/internal/kg"
)

func testGraph() *kg.Graph {
	return kg.NewGraph("Tokyo", []kg.Triple{
		{Subject: "r:Tokyo", Predicate: "p:country", Object: "r:Japan"},
		{Subject: "r:Tokyo", Predicate: "p:type", Object: "r:City"},
		{Subject: "r:Japan", Predicate: "p:capital", Object: "r:Tokyo"},
	})
}

func TestRepository_Publish(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem).WithBatchSize(2)

	if err := repo.Publish(context.Background(), "cities", testGraph()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	writes := mem.Writes()
	if len(writes) != 3 {
		t.Fatalf("expected clear plus 2 batches, got %d writes", len(writes))
	}
	if writes[0].Cypher != clearGraphCypher {
		t.Fatalf("first statement should clear the graph, got:\n%s", writes[0].Cypher)
	}
	if writes[0].Params["graph"] != "Tokyo" || writes[0].Params["category"] != "cities" {
		t.Errorf("unexpected clear params: %v", writes[0].Params)
	}
	for _, w := range writes {
		if w.Tx != 1 {
			t.Fatalf("expected every statement in transaction 1, got %d", w.Tx)
		}
	}

	first, ok := writes[1].Params["triples"].([]map[string]any)
	if !ok {
		t.Fatalf("expected triples param, got %T", writes[1].Params["triples"])
	}
	if len(first) != 2 {
		t.Errorf("expected batch of 2, got %d", len(first))
	}
	if first[0]["s"] != "r:Tokyo" || first[0]["p"] != "p:country" || first[0]["o"] != "r:Japan" {
		t.Errorf("unexpected first triple: %v", first[0])
	}

	second := writes[2].Params["triples"].([]map[string]any)
	if len(second) != 1 {
		t.Errorf("expected trailing batch of 1, got %d", len(second))
	}
	if writes[2].Cypher != mergeTriplesCypher {
		t.Errorf("unexpected merge query:\n%s", writes[2].Cypher)
	}
}

func TestRepository_PublishEmptyGraphOnlyClears(t *testing.T) {
	mem := graph.NewMemoryClient()

	if err := New(mem).Publish(context.Background(), "c", kg.NewGraph("empty", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(mem.Writes()); got != 1 {
		t.Fatalf("expected only the clear statement, got %d", got)
	}
}

func TestRepository_PublishPropagatesErrors(t *testing.T) {
	boom := errors.New("bolt down")
	mem := graph.NewMemoryClient().WithError(boom)

	err := New(mem).Publish(context.Background(), "c", testGraph())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestRepository_PublishFailedBatchCommitsNothing(t *testing.T) {
	lost := errors.New("connection reset")
	mem := graph.NewMemoryClient().FailStatement(mergeTriplesCypher, lost)

	err := New(mem).WithBatchSize(2).Publish(context.Background(), "cities", testGraph())
	if !errors.Is(err, lost) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
	if got := len(mem.Writes()); got != 0 {
		t.Fatalf("expected the clear to roll back with the failed batch, got %d committed writes", got)
	}
}

func TestRepository_EnsureSchema(t *testing.T) {
	mem := graph.NewMemoryClient()
	if err := New(mem).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writes := mem.Writes()
	if len(writes) != 1 || writes[0].Cypher != resourceConstraintCypher {
		t.Fatalf("expected constraint statement, got %+v", writes)
	}
}

func TestRepository_CountTriples(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.Respond(graph.Result{Records: []graph.Record{{"triples": int64(3)}}})

	count, err := New(mem).CountTriples(context.Background(), "cities", "Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 triples, got %d", count)
	}

	reads := mem.Statements()
	if reads[0].Write {
		t.Errorf("count should run as a read")
	}
}

func TestRepository_ShortestPath(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.Respond(graph.Result{Records: []graph.Record{{
		"nodes": []any{"r:Tokyo", "r:Japan"},
		"edges": []any{map[string]any{
			"subject":   "r:Tokyo",
			"predicate": "p:country",
			"object":    "r:Japan",
		}},
		"hops": int64(1),
	}}})

	path, err := New(mem).ShortestPath(context.Background(), "cities", "Tokyo", "r:Tokyo", "r:Japan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !path.Found() || path.Hops != 1 {
		t.Fatalf("unexpected path: %+v", path)
	}
	if len(path.Edges) != 1 || path.Edges[0].Predicate != "p:country" {
		t.Errorf("unexpected edges: %+v", path.Edges)
	}
}

func TestRepository_ShortestPathSameNode(t *testing.T) {
	mem := graph.NewMemoryClient()

	path, err := New(mem).ShortestPath(context.Background(), "c", "g", "r:A", "r:A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Hops != 0 || len(path.Nodes) != 1 {
		t.Errorf("unexpected path: %+v", path)
	}
	if len(mem.Statements()) != 0 {
		t.Errorf("same-node path should not query the database")
	}
}

func TestRepository_ShortestPathNotFound(t *testing.T) {
	path, err := New(graph.NewMemoryClient()).ShortestPath(context.Background(), "c", "g", "r:A", "r:B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Found() {
		t.Errorf("expected no path, got %+v", path)
	}
}
