// Package store persists harvested graphs: N3 files, a SQLite quad table and
// an S3-compatible bucket.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
)

// Sink receives finished graphs.
type Sink interface {
	Name() string
	Publish(ctx context.Context, category string, g *kg.Graph) error
}

// Source reads graphs back for the API.
type Source interface {
	List(ctx context.Context) ([]domain.GraphSummary, error)
	Load(ctx context.Context, category, name string) (*kg.Graph, error)
	Ping(ctx context.Context) error
}

var (
	// ErrNameCollision is returned for a graph that would overwrite the output
	// of an earlier graph in the same run.
	ErrNameCollision = errors.New("graph name collides with an earlier graph")
	// ErrInvalidName is returned for graph or category names that cannot be
	// turned into a path below the output root.
	ErrInvalidName = errors.New("invalid graph name")
	// ErrGraphNotFound is returned by Load for unknown graphs.
	ErrGraphNotFound = errors.New("graph not found")
)

// WriteError reports a graph that a sink failed to persist.
type WriteError struct {
	Sink  string
	Graph string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write graph %q: %v", e.Sink, e.Graph, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

var fileNameReplacer = strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")

// FileName maps a graph name to the base name of its artifact, without
// extension. Path separators are replaced so a name cannot escape its category.
func FileName(name string) (string, error) {
	cleaned := fileNameReplacer.Replace(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

// CheckCategory rejects categories that are not a single path element.
func CheckCategory(category string) error {
	if category == "" || category == "." || category == ".." ||
		strings.ContainsAny(category, "/\\\x00") {
		return fmt.Errorf("%w: category %q", ErrInvalidName, category)
	}
	return nil
}

// CheckNames returns, for every graph that cannot be written, the reason. The
// first graph to claim an artifact name keeps it.
func CheckNames(category string, graphs []*kg.Graph) map[int]error {
	rejected := make(map[int]error)
	owners := make(map[string]string, len(graphs))
	for i, g := range graphs {
		base, err := FileName(g.Name())
		if err != nil {
			rejected[i] = err
			continue
		}
		key := category + "/" + base
		if owner, ok := owners[key]; ok {
			rejected[i] = fmt.Errorf("%w: %q and %q both map to %s.n3", ErrNameCollision, owner, g.Name(), key)
			continue
		}
		owners[key] = g.Name()
	}
	return rejected
}

func summarize(category string, g *kg.Graph) domain.GraphSummary {
	return domain.GraphSummary{
		Name:     g.Name(),
		Category: category,
		Triples:  g.Len(),
		Nodes:    g.UniqueNodes().Len(),
	}
}
