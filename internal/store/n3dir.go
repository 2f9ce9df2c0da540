package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
)

const n3Ext = ".n3"

// N3Dir writes each graph to <root>/<category>/<name>.n3.
type N3Dir struct {
	root string
}

// NewN3Dir returns a sink rooted at root. Directories are created on write.
func NewN3Dir(root string) *N3Dir {
	return &N3Dir{root: root}
}

// Name implements Sink.
func (d *N3Dir) Name() string {
	return "n3"
}

// Path returns the artifact path of graph name in category.
func (d *N3Dir) Path(category, name string) (string, error) {
	if err := CheckCategory(category); err != nil {
		return "", err
	}
	base, err := FileName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, category, base+n3Ext), nil
}

// Publish truncates or creates the artifact and writes every triple.
func (d *N3Dir) Publish(ctx context.Context, category string, g *kg.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.Path(category, g.Name())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return writeN3(path, g)
}

func writeN3(path string, g *kg.Graph) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := g.WriteN3(file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// List walks the tree and summarises every artifact.
func (d *N3Dir) List(ctx context.Context) ([]domain.GraphSummary, error) {
	var summaries []domain.GraphSummary
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), n3Ext) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, filepath.Dir(path))
		if err != nil {
			return err
		}
		g, err := readN3(path, strings.TrimSuffix(entry.Name(), n3Ext))
		if err != nil {
			return err
		}
		summary := summarize(filepath.ToSlash(rel), g)
		if info, err := entry.Info(); err == nil {
			summary.UpdatedAt = info.ModTime().UTC()
		}
		summaries = append(summaries, summary)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Category != summaries[j].Category {
			return summaries[i].Category < summaries[j].Category
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// Load parses the artifact of name in category.
func (d *N3Dir) Load(ctx context.Context, category, name string) (*kg.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.Path(category, name)
	if err != nil {
		return nil, err
	}
	g, err := readN3(path, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrGraphNotFound, category, name)
	}
	return g, err
}

// Ping checks that the root is readable. A root that does not exist yet is
// healthy: nothing has been harvested.
func (d *N3Dir) Ping(context.Context) error {
	_, err := os.Stat(d.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func readN3(path, name string) (*kg.Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	triples, err := kg.ParseN3(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return kg.NewGraph(name, triples), nil
}
