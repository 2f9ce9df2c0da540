package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS graphs (
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	triples INTEGER NOT NULL DEFAULT 0,
	nodes INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (category, name)
);
CREATE TABLE IF NOT EXISTS quads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	graph TEXT NOT NULL,
	seq INTEGER NOT NULL,
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL,
	UNIQUE(category, graph, subject, predicate, object)
);
CREATE INDEX IF NOT EXISTS idx_quads_graph ON quads(category, graph, seq);
CREATE INDEX IF NOT EXISTS idx_quads_subject ON quads(subject);
CREATE INDEX IF NOT EXISTS idx_quads_object ON quads(object);
`

// SQLiteStore keeps every graph of every run as quads: the triple plus the
// graph it belongs to. Publishing a graph replaces its previous contents.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// ForRun returns a store that tags published graphs with runID. It shares the
// connection of s.
func (s *SQLiteStore) ForRun(runID string) *SQLiteStore {
	return &SQLiteStore{db: s.db, runID: runID}
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Name implements Sink.
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Ping implements Source.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Publish implements Sink.
func (s *SQLiteStore) Publish(ctx context.Context, category string, g *kg.Graph) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM quads WHERE category = ? AND graph = ?`, category, g.Name()); err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO quads (category, graph, seq, subject, predicate, object)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range g.Triples() {
		if _, err = stmt.ExecContext(ctx, category, g.Name(), i, t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("insert triple: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs (category, name, run_id, triples, nodes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, name) DO UPDATE SET
			run_id = excluded.run_id,
			triples = excluded.triples,
			nodes = excluded.nodes,
			updated_at = excluded.updated_at`,
		category, g.Name(), s.runID, g.Len(), g.UniqueNodes().Len(), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("upsert graph: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List implements Source.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.GraphSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, name, run_id, triples, nodes, updated_at
		FROM graphs
		ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer rows.Close()

	var summaries []domain.GraphSummary
	for rows.Next() {
		var (
			summary domain.GraphSummary
			updated int64
		)
		if err := rows.Scan(&summary.Category, &summary.Name, &summary.RunID, &summary.Triples, &summary.Nodes, &updated); err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		summary.UpdatedAt = time.Unix(updated, 0).UTC()
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Load implements Source. Triples come back in the order they were published.
func (s *SQLiteStore) Load(ctx context.Context, category, name string) (*kg.Graph, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM graphs WHERE category = ? AND name = ?`, category, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrGraphNotFound, category, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup graph: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, predicate, object
		FROM quads
		WHERE category = ? AND graph = ?
		ORDER BY seq`, category, name)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	defer rows.Close()

	var triples []kg.Triple
	for rows.Next() {
		var t kg.Triple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		triples = append(triples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return kg.NewGraph(name, triples), nil
}
