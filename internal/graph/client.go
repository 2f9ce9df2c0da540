// Package graph wraps the Neo4j driver behind a small interface so the export
// repository can be tested against an in-memory fake.
package graph

import (
	"context"
	"errors"
)

// Client runs Cypher statements against a graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWriteTx runs queries in order in a single write transaction.
	// Either all of them commit or none do.
	ExecuteWriteTx(ctx context.Context, queries []Query) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Query is one statement of a multi-statement transaction.
type Query struct {
	Cypher string
	Params map[string]any
}

// Result holds the records returned by a statement.
type Result struct {
	Records []Record
}

// Record maps result keys to values.
type Record map[string]any

// Int64 returns the integer stored under key, or 0.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// String returns the string stored under key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Options configures NewNeo4jClient.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
