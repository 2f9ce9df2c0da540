package graph

import (
	"context"
	"maps"
	"sync"
)

// Statement is a Cypher call recorded by MemoryClient. Tx numbers the
// ExecuteWriteTx call a statement committed with, starting at 1. It is 0 for
// single statements.
type Statement struct {
	Write  bool
	Tx     int
	Cypher string
	Params map[string]any
}

// MemoryClient records statements instead of running them. Results queued
// with Respond are returned in order, one per call.
type MemoryClient struct {
	mu           sync.Mutex
	statements   []Statement
	results      []Result
	err          error
	failing      map[string]error
	txs          int
	connectivity error
	closed       bool
}

// NewMemoryClient returns an empty fake.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent statement fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// FailStatement makes statements with exactly this cypher fail with err.
// A failing statement inside ExecuteWriteTx discards the whole transaction.
func (m *MemoryClient) FailStatement(cypher string, err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing == nil {
		m.failing = make(map[string]error)
	}
	m.failing[cypher] = err
	return m
}

// WithConnectivityError makes VerifyConnectivity fail with err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// Respond queues res for the next statement.
func (m *MemoryClient) Respond(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.record(Statement{Write: true, Cypher: cypher, Params: maps.Clone(params)})
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.record(Statement{Cypher: cypher, Params: maps.Clone(params)})
}

func (m *MemoryClient) ExecuteWriteTx(_ context.Context, queries []Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	for _, q := range queries {
		if err := m.failing[q.Cypher]; err != nil {
			return err
		}
	}
	m.txs++
	for _, q := range queries {
		m.statements = append(m.statements, Statement{Write: true, Tx: m.txs, Cypher: q.Cypher, Params: maps.Clone(q.Params)})
	}
	return nil
}

func (m *MemoryClient) record(st Statement) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	if err := m.failing[st.Cypher]; err != nil {
		return Result{}, err
	}
	m.statements = append(m.statements, st)

	if len(m.results) == 0 {
		return Result{}, nil
	}
	res := m.results[0]
	m.results = m.results[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Statements returns a snapshot of the recorded statements.
func (m *MemoryClient) Statements() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.statements...)
}

// Writes returns the recorded write statements.
func (m *MemoryClient) Writes() []Statement {
	var writes []Statement
	for _, st := range m.Statements() {
		if st.Write {
			writes = append(writes, st)
		}
	}
	return writes
}
