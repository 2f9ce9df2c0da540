package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/store"
)

const (
	defaultFrequencyLimit = 100
	maxFrequencyLimit     = 10000
)

// PathFinder finds paths between resources of an exported graph.
type PathFinder interface {
	ShortestPath(ctx context.Context, category, name, source, target string) (domain.ResourcePath, error)
}

// APIHandlers serves stored graphs.
type APIHandlers struct {
	logger   *slog.Logger
	source   store.Source
	paths    PathFinder
	category string
}

// NewAPIHandlers returns handlers reading from source. category is used when a
// request does not name one. paths may be nil, which disables path queries.
func NewAPIHandlers(logger *slog.Logger, source store.Source, paths PathFinder, category string) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		source:   source,
		paths:    paths,
		category: category,
	}
}

func (h *APIHandlers) handleGraphs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	summaries, err := h.source.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list graphs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list graphs")
		return
	}

	category := r.URL.Query().Get("category")
	response := graphListResponse{Graphs: []graphSummary{}}
	for _, s := range summaries {
		if category != "" && s.Category != category {
			continue
		}
		response.Graphs = append(response.Graphs, graphSummary{
			Name:      s.Name,
			Category:  s.Category,
			Triples:   s.Triples,
			Nodes:     s.Nodes,
			RunID:     s.RunID,
			UpdatedAt: formatTime(s.UpdatedAt),
		})
	}
	response.Total = len(response.Graphs)
	respondJSON(w, http.StatusOK, response)
}

// handleGraph dispatches /graphs/{name}, /graphs/{name}/frequencies and
// /graphs/{name}/path.
func (h *APIHandlers) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/graphs/"), "/")
	switch {
	case strings.HasSuffix(rest, "/frequencies"):
		h.graphFrequencies(w, r, strings.TrimSuffix(rest, "/frequencies"))
	case strings.HasSuffix(rest, "/path"):
		h.graphPath(w, r, strings.TrimSuffix(rest, "/path"))
	default:
		h.graphN3(w, r, rest)
	}
}

func (h *APIHandlers) graphN3(w http.ResponseWriter, r *http.Request, name string) {
	g, ok := h.loadGraph(w, r, name)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/n3; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := g.WriteN3(w); err != nil {
		h.logger.Warn("failed to stream graph", "error", err, "graph", name)
	}
}

func (h *APIHandlers) graphFrequencies(w http.ResponseWriter, r *http.Request, name string) {
	g, ok := h.loadGraph(w, r, name)
	if !ok {
		return
	}

	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), defaultFrequencyLimit)
	if limit <= 0 {
		limit = defaultFrequencyLimit
	}
	if limit > maxFrequencyLimit {
		limit = maxFrequencyLimit
	}

	counts := g.NodeFrequencies()
	total := len(counts)
	if len(counts) > limit {
		counts = counts[:limit]
	}

	rows := make([]nodeFrequency, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, nodeFrequency{Node: c.Node, Count: c.Count})
	}

	if strings.EqualFold(query.Get("format"), "csv") {
		body, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			h.logger.Error("failed to encode frequencies", "error", err, "graph", name)
			writeError(w, http.StatusInternalServerError, "failed to encode frequencies")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	respondJSON(w, http.StatusOK, frequencyResponse{
		Graph:       name,
		Total:       total,
		Frequencies: rows,
	})
}

func (h *APIHandlers) graphPath(w http.ResponseWriter, r *http.Request, name string) {
	if h.paths == nil {
		writeError(w, http.StatusNotImplemented, "path queries require the graph database export")
		return
	}

	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	category := h.categoryOf(r)
	if err := store.CheckCategory(category); err != nil {
		writeError(w, http.StatusNotFound, "graph not found")
		return
	}

	path, err := h.paths.ShortestPath(r.Context(), category, name, from, to)
	if err != nil {
		h.logger.Error("failed to compute path", "error", err, "graph", name)
		writeError(w, http.StatusInternalServerError, "failed to compute path")
		return
	}

	response := pathResponse{
		Graph: name,
		From:  from,
		To:    to,
		Found: path.Found(),
		Hops:  path.Hops,
		Nodes: path.Nodes,
		Edges: []pathEdge{},
	}
	if response.Nodes == nil {
		response.Nodes = []string{}
	}
	for _, e := range path.Edges {
		response.Edges = append(response.Edges, pathEdge{Subject: e.Subject, Predicate: e.Predicate, Object: e.Object})
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) loadGraph(w http.ResponseWriter, r *http.Request, name string) (*kg.Graph, bool) {
	if name == "" {
		writeError(w, http.StatusBadRequest, "graph name is required")
		return nil, false
	}

	g, err := h.source.Load(r.Context(), h.categoryOf(r), name)
	switch {
	case errors.Is(err, store.ErrGraphNotFound), errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusNotFound, "graph not found")
		return nil, false
	case err != nil:
		h.logger.Error("failed to load graph", "error", err, "graph", name)
		writeError(w, http.StatusInternalServerError, "failed to load graph")
		return nil, false
	}
	return g, true
}

func (h *APIHandlers) categoryOf(r *http.Request) string {
	if c := r.URL.Query().Get("category"); c != "" {
		return c
	}
	return h.category
}

type graphSummary struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Triples   int    `json:"triples"`
	Nodes     int    `json:"nodes"`
	RunID     string `json:"runId,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type graphListResponse struct {
	Graphs []graphSummary `json:"graphs"`
	Total  int            `json:"total"`
}

type nodeFrequency struct {
	Node  string `json:"node" csv:"node"`
	Count int    `json:"count" csv:"count"`
}

type frequencyResponse struct {
	Graph       string          `json:"graph"`
	Total       int             `json:"total"`
	Frequencies []nodeFrequency `json:"frequencies"`
}

type pathEdge struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

type pathResponse struct {
	Graph string     `json:"graph"`
	From  string     `json:"from"`
	To    string     `json:"to"`
	Found bool       `json:"found"`
	Hops  int        `json:"hops"`
	Nodes []string   `json:"nodes"`
	Edges []pathEdge `json:"edges"`
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
