package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanshika/kgharvest/internal/domain"
	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/metrics"
	"github.com/vanshika/kgharvest/internal/store"
)

type stubPaths struct {
	path domain.ResourcePath
	err  error
}

func (s stubPaths) ShortestPath(_ context.Context, _, _, _, _ string) (domain.ResourcePath, error) {
	return s.path, s.err
}

type failingSource struct{ err error }

func (f failingSource) List(context.Context) ([]domain.GraphSummary, error) { return nil, f.err }
func (f failingSource) Load(context.Context, string, string) (*kg.Graph, error) {
	return nil, f.err
}
func (f failingSource) Ping(context.Context) error { return f.err }

func newTestRouter(t *testing.T, paths PathFinder) (http.Handler, *metrics.Collector) {
	t.Helper()
	dir := store.NewN3Dir(t.TempDir())
	g := kg.NewGraph("Tokyo", []kg.Triple{
		{Subject: "r:Tokyo", Predicate: "p:country", Object: "r:Japan"},
		{Subject: "r:Kyoto", Predicate: "p:near", Object: "r:Tokyo"},
	})
	if err := dir.Publish(context.Background(), "cities", g); err != nil {
		t.Fatalf("publish fixture graph: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector()
	router := NewRouter(logger, RouterDependencies{
		Health:  StoreHealthService{Source: dir},
		API:     NewAPIHandlers(logger, dir, paths, "cities"),
		Metrics: collector,
	})
	return router, collector
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleGraphs(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := serve(router, "/graphs")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload graphListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Total != 1 || len(payload.Graphs) != 1 {
		t.Fatalf("expected one graph, got %+v", payload)
	}
	got := payload.Graphs[0]
	if got.Name != "Tokyo" || got.Category != "cities" || got.Triples != 2 || got.Nodes != 3 {
		t.Errorf("unexpected summary: %+v", got)
	}

	rec = serve(router, "/graphs?category=other")
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Total != 0 {
		t.Errorf("expected category filter to drop the graph, got %d", payload.Total)
	}
}

func TestHandleGraphN3(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := serve(router, "/graphs/Tokyo")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/n3") {
		t.Fatalf("expected text/n3 content type, got %s", ct)
	}
	want := "<r:Tokyo> <p:country> <r:Japan> .\n<r:Kyoto> <p:near> <r:Tokyo> .\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestHandleGraphNotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	if rec := serve(router, "/graphs/Osaka"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if rec := serve(router, "/graphs/%20"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for invalid name, got %d", rec.Code)
	}
}

func TestHandleGraphCategoryOutsideRoot(t *testing.T) {
	base := t.TempDir()
	private := store.NewN3Dir(filepath.Join(base, "private"))
	secret := kg.NewGraph("secret", []kg.Triple{{Subject: "s", Predicate: "p", Object: "o"}})
	if err := private.Publish(context.Background(), "x", secret); err != nil {
		t.Fatalf("publish graph outside root: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := store.NewN3Dir(filepath.Join(base, "data"))
	router := NewRouter(logger, RouterDependencies{API: NewAPIHandlers(logger, dir, nil, "cities")})

	for _, target := range []string{
		"/graphs/secret?category=../private/x",
		"/graphs/secret/frequencies?category=../private/x",
		"/graphs/secret?category=..",
	} {
		rec := serve(router, target)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "<s>") {
			t.Fatalf("%s: graph outside the output root was served", target)
		}
	}
}

func TestHandleFrequencies(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := serve(router, "/graphs/Tokyo/frequencies?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload frequencyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Total != 3 {
		t.Errorf("expected 3 distinct nodes, got %d", payload.Total)
	}
	if len(payload.Frequencies) != 1 {
		t.Fatalf("expected limit to apply, got %d rows", len(payload.Frequencies))
	}
	if top := payload.Frequencies[0]; top.Node != "r:Tokyo" || top.Count != 2 {
		t.Errorf("unexpected top node: %+v", top)
	}
}

func TestHandleFrequenciesCSV(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := serve(router, "/graphs/Tokyo/frequencies?format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv content type, got %s", ct)
	}

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "node" || records[0][1] != "count" {
		t.Errorf("unexpected header: %v", records[0])
	}
}

func TestHandlePath(t *testing.T) {
	paths := stubPaths{path: domain.ResourcePath{
		Nodes: []string{"r:Kyoto", "r:Tokyo"},
		Edges: []domain.PathEdge{{Subject: "r:Kyoto", Predicate: "p:near", Object: "r:Tokyo"}},
		Hops:  1,
	}}
	router, _ := newTestRouter(t, paths)

	rec := serve(router, "/graphs/Tokyo/path?from=r:Kyoto&to=r:Tokyo")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload pathResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.Found || payload.Hops != 1 || len(payload.Edges) != 1 {
		t.Errorf("unexpected path: %+v", payload)
	}

	if rec := serve(router, "/graphs/Tokyo/path?from=r:Kyoto"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without target, got %d", rec.Code)
	}
	if rec := serve(router, "/graphs/Tokyo/path?from=r:Kyoto&to=r:Tokyo&category=../x"); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for nested category, got %d", rec.Code)
	}
}

func TestHandlePathWithoutGraphDatabase(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	if rec := serve(router, "/graphs/Tokyo/path?from=a&to=b"); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphs", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("expected Allow: GET, got %q", allow)
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	if rec := serve(router, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broken := failingSource{err: errors.New("disk gone")}
	degraded := NewRouter(logger, RouterDependencies{Health: StoreHealthService{Source: broken}})
	rec := serve(degraded, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("expected degraded status, got %s", rec.Body.String())
	}
}

func TestListFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{
		API: NewAPIHandlers(logger, failingSource{err: errors.New("locked")}, nil, "c"),
	})

	if rec := serve(router, "/graphs"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	serve(router, "/graphs/Tokyo")

	rec := serve(router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/graphs/{name}"`) {
		t.Errorf("expected request metric with collapsed route, got:\n%s", rec.Body.String())
	}
}

func TestRouteOf(t *testing.T) {
	cases := map[string]string{
		"/graphs":                   "/graphs",
		"/graphs/Tokyo":             "/graphs/{name}",
		"/graphs/Tokyo/":            "/graphs/{name}",
		"/graphs/Tokyo/frequencies": "/graphs/{name}/frequencies",
		"/graphs/Tokyo/path":        "/graphs/{name}/path",
		"/favicon.ico":              "other",
	}
	for path, want := range cases {
		if got := routeOf(path); got != want {
			t.Errorf("routeOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCORS(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{AllowedOrigins: ParseAllowedOrigins("https://a.example, ,https://b.example")})

	req := httptest.NewRequest(http.MethodOptions, "/graphs", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://b.example" {
		t.Errorf("unexpected allow origin %q", got)
	}
}
