package sparql

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/kgharvest/internal/kg"
)

const prefix = "http://ja.dbpedia.org/resource/"

const oneHopBody = `{
  "head": {"link": [], "vars": ["p1", "o1"]},
  "results": {"distinct": false, "ordered": true, "bindings": [
    {"p1": {"type": "uri", "value": "http://dbpedia.org/ontology/wikiPageWikiLink"},
     "o1": {"type": "uri", "value": "http://ja.dbpedia.org/resource/コンビニエンスストア"}},
    {"p1": {"type": "uri", "value": "http://dbpedia.org/ontology/wikiPageWikiLink"},
     "o1": {"type": "uri", "value": "http://ja.dbpedia.org/resource/三菱商事"}}
  ]}
}`

const twoHopBody = `{
  "head": {"link": [], "vars": ["p1", "o1", "p2", "o2"]},
  "results": {"distinct": false, "ordered": true, "bindings": [
    {"p1": {"type": "uri", "value": "p"}, "o1": {"type": "uri", "value": "http://ja.dbpedia.org/resource/B"},
     "p2": {"type": "uri", "value": "q"}, "o2": {"type": "uri", "value": "http://ja.dbpedia.org/resource/C"}}
  ]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{Endpoint: srv.URL, Timeout: 2 * time.Second, BreakerFailures: 2, BreakerCooldown: time.Minute})
	require.NoError(t, err)
	return client
}

func TestResourceFetcher_OneHop(t *testing.T) {
	var gotQuery, gotFormat, gotTimeout string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotFormat = r.URL.Query().Get("format")
		gotTimeout = r.URL.Query().Get("timeout")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(oneHopBody))
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{
		ResourcePrefix: prefix,
		Include:        []string{"http://ja.dbpedia.org/resource/+"},
		Exclude:        []string{"http://ja.dbpedia.org/resource/Template:+"},
	})

	triples, err := fetcher.Fetch(context.Background(), "ローソン")
	require.NoError(t, err)

	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "2000", gotTimeout)
	assert.Contains(t, gotQuery, "<http://ja.dbpedia.org/resource/ローソン> ?p1 ?o1 .")
	assert.Contains(t, gotQuery, `FILTER regex(?o1, "^(?=http://ja.dbpedia.org/resource/+)(?!http://ja.dbpedia.org/resource/Template:+)")`)

	require.Len(t, triples, 2)
	for _, triple := range triples {
		assert.Equal(t, prefix+"ローソン", triple.Subject)
	}
	assert.Equal(t, prefix+"コンビニエンスストア", triples[0].Object)
}

func TestResourceFetcher_FetchLinks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(oneHopBody))
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix})

	links, err := fetcher.FetchLinks(context.Background(), "ローソン")
	require.NoError(t, err)

	g := kg.NewGraphFromLinks("ローソン", ResourceIRI(prefix, "ローソン"), links)
	assert.Equal(t, 2, g.Len())
}

func TestResourceFetcher_TwoHop(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(twoHopBody))
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix, Hops: 2})

	triples, err := fetcher.Fetch(context.Background(), "A")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "?o1 ?p2 ?o2 .")
	assert.Equal(t, []kg.Triple{
		{Subject: prefix + "A", Predicate: "p", Object: prefix + "B"},
		{Subject: prefix + "B", Predicate: "q", Object: prefix + "C"},
	}, triples)
}

func TestResourceFetcher_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix})

	_, err := fetcher.Fetch(context.Background(), "ローソン")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, KindStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusBadRequest, fetchErr.Status)
	assert.Equal(t, "ローソン", fetchErr.Term)
}

func TestResourceFetcher_DecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix})

	_, err := fetcher.Fetch(context.Background(), "ローソン")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, KindDecode, fetchErr.Kind)
	assert.Contains(t, err.Error(), `fetch "ローソン"`)
}

func TestClient_BreakerOpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix})

	for i := 0; i < 2; i++ {
		_, err := fetcher.Fetch(context.Background(), "x")
		require.Error(t, err)
	}
	_, err := fetcher.Fetch(context.Background(), "x")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, KindTransport, fetchErr.Kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(oneHopBody))
	})
	fetcher := NewResourceFetcher(client, FetcherOptions{ResourcePrefix: prefix})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "x")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, KindTransport, fetchErr.Kind)
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestQueries(t *testing.T) {
	q := OneHopQuery(ResourceIRI(prefix, "New York"), []string{`a"b`}, nil)

	assert.Contains(t, q, "<http://ja.dbpedia.org/resource/New_York>")
	assert.Contains(t, q, `"^(?=a\"b)"`)
	assert.Contains(t, OneHopQuery("r", nil, nil), `FILTER regex(?o1, "^")`)
	assert.True(t, strings.Contains(TwoHopQuery("r", nil, nil), "SELECT ?p1 ?o1 ?p2 ?o2"))
}

func TestFixtureFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	body := `{"ローソン": [{"subject": "s", "predicate": "p", "object": "o"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	fetcher, err := LoadFixture(path)
	require.NoError(t, err)

	triples, err := fetcher.Fetch(context.Background(), "ローソン")
	require.NoError(t, err)
	assert.Equal(t, []kg.Triple{{Subject: "s", Predicate: "p", Object: "o"}}, triples)

	missing, err := fetcher.Fetch(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
