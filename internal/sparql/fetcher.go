package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vanshika/kgharvest/internal/kg"
)

// Fetcher returns the triples reachable from the resource named after term.
type Fetcher interface {
	Fetch(ctx context.Context, term string) ([]kg.Triple, error)
}

type oneHopBinding struct {
	P1 Value `json:"p1"`
	O1 Value `json:"o1"`
}

type twoHopBinding struct {
	P1 Value `json:"p1"`
	O1 Value `json:"o1"`
	P2 Value `json:"p2"`
	O2 Value `json:"o2"`
}

// ResourceFetcher queries the statements about prefix+term.
type ResourceFetcher struct {
	client  *Client
	prefix  string
	include []string
	exclude []string
	hops    int
}

// FetcherOptions configures a ResourceFetcher.
type FetcherOptions struct {
	ResourcePrefix string
	// Include and Exclude are pushed into the query as a regex FILTER on the
	// first-hop object.
	Include []string
	Exclude []string
	Hops    int
}

// NewResourceFetcher builds a fetcher on top of client.
func NewResourceFetcher(client *Client, opts FetcherOptions) *ResourceFetcher {
	hops := opts.Hops
	if hops != 2 {
		hops = 1
	}
	return &ResourceFetcher{
		client:  client,
		prefix:  opts.ResourcePrefix,
		include: append([]string(nil), opts.Include...),
		exclude: append([]string(nil), opts.Exclude...),
		hops:    hops,
	}
}

// Fetch implements Fetcher.
func (f *ResourceFetcher) Fetch(ctx context.Context, term string) ([]kg.Triple, error) {
	subject := ResourceIRI(f.prefix, term)

	var (
		triples []kg.Triple
		err     error
	)
	if f.hops == 2 {
		triples, err = f.fetchTwoHop(ctx, subject)
	} else {
		triples, err = f.fetchOneHop(ctx, subject)
	}
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Term = term
			return nil, fetchErr
		}
		return nil, &FetchError{Term: term, Kind: KindTransport, Err: err}
	}
	return triples, nil
}

// FetchLinks returns the 1-hop (predicate, object) pairs of term.
func (f *ResourceFetcher) FetchLinks(ctx context.Context, term string) ([]kg.Link, error) {
	links, err := f.links(ctx, ResourceIRI(f.prefix, term))
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Term = term
		}
		return nil, err
	}
	return links, nil
}

func (f *ResourceFetcher) links(ctx context.Context, subject string) ([]kg.Link, error) {
	resp, err := Select[oneHopBinding](ctx, f.client, OneHopQuery(subject, f.include, f.exclude))
	if err != nil {
		return nil, err
	}
	links := make([]kg.Link, 0, len(resp.Results.Bindings))
	for _, b := range resp.Results.Bindings {
		links = append(links, kg.Link{Predicate: b.P1.Value, Object: b.O1.Value})
	}
	return links, nil
}

func (f *ResourceFetcher) fetchOneHop(ctx context.Context, subject string) ([]kg.Triple, error) {
	links, err := f.links(ctx, subject)
	if err != nil {
		return nil, err
	}
	triples := make([]kg.Triple, 0, len(links))
	for _, l := range links {
		triples = append(triples, kg.Triple{Subject: subject, Predicate: l.Predicate, Object: l.Object})
	}
	return triples, nil
}

func (f *ResourceFetcher) fetchTwoHop(ctx context.Context, subject string) ([]kg.Triple, error) {
	resp, err := Select[twoHopBinding](ctx, f.client, TwoHopQuery(subject, f.include, f.exclude))
	if err != nil {
		return nil, err
	}
	triples := make([]kg.Triple, 0, 2*len(resp.Results.Bindings))
	for _, b := range resp.Results.Bindings {
		triples = append(triples,
			kg.Triple{Subject: subject, Predicate: b.P1.Value, Object: b.O1.Value},
			kg.Triple{Subject: b.O1.Value, Predicate: b.P2.Value, Object: b.O2.Value},
		)
	}
	return triples, nil
}

// Fixture maps a search term to the triples a fetch for it returns.
type Fixture map[string][]kg.Triple

// FixtureFetcher serves triples from an in-memory Fixture. Unknown terms yield
// no triples, like a query for a resource the endpoint does not know.
type FixtureFetcher struct {
	data Fixture
}

// NewFixtureFetcher wraps data.
func NewFixtureFetcher(data Fixture) *FixtureFetcher {
	return &FixtureFetcher{data: data}
}

// LoadFixture reads a JSON fixture file written by the generator.
func LoadFixture(path string) (*FixtureFetcher, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var data Fixture
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewFixtureFetcher(data), nil
}

// Fetch implements Fetcher.
func (f *FixtureFetcher) Fetch(ctx context.Context, term string) ([]kg.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Term: term, Kind: KindTransport, Err: err}
	}
	return append([]kg.Triple(nil), f.data[term]...), nil
}
