// Package sparql fetches triples for a search term from a SPARQL endpoint.
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Value is a single RDF term in a result binding.
type Value struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Header is the head section of a SPARQL JSON result.
type Header struct {
	Link []string `json:"link"`
	Vars []string `json:"vars"`
}

// Results holds the bindings of a SPARQL JSON result.
type Results[B any] struct {
	Distinct bool `json:"distinct"`
	Ordered  bool `json:"ordered"`
	Bindings []B  `json:"bindings"`
}

// Response is a decoded SPARQL JSON result document.
type Response[B any] struct {
	Head    Header     `json:"head"`
	Results Results[B] `json:"results"`
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
	// BreakerFailures is the number of consecutive endpoint failures
	// (transport errors and 5xx responses) after which requests are rejected
	// without reaching the endpoint.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open.
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

const (
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// Client issues SELECT queries against a single endpoint.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// ErrMissingEndpoint indicates the endpoint URL is not provided.
var ErrMissingEndpoint = errors.New("sparql endpoint is required")

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if _, err := url.Parse(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("parse sparql endpoint: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sparql",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				return !fetchErr.endpointFault()
			}
			return err == nil
		},
	})

	return &Client{
		endpoint: opts.Endpoint,
		timeout:  opts.Timeout,
		http:     httpClient,
		limiter:  limiter,
		breaker:  breaker,
	}, nil
}

// Select runs query and decodes the result bindings into B.
func Select[B any](ctx context.Context, c *Client, query string) (Response[B], error) {
	body, err := c.execute(ctx, query)
	if err != nil {
		return Response[B]{}, err
	}

	var resp Response[B]
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response[B]{}, &FetchError{Kind: KindDecode, Err: err}
	}
	return resp, nil
}

func (c *Client) execute(ctx context.Context, query string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Kind: KindTransport, Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	if c.timeout > 0 {
		params.Set("timeout", strconv.FormatInt(c.timeout.Milliseconds(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/sparql-results+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Kind: KindStatus, Status: resp.StatusCode, Err: fmt.Errorf("sparql: status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	return body, nil
}
