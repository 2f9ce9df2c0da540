// Package metrics holds the Prometheus collectors of the harvester and the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kgharvest"

// Collector owns a private registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	TermsFetched    *prometheus.CounterVec
	TriplesFetched  prometheus.Counter
	FetchDuration   prometheus.Histogram
	TargetNodes     prometheus.Gauge
	GraphsPublished *prometheus.CounterVec
	TriplesWritten  *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		TermsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terms_fetched_total",
			Help:      "Search terms fetched, by outcome.",
		}, []string{"status"}),
		TriplesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triples_fetched_total",
			Help:      "Triples returned by the endpoint before deduplication.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching the triples of one term.",
			Buckets:   prometheus.DefBuckets,
		}),
		TargetNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_nodes",
			Help:      "Size of the node set selected by the last run.",
		}),
		GraphsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphs_published_total",
			Help:      "Graphs handed to a sink, by sink and outcome.",
		}, []string{"sink", "status"}),
		TriplesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triples_written_total",
			Help:      "Triples written, by sink.",
		}, []string{"sink"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.TermsFetched,
		c.TriplesFetched,
		c.FetchDuration,
		c.TargetNodes,
		c.GraphsPublished,
		c.TriplesWritten,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry to path for the node exporter textfile
// collector. Batch runs use this instead of being scraped.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// ObserveFetch records the outcome of one term fetch.
func (c *Collector) ObserveFetch(start time.Time, triples int, err error) {
	c.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.TermsFetched.WithLabelValues("error").Inc()
		return
	}
	c.TermsFetched.WithLabelValues("ok").Inc()
	c.TriplesFetched.Add(float64(triples))
}

// ObservePublish records a graph handed to sink.
func (c *Collector) ObservePublish(sink string, triples int, err error) {
	if err != nil {
		c.GraphsPublished.WithLabelValues(sink, "error").Inc()
		return
	}
	c.GraphsPublished.WithLabelValues(sink, "ok").Inc()
	c.TriplesWritten.WithLabelValues(sink).Add(float64(triples))
}
