// Package observability carries the service's metrics registry and tracing
// bootstrap.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the service's metric set on its own registry
type Metrics struct {
	registry *prometheus.Registry

	// Graph state
	Nodes prometheus.Gauge
	Links prometheus.Gauge

	// Activity counters
	SearchOutcomes *prometheus.CounterVec
	BatchFlushes   prometheus.Counter
	TopicsAdded    prometheus.Counter
	TopicsExpanded prometheus.Counter
	HistoryOps     *prometheus.CounterVec

	// HTTP surface
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers the metric set
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wikigraph",
			Name:      "graph_nodes",
			Help:      "Current number of nodes in the graph",
		}),
		Links: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wikigraph",
			Name:      "graph_links",
			Help:      "Current number of links in the graph",
		}),
		SearchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "search_outcomes_total",
			Help:      "Path searches by terminal outcome",
		}, []string{"outcome"}),
		BatchFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "batch_flushes_total",
			Help:      "Update batcher flushes applied",
		}),
		TopicsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "topics_added_total",
			Help:      "Topics added to the graph",
		}),
		TopicsExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "topics_expanded_total",
			Help:      "Topic expansions performed",
		}),
		HistoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "history_operations_total",
			Help:      "Undo and redo operations applied",
		}, []string{"op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wikigraph",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wikigraph",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.Nodes, m.Links,
		m.SearchOutcomes, m.BatchFlushes,
		m.TopicsAdded, m.TopicsExpanded, m.HistoryOps,
		m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// Handler returns the scrape endpoint for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
