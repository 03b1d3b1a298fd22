package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes metrics
type Collector struct {
	registry      *prometheus.Registry
	batchesTotal  *prometheus.CounterVec
	messagesTotal prometheus.Counter
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// New creates a new metrics collector on its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_batches_total",
				Help: "Total number of batches processed",
			},
			[]string{"status"},
		),
		messagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "history_messages_total",
				Help: "Total messages reported across completed batches",
			},
		),
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_fetch_attempts_total",
				Help: "Total workflow fetch attempts by result",
			},
			[]string{"result"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "history_fetch_duration_seconds",
				Help:    "Time taken by a single workflow fetch attempt",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.batchesTotal)
	c.registry.MustRegister(c.messagesTotal)
	c.registry.MustRegister(c.fetchesTotal)
	c.registry.MustRegister(c.fetchDuration)

	return c
}

// IncCompleted increments the completed batch counter
func (c *Collector) IncCompleted() {
	c.batchesTotal.WithLabelValues("completed").Inc()
}

// IncAbandoned increments the abandoned batch counter
func (c *Collector) IncAbandoned() {
	c.batchesTotal.WithLabelValues("abandoned").Inc()
}

// AddMessages adds to the total messages counter
func (c *Collector) AddMessages(n int) {
	c.messagesTotal.Add(float64(n))
}

// IncFetch increments the fetch attempt counter for a result
// (success, transport_error or empty_result)
func (c *Collector) IncFetch(result string) {
	c.fetchesTotal.WithLabelValues(result).Inc()
}

// ObserveFetchDuration observes the duration of one fetch attempt
func (c *Collector) ObserveFetchDuration(d time.Duration) {
	c.fetchDuration.Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler for this collector
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server on addr
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
