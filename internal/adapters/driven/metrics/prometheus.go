// Package metrics records API client activity in Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.Metrics = (*Collector)(nil)

const namespace = "wafbroker"

// Collector owns a private registry with the broker's metrics.
type Collector struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	tokenRefresh *prometheus.CounterVec
}

// NewCollector creates and registers all metrics. Process and Go runtime
// collectors are included.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Logical API requests by remote service and outcome.",
		}, []string{"service", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of logical API requests including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Request retries by remote service and reason.",
		}, []string{"service", "reason"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_requests_total",
			Help:      "Token requests to the auth service by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.duration,
		c.retries,
		c.tokenRefresh,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveRequest(service, outcome string, elapsed time.Duration) {
	c.requests.WithLabelValues(service, outcome).Inc()
	c.duration.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (c *Collector) IncRetry(service, reason string) {
	c.retries.WithLabelValues(service, reason).Inc()
}

func (c *Collector) IncTokenRefresh(result string) {
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
