// Package metrics holds the Prometheus collectors for the public API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	generations     *prometheus.CounterVec
	providerAttempt *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New registers every collector on a private registry so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magicpic_generations_total",
			Help: "Generation requests by path and outcome code.",
		}, []string{"path", "outcome"}),
		providerAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magicpic_provider_attempts_total",
			Help: "Image model attempts by model and result.",
		}, []string{"model", "result"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "magicpic_provider_attempt_seconds",
			Help:    "Latency of a single image model attempt.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
		}, []string{"model"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magicpic_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "magicpic_http_request_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.providerAttempt,
		m.providerLatency,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Generation counts one finished generation request. outcome is "success" or an error code.
func (m *Metrics) Generation(path, outcome string) {
	m.generations.WithLabelValues(path, outcome).Inc()
}

func (m *Metrics) ObserveAttempt(model string, err error, elapsed time.Duration) {
	result := "image"
	if err != nil {
		result = "failed"
	}
	m.providerAttempt.WithLabelValues(model, result).Inc()
	m.providerLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
