// Package metrics exports lifecycle and HTTP measurements in the Prometheus
// text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

const namespace = "assetd"

// Recorder owns a private registry so tests and multiple instances never
// collide on the global one. It implements application.TransitionRecorder.
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewRecorder registers the collectors. Process and Go runtime collectors are
// included when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Per-asset lifecycle transitions by outcome.",
		}, []string{"transition", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time spent guarding and committing one asset.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transition"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	r.registry.MustRegister(r.transitions, r.durations, r.requests, r.latency)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// ObserveTransition records the outcome of one asset inside a batch.
func (r *Recorder) ObserveTransition(transition lifecycle.Transition, outcome string, duration time.Duration) {
	r.transitions.WithLabelValues(string(transition), outcome).Inc()
	r.durations.WithLabelValues(string(transition)).Observe(duration.Seconds())
}

// ObserveRequest records one served HTTP request. route is the matched
// pattern, never the raw path.
func (r *Recorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
