// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors shared by the HTTP layer and
the preview pipeline.

All collectors are registered against an explicit [prometheus.Registerer] so
tests can use an isolated registry instead of the process-global default.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gallery"

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
	ResultStale   = "stale"
)

// Registry groups every collector exported by the service.
type Registry struct {
	gatherer prometheus.Gatherer

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	Resolutions      *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	ResolvedNodes    prometheus.Histogram
	Compilations     *prometheus.CounterVec
	CompileDuration  prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	LiveSessions     prometheus.Gauge
	Publishes        *prometheus.CounterVec
	PublishedUploads *prometheus.CounterVec
}

// New registers all collectors on reg. Pass a fresh [prometheus.NewRegistry]
// in tests.
func New(reg *prometheus.Registry) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		gatherer: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "resolutions_total",
			Help:      "Registry dependency resolutions by result.",
		}, []string{"result"}),

		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent walking the registry dependency graph.",
			Buckets:   prometheus.DefBuckets,
		}),

		ResolvedNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "resolved_nodes",
			Help:      "Number of registry components in a resolved tree.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		Compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "css_compilations_total",
			Help:      "Remote CSS compilations by result.",
		}, []string{"result"}),

		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "css_compile_duration_seconds",
			Help:      "Latency of the remote CSS compilation service.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by operation and outcome.",
		}, []string{"op", "outcome"}),

		LiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "live_sessions",
			Help:      "Currently connected live preview sessions.",
		}),

		Publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "attempts_total",
			Help:      "Publish attempts by result and failing step.",
		}, []string{"result", "step"}),

		PublishedUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "uploads_total",
			Help:      "Object storage uploads by file kind.",
		}, []string{"kind"}),
	}
}

// NewNop returns collectors bound to a throwaway registry.
func NewNop() *Registry {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
