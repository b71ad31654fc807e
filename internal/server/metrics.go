// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/session"
)

// ============================================================================
// METRICS
// ============================================================================

// Metrics holds the Prometheus collectors exposed on /metrics. Each Metrics
// owns its registry so several servers (or tests) never collide on the
// global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	generationLatency prometheus.Histogram
	generationErrors  prometheus.Counter
}

// NewMetrics creates and registers the chathub collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chathub",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route pattern and status code.",
		}, []string{"route", "method", "status"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chathub",
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting for assistant replies.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		generationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chathub",
			Name:      "generation_failures_total",
			Help:      "Assistant replies that failed.",
		}),
	}
	m.registry.MustRegister(m.requests, m.generationLatency, m.generationErrors)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument wraps gen so every Generate call is timed and failures are
// counted.
func (m *Metrics) Instrument(gen session.Generator) session.Generator {
	return &instrumentedGenerator{next: gen, metrics: m}
}

type instrumentedGenerator struct {
	next    session.Generator
	metrics *Metrics
}

func (g *instrumentedGenerator) Generate(ctx context.Context, history []model.Message) (string, error) {
	start := time.Now()
	reply, err := g.next.Generate(ctx, history)
	g.metrics.generationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.generationErrors.Inc()
	}
	return reply, err
}

// countRequests records one sample per request, labelled with the chi route
// pattern rather than the raw path so chat ids do not explode cardinality.
func (m *Metrics) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
