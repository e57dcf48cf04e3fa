// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors for provider calls,
// reconciliation passes, the query cache, and basket mutations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "patent_chooser"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ReconcilePasses  *prometheus.CounterVec
	Placeholders     prometheus.Counter
	BasketMutations  *prometheus.CounterVec
	QueryCache       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Provider requests by provider and outcome (ok, not_found, error).",
			},
			[]string{"provider", "status"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Provider request latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		ReconcilePasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_passes_total",
				Help:      "Reconciliation passes by outcome (complete, empty, not_found, error).",
			},
			[]string{"outcome"},
		),
		Placeholders: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placeholders_total",
				Help:      "Placeholders synthesized for requested numbers the provider did not return.",
			},
		),
		BasketMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "basket_mutations_total",
				Help:      "Basket mutations by operation (add, remove, rate).",
			},
			[]string{"op"},
		),
		QueryCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_cache_total",
				Help:      "Memoized provider query lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.ProviderRequests,
		m.ProviderLatency,
		m.ReconcilePasses,
		m.Placeholders,
		m.BasketMutations,
		m.QueryCache,
	)
	return m
}

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, status).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(seconds)
}

// ObservePass records one reconciliation pass and its placeholder count.
func (m *Metrics) ObservePass(outcome string, placeholders int) {
	if m == nil {
		return
	}
	m.ReconcilePasses.WithLabelValues(outcome).Inc()
	m.Placeholders.Add(float64(placeholders))
}

// ObserveBasket records one basket mutation.
func (m *Metrics) ObserveBasket(op string) {
	if m == nil {
		return
	}
	m.BasketMutations.WithLabelValues(op).Inc()
}

// ObserveCache records one query cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QueryCache.WithLabelValues(result).Inc()
}

// Handler returns the scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
