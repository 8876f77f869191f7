// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by the collectors below.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeFallback = "fallback"
)

var (
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stylist_chat_requests_total",
		Help: "Chat requests by terminal outcome.",
	}, []string{"outcome"})

	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stylist_upstream_calls_total",
		Help: "Geolocation and weather provider calls by provider and result.",
	}, []string{"kind", "provider", "outcome"})

	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stylist_model_calls_total",
		Help: "Generative model calls by backend and result.",
	}, []string{"backend", "outcome"})

	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stylist_model_latency_seconds",
		Help:    "Generative model call latency.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"backend"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
