package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds. The evaluation path is bounded by the
	// external call timeouts, so the range tops out low.
	latencyBuckets = []float64{
		1, 2, 5,
		10, 25, 50,
		100, 250, 500,
		1000, 2000, 5000,
	}

	EvaluationTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsguard_evaluations_total",
			Help: "Total number of requests evaluated, by decision",
		},
		[]string{"decision"},
	)

	EvaluationLatency = promauto.With(registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smsguard_evaluation_latency_ms",
			Help:    "End to end evaluation latency in milliseconds",
			Buckets: latencyBuckets,
		},
	)

	ThreatLevelTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsguard_threat_level_total",
			Help: "Threat level distribution of scored requests",
		},
		[]string{"level"},
	)

	BoundedCallFailures = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsguard_bounded_call_failures_total",
			Help: "External calls degraded to an absent result, by operation and cause",
		},
		[]string{"operation", "cause"},
	)

	DegradedSignals = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsguard_degraded_signals_total",
			Help: "Evaluations that proceeded without a signal source",
		},
		[]string{"signal"},
	)
)

// Handler exposes the private registry for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
