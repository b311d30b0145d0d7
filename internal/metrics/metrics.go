// Package metrics exposes the Prometheus collectors shared by the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for gateway calls.
const (
	OutcomeOK         = "ok"
	OutcomeConfig     = "config_error"
	OutcomeUpstream   = "upstream_error"
	OutcomeNetwork    = "network_error"
	OutcomeCancelled  = "cancelled"
	OutcomeMalformed  = "malformed_payload"
	OutcomeEmptyReply = "empty_reply"
)

var (
	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mamachef",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Model gateway calls by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mamachef",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Model gateway call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	mealsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mamachef",
			Subsystem: "tracker",
			Name:      "meals_saved_total",
			Help:      "Meals committed to history.",
		},
	)

	mealsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mamachef",
			Subsystem: "tracker",
			Name:      "meals_pruned_total",
			Help:      "Meals removed by the retention policy.",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mamachef",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently held in memory.",
		},
	)

	rpcRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mamachef",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Connect RPCs by procedure and code.",
		},
		[]string{"procedure", "code"},
	)
)

// ObserveGateway records one model call.
func ObserveGateway(model, outcome string, took time.Duration) {
	gatewayRequests.WithLabelValues(model, outcome).Inc()
	gatewayDuration.WithLabelValues(model).Observe(took.Seconds())
}

func MealSaved() { mealsSaved.Inc() }

func MealsPruned(n int) {
	if n > 0 {
		mealsPruned.Add(float64(n))
	}
}

func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }

// ObserveRPC counts one finished Connect call.
func ObserveRPC(procedure, code string) {
	rpcRequests.WithLabelValues(procedure, code).Inc()
}
