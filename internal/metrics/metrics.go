package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educhat_gateway_requests_total",
			Help: "Model queries by model and result kind",
		},
		[]string{"model", "kind"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "educhat_gateway_latency_seconds",
			Help:    "Inference gateway round-trip latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educhat_classifications_total",
			Help: "Questions classified by cognitive level",
		},
		[]string{"level"},
	)

	TurnsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educhat_turns_total",
			Help: "Total number of completed turns",
		},
	)

	SaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educhat_session_save_failures_total",
			Help: "Session file writes that failed",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "educhat_active_sessions",
			Help: "Number of session contexts held in memory",
		},
	)
)
