package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trading_dashboard_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration observes API latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trading_dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// DecisionCyclesTotal counts agent decision cycles by outcome
	DecisionCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trading_dashboard_decision_cycles_total",
		Help: "Total number of agent decision cycles",
	}, []string{"outcome"})

	// DecisionCycleDuration observes how long a full decision cycle takes
	DecisionCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trading_dashboard_decision_cycle_duration_seconds",
		Help:    "Decision cycle latency including model round trip",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	// ActiveAgents tracks how many background agents are alive
	ActiveAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trading_dashboard_active_agents",
		Help: "Number of background agents currently running",
	})

	// TradesClosedTotal counts simulated trades closed by the agent
	TradesClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_dashboard_trades_closed_total",
		Help: "Total number of positions closed into trades",
	})
)
