package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tradelab/trading-dashboard/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(metricsMiddleware)

	// Session lifecycle
	api.HandleFunc("/session/start", handler.StartSession).Methods("POST")
	api.HandleFunc("/session/active", handler.GetActiveSession).Methods("GET")
	api.HandleFunc("/session/list", handler.ListSessions).Methods("GET")
	api.HandleFunc("/session/{id:[0-9]+}", handler.GetSessionDetails).Methods("GET")
	api.HandleFunc("/session/{id:[0-9]+}/end", handler.EndSession).Methods("POST")
	api.HandleFunc("/session/{id:[0-9]+}/decisions", handler.GetSessionDecisions).Methods("GET")
	api.HandleFunc("/session/{id:[0-9]+}/trades", handler.GetSessionTrades).Methods("GET")

	// Background agent control
	api.HandleFunc("/agent/start", handler.StartAgent).Methods("POST")
	api.HandleFunc("/agent/stop", handler.StopAgent).Methods("POST")
	api.HandleFunc("/agent/status", handler.GetAgentStatus).Methods("GET")
	api.HandleFunc("/agent/list", handler.ListAgents).Methods("GET")
	api.HandleFunc("/agent/run-once", handler.RunAgentOnce).Methods("POST")

	// Market data
	api.HandleFunc("/market/klines", handler.GetKlines).Methods("GET")
	api.HandleFunc("/market/ticker", handler.GetTicker).Methods("GET")
	api.HandleFunc("/market/symbols", handler.GetSymbols).Methods("GET")
	api.HandleFunc("/market/funding", handler.GetFundingRate).Methods("GET")
	api.HandleFunc("/market/open-interest", handler.GetOpenInterest).Methods("GET")
	api.HandleFunc("/market/indicators", handler.GetIndicators).Methods("GET")

	// Account views
	api.HandleFunc("/account/exchange", handler.GetExchangeAccount).Methods("GET")
	api.HandleFunc("/account/positions", handler.GetAccountPositions).Methods("GET")
	api.HandleFunc("/account/snapshots", handler.GetAccountSnapshots).Methods("GET")
	api.HandleFunc("/account/balance", handler.GetAccountBalance).Methods("GET")

	// Configuration
	api.HandleFunc("/config/trading-pairs", handler.GetTradingPairs).Methods("GET")
	api.HandleFunc("/config/agent-defaults", handler.GetAgentDefaults).Methods("GET")

	return r
}

// statusRecorder captures the response code for the metrics middleware
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counts and latency per route template
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(started).Seconds())
	})
}
