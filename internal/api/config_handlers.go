package api

import (
	"net/http"
)

// GetTradingPairs handles GET /config/trading-pairs
func (h *Handler) GetTradingPairs(w http.ResponseWriter, r *http.Request) {
	respondList(w, http.StatusOK, h.pairs, len(h.pairs))
}

// GetAgentDefaults handles GET /config/agent-defaults
func (h *Handler) GetAgentDefaults(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"symbols":                   h.agentDefaults.Symbols,
		"decision_interval_seconds": int(h.agentDefaults.DecisionInterval.Seconds()),
		"max_leverage":              h.agentDefaults.MaxLeverage,
		"max_positions":             h.agentDefaults.MaxPositions,
		"max_position_size_usd":     h.agentDefaults.MaxPositionSizeUSD,
	})
}
