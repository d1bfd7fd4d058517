package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tradelab/trading-dashboard/internal/agent"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// agentRequest is the shared body for the agent control endpoints. All
// fields are optional; session_id falls back to the active session.
type agentRequest struct {
	SessionID               int64    `json:"session_id"`
	Symbols                 []string `json:"symbols"`
	DecisionIntervalSeconds int      `json:"decision_interval_seconds"`
	MaxLeverage             int      `json:"max_leverage"`
	MaxPositions            int      `json:"max_positions"`
	MaxPositionSizeUSD      float64  `json:"max_position_size_usd"`
}

// resolveSession resolves the target session for an agent operation
func (h *Handler) resolveSession(req *agentRequest) (*models.TradingSession, error) {
	if req.SessionID != 0 {
		return h.db.GetSessionByID(req.SessionID)
	}
	return h.db.GetActiveSession()
}

// agentConfig layers request overrides on top of the session config
func (h *Handler) agentConfig(session *models.TradingSession, req *agentRequest) agent.Config {
	cfg := agent.ConfigFromSession(session, h.agentDefaults)
	if len(req.Symbols) > 0 {
		cfg.Symbols = req.Symbols
	}
	if req.DecisionIntervalSeconds > 0 {
		cfg.DecisionInterval = time.Duration(req.DecisionIntervalSeconds) * time.Second
	}
	if req.MaxLeverage > 0 {
		cfg.MaxLeverage = req.MaxLeverage
	}
	if req.MaxPositions > 0 {
		cfg.MaxPositions = req.MaxPositions
	}
	if req.MaxPositionSizeUSD > 0 {
		cfg.MaxPositionSizeUSD = req.MaxPositionSizeUSD
	}
	return cfg
}

// StartAgent handles POST /agent/start
func (h *Handler) StartAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.resolveSession(&req)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if session == nil {
		respondError(w, http.StatusBadRequest, "no active session, start one first")
		return
	}
	if session.IsTerminal() {
		respondError(w, http.StatusBadRequest, "session is not running")
		return
	}

	status, err := h.agents.Start(session.ID, h.agentConfig(session, &req))
	if err != nil {
		if strings.Contains(err.Error(), "already running") {
			respondError(w, http.StatusConflict, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondMessage(w, http.StatusOK, status, "agent started")
}

// StopAgent handles POST /agent/stop
func (h *Handler) StopAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := req.SessionID
	if sessionID == 0 {
		session, err := h.db.GetActiveSession()
		if err != nil || session == nil {
			respondError(w, http.StatusBadRequest, "no active session and no session_id given")
			return
		}
		sessionID = session.ID
	}

	status, err := h.agents.Stop(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondMessage(w, http.StatusOK, status, "agent stopped")
}

// GetAgentStatus handles GET /agent/status. Returns data null when no agent
// exists for the session.
func (h *Handler) GetAgentStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, present, err := querySessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !present {
		session, err := h.db.GetActiveSession()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if session == nil {
			respondMessage(w, http.StatusOK, nil, "no active session")
			return
		}
		sessionID = session.ID
	}

	status := h.agents.Status(sessionID)
	if status == nil {
		respondMessage(w, http.StatusOK, nil, "no agent for session")
		return
	}
	respondData(w, http.StatusOK, status)
}

// ListAgents handles GET /agent/list
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.agents.List()
	respondList(w, http.StatusOK, agents, len(agents))
}

// RunAgentOnce handles POST /agent/run-once. Executes a single decision
// cycle synchronously, outside any background loop.
func (h *Handler) RunAgentOnce(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.resolveSession(&req)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if session == nil {
		respondError(w, http.StatusBadRequest, "no active session, start one first")
		return
	}
	if session.IsTerminal() {
		respondError(w, http.StatusBadRequest, "session is not running")
		return
	}

	result, err := h.agents.RunOnce(r.Context(), session.ID, h.agentConfig(session, &req))
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondMessage(w, http.StatusOK, result, "cycle complete")
}
