package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/agent"
	"github.com/tradelab/trading-dashboard/internal/database"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// StartSession handles POST /session/start. Only one session may be running
// at a time.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionName    string          `json:"session_name"`
		InitialCapital string          `json:"initial_capital"`
		Config         json.RawMessage `json:"config"`
		AutoStartAgent bool            `json:"auto_start_agent"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active, err := h.db.GetActiveSession()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if active != nil {
		respondError(w, http.StatusConflict,
			fmt.Sprintf("an active session already exists (id: %d), end it first", active.ID))
		return
	}

	session := &models.TradingSession{
		SessionName: req.SessionName,
		Status:      models.SessionStatusRunning,
		Config:      req.Config,
	}
	if session.SessionName == "" {
		session.SessionName = "session-" + time.Now().Format("20060102-150405")
	}
	if req.InitialCapital != "" {
		capital, err := decimal.NewFromString(req.InitialCapital)
		if err != nil || capital.IsNegative() {
			respondError(w, http.StatusBadRequest, "invalid initial_capital")
			return
		}
		session.InitialCapital = capital
	}

	if err := h.db.CreateSession(session); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Seed the equity curve so the agent has a cash figure to start from.
	if !session.InitialCapital.IsZero() {
		snapshot := &models.AccountSnapshot{
			SessionID:     session.ID,
			TotalValue:    session.InitialCapital,
			AvailableCash: session.InitialCapital,
		}
		if err := h.db.CreateAccountSnapshot(snapshot); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	data := map[string]interface{}{
		"session": session,
	}

	// Agent startup failure does not fail session creation.
	if req.AutoStartAgent {
		cfg := agent.ConfigFromSession(session, h.agentDefaults)
		if _, err := h.agents.Start(session.ID, cfg); err != nil {
			data["agent_started"] = false
			data["agent_error"] = err.Error()
		} else {
			data["agent_started"] = true
		}
	}

	respondMessage(w, http.StatusCreated, data, "session started")
}

// EndSession handles POST /session/{id}/end. Aggregates trade statistics,
// records final capital from the latest snapshot and stops any agent.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := req.Status
	if status == "" {
		status = models.SessionStatusCompleted
	}
	if status != models.SessionStatusCompleted && status != models.SessionStatusStopped {
		respondError(w, http.StatusBadRequest, "status must be completed or stopped")
		return
	}

	session, err := h.db.GetSessionByID(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if session.IsTerminal() {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("session %d already ended (status: %s)", id, session.Status))
		return
	}

	finalCapital := session.InitialCapital
	if latest, err := h.db.GetLatestSnapshot(id); err == nil && latest != nil {
		finalCapital = latest.TotalValue
	}

	totalPnl := decimal.Zero
	totalReturnPct := decimal.Zero
	if !session.InitialCapital.IsZero() {
		totalPnl = finalCapital.Sub(session.InitialCapital)
		totalReturnPct = totalPnl.Div(session.InitialCapital).Mul(decimal.NewFromInt(100))
	}

	if err := h.db.EndSession(id, status, finalCapital, totalPnl, totalReturnPct); err != nil {
		// 409 only for the lost race against another ender
		if errors.Is(err, database.ErrSessionNotRunning) {
			respondError(w, http.StatusConflict, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if stats, err := h.db.GetTradeStats(id); err == nil {
		if err := h.db.UpdateSessionStats(id, stats); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.Notes != "" {
		if err := h.db.UpdateSessionNotes(id, req.Notes); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	// Best effort, the agent loop also notices the status change on its own.
	if h.agents.Status(id) != nil {
		h.agents.Stop(id)
	}

	session, err = h.db.GetSessionByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondMessage(w, http.StatusOK, session, "session ended")
}

// GetActiveSession handles GET /session/active. Returns data null when no
// session is running.
func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.db.GetActiveSession()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		respondMessage(w, http.StatusOK, nil, "no active session")
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"agent":   h.agents.Status(session.ID),
	})
}

// ListSessions handles GET /session/list
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !validSessionStatus(status) {
		respondError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	sessions, err := h.db.ListSessions(status, queryInt(r, "limit", 20))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.TradingSession{}
	}
	respondList(w, http.StatusOK, sessions, len(sessions))
}

// GetSessionDetails handles GET /session/{id}
func (h *Handler) GetSessionDetails(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.db.GetSessionByID(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	positions, err := h.db.GetActivePositions(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	trades, err := h.db.GetTradesBySession(id, 20)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	latest, err := h.db.GetLatestSnapshot(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := map[string]interface{}{
		"session":          session,
		"active_positions": positions,
		"recent_trades":    trades,
		"latest_snapshot":  latest,
	}
	if stats, err := h.db.GetTradeStats(id); err == nil {
		data["stats"] = stats
	}
	respondData(w, http.StatusOK, data)
}

// GetSessionDecisions handles GET /session/{id}/decisions
func (h *Handler) GetSessionDecisions(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if _, err := h.db.GetSessionByID(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	decisions, err := h.db.GetDecisionsBySession(id, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if decisions == nil {
		decisions = []*models.AIDecision{}
	}

	count, err := h.db.CountDecisions(id)
	if err != nil {
		count = len(decisions)
	}
	respondList(w, http.StatusOK, decisions, count)
}

// GetSessionTrades handles GET /session/{id}/trades
func (h *Handler) GetSessionTrades(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if _, err := h.db.GetSessionByID(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	trades, err := h.db.GetTradesBySession(id, queryInt(r, "limit", 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	respondList(w, http.StatusOK, trades, len(trades))
}

func sessionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// querySessionID parses the optional session_id query parameter. present is
// false when the parameter is absent.
func querySessionID(r *http.Request) (id int64, present bool, err error) {
	v := r.URL.Query().Get("session_id")
	if v == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id <= 0 {
		return 0, true, fmt.Errorf("invalid session_id %q", v)
	}
	return id, true, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func validSessionStatus(status string) bool {
	switch status {
	case models.SessionStatusRunning, models.SessionStatusStopped,
		models.SessionStatusCrashed, models.SessionStatusCompleted:
		return true
	}
	return false
}
