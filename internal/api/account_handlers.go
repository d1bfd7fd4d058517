package api

import (
	"net/http"

	"github.com/tradelab/trading-dashboard/internal/models"
)

// GetExchangeAccount handles GET /account/exchange. Live wallet balances
// and non-flat positions from the exchange, needs API credentials.
func (h *Handler) GetExchangeAccount(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}

	summary, err := h.market.AccountSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondData(w, http.StatusOK, summary)
}

// GetAccountPositions handles GET /account/positions. The simulated book
// for a session; session_id falls back to the active session.
func (h *Handler) GetAccountPositions(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.resolveSessionID(w, r)
	if !ok {
		return
	}

	positions, err := h.db.GetActivePositions(sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if positions == nil {
		positions = []*models.Position{}
	}
	respondList(w, http.StatusOK, positions, len(positions))
}

// GetAccountSnapshots handles GET /account/snapshots. The equity curve for
// a session, newest first.
func (h *Handler) GetAccountSnapshots(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.resolveSessionID(w, r)
	if !ok {
		return
	}

	snapshots, err := h.db.GetSnapshotsBySession(sessionID, queryInt(r, "limit", 10))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snapshots == nil {
		snapshots = []*models.AccountSnapshot{}
	}
	respondList(w, http.StatusOK, snapshots, len(snapshots))
}

// GetAccountBalance handles GET /account/balance. The latest snapshot for
// a session, data null when none has been recorded yet.
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.resolveSessionID(w, r)
	if !ok {
		return
	}

	latest, err := h.db.GetLatestSnapshot(sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		respondMessage(w, http.StatusOK, nil, "no snapshots recorded")
		return
	}
	respondData(w, http.StatusOK, latest)
}

// resolveSessionID reads session_id from the query, falling back to the
// active session. Writes the error response itself when resolution fails.
func (h *Handler) resolveSessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, present, err := querySessionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if present {
		return id, true
	}

	session, err := h.db.GetActiveSession()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return 0, false
	}
	if session == nil {
		respondError(w, http.StatusBadRequest, "no active session and no session_id given")
		return 0, false
	}
	return session.ID, true
}
