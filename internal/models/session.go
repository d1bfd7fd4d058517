package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Trading session statuses. A session is terminal once it leaves "running".
const (
	SessionStatusRunning   = "running"
	SessionStatusStopped   = "stopped"
	SessionStatusCrashed   = "crashed"
	SessionStatusCompleted = "completed"
)

// TradingSession represents one user-initiated run of the trading demo,
// bounded by start and end calls.
type TradingSession struct {
	ID             int64           `json:"id"`
	SessionName    string          `json:"session_name"`
	Status         string          `json:"status"`
	InitialCapital decimal.Decimal `json:"initial_capital,omitempty"`
	FinalCapital   decimal.Decimal `json:"final_capital,omitempty"`
	TotalPnl       decimal.Decimal `json:"total_pnl,omitempty"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct,omitempty"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	WinRate        decimal.Decimal `json:"win_rate,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	EndedAt        *time.Time      `json:"ended_at,omitempty"`
}

// IsTerminal reports whether the session can no longer be ended.
func (s *TradingSession) IsTerminal() bool {
	return s.Status != SessionStatusRunning
}

// SessionStats aggregates trade outcomes for a session, computed when the
// session ends.
type SessionStats struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       decimal.Decimal `json:"win_rate"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
	BiggestWin    decimal.Decimal `json:"biggest_win"`
	BiggestLoss   decimal.Decimal `json:"biggest_loss"`
	AvgLeverage   decimal.Decimal `json:"avg_leverage"`
}
