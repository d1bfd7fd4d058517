package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a completed round trip. Rows are created only when a position is
// closed; open positions live in the positions table until then.
type Trade struct {
	ID           int64           `json:"id"`
	SessionID    int64           `json:"session_id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	ExitPrice    decimal.Decimal `json:"exit_price"`
	Fee          decimal.Decimal `json:"fee"`
	Pnl          decimal.Decimal `json:"pnl"`
	PnlPct       decimal.Decimal `json:"pnl_pct,omitempty"`
	Leverage     int             `json:"leverage"`
	EntryTime    time.Time       `json:"entry_time"`
	ExitTime     time.Time       `json:"exit_time"`
	PositionID   *int64          `json:"position_id,omitempty"`
	AIDecisionID *int64          `json:"ai_decision_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
