package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position sides and statuses.
const (
	PositionSideLong  = "long"
	PositionSideShort = "short"

	PositionStatusActive = "active"
	PositionStatusClosed = "closed"
)

// Position represents a simulated futures holding opened by the decision loop.
type Position struct {
	ID            int64           `json:"id"`
	SessionID     int64           `json:"session_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Status        string          `json:"status"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price,omitempty"`
	Leverage      int             `json:"leverage"`
	Margin        decimal.Decimal `json:"margin,omitempty"`
	StopLoss      decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit    decimal.Decimal `json:"take_profit,omitempty"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl,omitempty"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl,omitempty"`
	EntryTime     time.Time       `json:"entry_time"`
	ExitTime      *time.Time      `json:"exit_time,omitempty"`
	AIDecisionID  *int64          `json:"ai_decision_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
