package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is a point-in-time record of session equity, written after
// each decision cycle and at session start.
type AccountSnapshot struct {
	ID               int64           `json:"id"`
	SessionID        int64           `json:"session_id"`
	TotalValue       decimal.Decimal `json:"total_value"`
	AvailableCash    decimal.Decimal `json:"available_cash"`
	TotalPnl         decimal.Decimal `json:"total_pnl,omitempty"`
	TotalReturnPct   decimal.Decimal `json:"total_return_pct,omitempty"`
	PositionsSummary json.RawMessage `json:"positions_summary,omitempty"`
	AIDecisionID     *int64          `json:"ai_decision_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AccountSnapshotEvent is a Kafka message carrying an account snapshot from an
// external executor feed.
type AccountSnapshotEvent struct {
	EventType string                   `json:"event_type"`
	Source    string                   `json:"source"`
	Timestamp string                   `json:"timestamp"`
	Data      AccountSnapshotEventData `json:"data"`
}

// AccountSnapshotEventData holds the snapshot payload. Monetary fields are
// strings on the wire.
type AccountSnapshotEventData struct {
	SessionID        int64           `json:"session_id"`
	TotalValue       string          `json:"total_value"`
	AvailableCash    string          `json:"available_cash"`
	TotalPnl         string          `json:"total_pnl,omitempty"`
	TotalReturnPct   string          `json:"total_return_pct,omitempty"`
	PositionsSummary json.RawMessage `json:"positions_summary,omitempty"`
}
