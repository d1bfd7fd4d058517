package models

// Kafka event types emitted and consumed by this service.
const (
	EventTypeDecisionMade    = "DECISION_MADE"
	EventTypeTradeClosed     = "TRADE_CLOSED"
	EventTypeAccountSnapshot = "ACCOUNT_SNAPSHOT"
)

// DecisionEvent is published after each persisted AI decision.
type DecisionEvent struct {
	EventType string            `json:"event_type"`
	Source    string            `json:"source"`
	Timestamp string            `json:"timestamp"`
	Data      DecisionEventData `json:"data"`
}

// DecisionEventData identifies the decision and its headline outcome.
type DecisionEventData struct {
	SessionID    int64    `json:"session_id"`
	DecisionID   int64    `json:"decision_id"`
	DecisionType string   `json:"decision_type"`
	Symbols      []string `json:"symbols"`
	Confidence   string   `json:"confidence,omitempty"`
	Executed     bool     `json:"executed"`
}

// TradeEvent is published when a position is closed into a trade row.
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData carries the closed trade.
type TradeEventData struct {
	SessionID int64  `json:"session_id"`
	TradeID   int64  `json:"trade_id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	ExitPrice string `json:"exit_price"`
	Pnl       string `json:"pnl"`
}
