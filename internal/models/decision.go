package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Decision types persisted on ai_decisions rows.
const (
	DecisionTypeBuy       = "buy"
	DecisionTypeSell      = "sell"
	DecisionTypeHold      = "hold"
	DecisionTypeRebalance = "rebalance"
	DecisionTypeClose     = "close"
)

// AIDecision is one logged LLM output paired with the market snapshot that
// produced it. Rows are append-only, one per decision cycle.
type AIDecision struct {
	ID               int64           `json:"id"`
	SessionID        int64           `json:"session_id"`
	Symbols          []string        `json:"symbols"`
	DecisionType     string          `json:"decision_type"`
	Confidence       decimal.Decimal `json:"confidence,omitempty"`
	PromptData       json.RawMessage `json:"prompt_data,omitempty"`
	AIResponse       string          `json:"ai_response,omitempty"`
	Reasoning        string          `json:"reasoning,omitempty"`
	SuggestedActions json.RawMessage `json:"suggested_actions,omitempty"`
	Executed         bool            `json:"executed"`
	ExecutionResult  json.RawMessage `json:"execution_result,omitempty"`
	AccountBalance   decimal.Decimal `json:"account_balance,omitempty"`
	UnrealizedPnl    decimal.Decimal `json:"unrealized_pnl,omitempty"`
	TotalAsset       decimal.Decimal `json:"total_asset,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
