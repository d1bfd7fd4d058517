package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Decision actions the model may emit.
const (
	ActionOpenLong   = "open_long"
	ActionOpenShort  = "open_short"
	ActionCloseLong  = "close_long"
	ActionCloseShort = "close_short"
	ActionHold       = "hold"
	ActionWait       = "wait"
)

var validActions = map[string]bool{
	ActionOpenLong:   true,
	ActionOpenShort:  true,
	ActionCloseLong:  true,
	ActionCloseShort: true,
	ActionHold:       true,
	ActionWait:       true,
}

// Decision is one entry of the model's JSON decision array.
type Decision struct {
	Symbol          string   `json:"symbol"`
	Action          string   `json:"action"`
	Leverage        int      `json:"leverage,omitempty"`
	PositionSizeUSD float64  `json:"position_size_usd,omitempty"`
	StopLoss        *float64 `json:"stop_loss,omitempty"`
	TakeProfit      *float64 `json:"take_profit,omitempty"`
	Confidence      int      `json:"confidence,omitempty"`
	RiskUSD         *float64 `json:"risk_usd,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

// IsOpen reports whether the action opens a new position
func (d *Decision) IsOpen() bool {
	return d.Action == ActionOpenLong || d.Action == ActionOpenShort
}

// IsClose reports whether the action closes an existing position
func (d *Decision) IsClose() bool {
	return d.Action == ActionCloseLong || d.Action == ActionCloseShort
}

// Validate checks the decision against the prompt contract
func (d *Decision) Validate() error {
	if d.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !validActions[d.Action] {
		return fmt.Errorf("invalid action: %q", d.Action)
	}

	if d.IsOpen() {
		if d.Leverage <= 0 {
			return fmt.Errorf("leverage must be > 0 for %s, got %d", d.Action, d.Leverage)
		}
		if d.PositionSizeUSD <= 0 {
			return fmt.Errorf("position_size_usd must be > 0 for %s, got %v", d.Action, d.PositionSizeUSD)
		}
		if d.StopLoss != nil && *d.StopLoss <= 0 {
			return fmt.Errorf("stop_loss must be > 0, got %v", *d.StopLoss)
		}
		if d.TakeProfit != nil && *d.TakeProfit <= 0 {
			return fmt.Errorf("take_profit must be > 0, got %v", *d.TakeProfit)
		}
		if d.Confidence < 0 || d.Confidence > 100 {
			return fmt.Errorf("confidence must be 0-100, got %d", d.Confidence)
		}
	}
	return nil
}

// ParsedResponse is the result of splitting a model reply into free-text
// reasoning and a validated decision list.
type ParsedResponse struct {
	Thinking      string
	Decisions     []Decision
	RawJSON       string
	ParsingErrors []string
}

// IsValid reports whether at least one decision parsed without errors
func (p *ParsedResponse) IsValid() bool {
	return len(p.Decisions) > 0 && len(p.ParsingErrors) == 0
}

var (
	jsonFenceRe  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	plainFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	trailCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Parse splits a model reply into reasoning text and a JSON decision array.
// The reply format is free text followed by a (possibly fenced) array;
// trailing commas are repaired and invalid decisions are skipped with a
// recorded error.
func Parse(response string) *ParsedResponse {
	result := &ParsedResponse{}

	thinking, jsonStr := extractParts(response)
	result.Thinking = thinking
	result.RawJSON = jsonStr

	if jsonStr == "" {
		result.ParsingErrors = append(result.ParsingErrors, "no JSON decision array found")
		return result
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		// Repair trailing commas before giving up
		fixed := trailCommaRe.ReplaceAllString(jsonStr, "$1")
		if err := json.Unmarshal([]byte(fixed), &raw); err != nil {
			result.ParsingErrors = append(result.ParsingErrors, fmt.Sprintf("JSON parse failed: %v", err))
			return result
		}
	}

	for i, entry := range raw {
		var d Decision
		if err := json.Unmarshal(entry, &d); err != nil {
			result.ParsingErrors = append(result.ParsingErrors, fmt.Sprintf("decision [%d] parse failed: %v", i, err))
			continue
		}
		if d.Action == "" {
			d.Action = ActionWait
		}
		if err := d.Validate(); err != nil {
			result.ParsingErrors = append(result.ParsingErrors, fmt.Sprintf("decision [%d] invalid: %v", i, err))
			continue
		}
		result.Decisions = append(result.Decisions, d)
	}
	return result
}

// extractParts finds the JSON decision array, preferring a ```json fence,
// then a plain fence holding an array, then the widest bare [...] span.
func extractParts(response string) (thinking, jsonStr string) {
	if loc := jsonFenceRe.FindStringSubmatchIndex(response); loc != nil {
		return strings.TrimSpace(response[:loc[0]]), strings.TrimSpace(response[loc[2]:loc[3]])
	}

	if loc := plainFenceRe.FindStringSubmatchIndex(response); loc != nil {
		candidate := strings.TrimSpace(response[loc[2]:loc[3]])
		if strings.HasPrefix(candidate, "[") && strings.HasSuffix(candidate, "]") {
			return strings.TrimSpace(response[:loc[0]]), candidate
		}
	}

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start != -1 && end > start {
		return strings.TrimSpace(response[:start]), response[start : end+1]
	}

	return strings.TrimSpace(response), ""
}
