package agent

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are an autonomous crypto futures trading agent managing a simulated account.

Rules:
- You may only trade these symbols: %s
- Maximum leverage: %dx
- Maximum concurrent positions: %d
- Maximum position size: %.0f USD
- Prefer waiting over low-conviction trades.

Respond with your reasoning, followed by a JSON array of decisions wrapped in a ` + "```json" + ` fence.
Each decision object has:
  "symbol": string
  "action": one of "open_long", "open_short", "close_long", "close_short", "hold", "wait"
  "leverage": integer (required for open actions)
  "position_size_usd": number (required for open actions)
  "stop_loss": number (optional)
  "take_profit": number (optional)
  "confidence": integer 0-100
  "reasoning": string

If no action is warranted, return a single decision with action "wait".`

// buildSystemPrompt renders the trading rules for this agent configuration
func buildSystemPrompt(cfg Config) string {
	return fmt.Sprintf(systemPromptTemplate,
		strings.Join(cfg.Symbols, ", "),
		cfg.MaxLeverage,
		cfg.MaxPositions,
		cfg.MaxPositionSizeUSD,
	)
}

// buildUserPrompt wraps the serialized market and account state
func buildUserPrompt(promptData []byte) string {
	return fmt.Sprintf("Current market data and account state:\n\n%s\n\nDecide your next actions.", promptData)
}
