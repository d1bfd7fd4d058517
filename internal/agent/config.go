package agent

import (
	"encoding/json"
	"time"

	"github.com/tradelab/trading-dashboard/internal/models"
)

// Config controls one background agent instance
type Config struct {
	Symbols            []string      `json:"symbols"`
	DecisionInterval   time.Duration `json:"-"`
	MaxLeverage        int           `json:"max_leverage"`
	MaxPositions       int           `json:"max_positions"`
	MaxPositionSizeUSD float64       `json:"max_position_size_usd"`
}

// sessionConfig is the subset of the session config blob the agent reads
type sessionConfig struct {
	Symbols                 []string `json:"symbols"`
	DecisionIntervalSeconds int      `json:"decision_interval_seconds"`
	MaxLeverage             int      `json:"max_leverage"`
	MaxPositions            int      `json:"max_positions"`
	MaxPositionSizeUSD      float64  `json:"max_position_size_usd"`
}

// DefaultConfig returns agent defaults for sessions with no stored config
func DefaultConfig(symbols []string, interval time.Duration) Config {
	return Config{
		Symbols:            symbols,
		DecisionInterval:   interval,
		MaxLeverage:        5,
		MaxPositions:       3,
		MaxPositionSizeUSD: 1000,
	}
}

// ConfigFromSession overlays the session's stored config onto the defaults
func ConfigFromSession(session *models.TradingSession, defaults Config) Config {
	cfg := defaults
	if len(session.Config) == 0 {
		return cfg
	}

	var stored sessionConfig
	if err := json.Unmarshal(session.Config, &stored); err != nil {
		return cfg
	}
	if len(stored.Symbols) > 0 {
		cfg.Symbols = stored.Symbols
	}
	if stored.DecisionIntervalSeconds > 0 {
		cfg.DecisionInterval = time.Duration(stored.DecisionIntervalSeconds) * time.Second
	}
	if stored.MaxLeverage > 0 {
		cfg.MaxLeverage = stored.MaxLeverage
	}
	if stored.MaxPositions > 0 {
		cfg.MaxPositions = stored.MaxPositions
	}
	if stored.MaxPositionSizeUSD > 0 {
		cfg.MaxPositionSizeUSD = stored.MaxPositionSizeUSD
	}
	return cfg
}
