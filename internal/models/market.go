package models

// Kline is one OHLCV candle. Timestamps are exchange epoch milliseconds.
type Kline struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Ticker is a 24h price summary for one symbol. Bid and ask are not available
// on the futures stats endpoint and stay nil there.
type Ticker struct {
	Symbol       string   `json:"symbol"`
	Last         float64  `json:"last"`
	Bid          *float64 `json:"bid"`
	Ask          *float64 `json:"ask"`
	Open         float64  `json:"open"`
	High         float64  `json:"high"`
	Low          float64  `json:"low"`
	Volume       float64  `json:"volume"`
	ChangePct24h float64  `json:"change_pct_24h"`
	Timestamp    int64    `json:"timestamp"`
}

// SymbolInfo describes one tradable contract.
type SymbolInfo struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
	Active bool   `json:"active"`
}

// FundingRate is the current funding rate for a perpetual contract.
type FundingRate struct {
	Symbol          string  `json:"symbol"`
	FundingRate     float64 `json:"funding_rate"`
	NextFundingTime int64   `json:"next_funding_time"`
	Timestamp       int64   `json:"timestamp"`
}

// OpenInterest is the outstanding contract volume for a symbol.
type OpenInterest struct {
	Symbol       string  `json:"symbol"`
	OpenInterest float64 `json:"open_interest"`
	Timestamp    int64   `json:"timestamp"`
}

// AccountSummary is the exchange account view behind /account/summary.
type AccountSummary struct {
	TotalWalletBalance    float64            `json:"total_wallet_balance"`
	TotalUnrealizedProfit float64            `json:"total_unrealized_profit"`
	AvailableBalance      float64            `json:"available_balance"`
	Positions             []ExchangePosition `json:"positions"`
}

// ExchangePosition is one non-flat position reported by the exchange.
type ExchangePosition struct {
	Symbol           string  `json:"symbol"`
	PositionAmt      float64 `json:"position_amt"`
	EntryPrice       float64 `json:"entry_price"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
	Leverage         int     `json:"leverage"`
	PositionSide     string  `json:"position_side"`
}
