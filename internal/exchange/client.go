package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/tradelab/trading-dashboard/internal/config"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// Client wraps the Binance futures API behind the market-data surface the
// dashboard needs.
type Client struct {
	client *futures.Client
}

// New creates a futures client. Credentials may be empty for the public
// market-data endpoints.
func New(cfg config.BinanceConfig) *Client {
	if cfg.UseTestnet {
		futures.UseTestnet = true
	}
	return &Client{client: futures.NewClient(cfg.APIKey, cfg.SecretKey)}
}

// NormalizeSymbol maps a dashboard pair like "BTC/USDT:USDT" to the exchange
// form "BTCUSDT". Already-normalized symbols pass through unchanged.
func NormalizeSymbol(symbol string) string {
	if i := strings.Index(symbol, ":"); i >= 0 {
		symbol = symbol[:i]
	}
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// Klines fetches OHLCV candles for a symbol
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error) {
	klines, err := c.client.NewKlinesService().
		Symbol(NormalizeSymbol(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", symbol, err)
	}

	result := make([]models.Kline, len(klines))
	for i, k := range klines {
		result[i] = models.Kline{
			Timestamp: k.OpenTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		}
	}
	return result, nil
}

// Ticker fetches the 24h price summary for a symbol. The futures stats
// endpoint carries no bid/ask, those fields stay nil.
func (c *Client) Ticker(ctx context.Context, symbol string) (*models.Ticker, error) {
	stats, err := c.client.NewListPriceChangeStatsService().
		Symbol(NormalizeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticker for %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}

	s := stats[0]
	return &models.Ticker{
		Symbol:       s.Symbol,
		Last:         parseFloat(s.LastPrice),
		Open:         parseFloat(s.OpenPrice),
		High:         parseFloat(s.HighPrice),
		Low:          parseFloat(s.LowPrice),
		Volume:       parseFloat(s.Volume),
		ChangePct24h: parseFloat(s.PriceChangePercent),
		Timestamp:    s.CloseTime,
	}, nil
}

// Symbols lists tradable contracts, optionally filtered by quote asset and
// trading status
func (c *Client) Symbols(ctx context.Context, quote string, activeOnly bool) ([]models.SymbolInfo, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", err)
	}

	var symbols []models.SymbolInfo
	for _, s := range info.Symbols {
		if quote != "" && s.QuoteAsset != quote {
			continue
		}
		active := s.Status == "TRADING"
		if activeOnly && !active {
			continue
		}
		symbols = append(symbols, models.SymbolInfo{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Active: active,
		})
	}
	return symbols, nil
}

// FundingRate fetches the current funding rate for a perpetual contract
func (c *Client) FundingRate(ctx context.Context, symbol string) (*models.FundingRate, error) {
	indexes, err := c.client.NewPremiumIndexService().
		Symbol(NormalizeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch funding rate for %s: %w", symbol, err)
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("no funding data for %s", symbol)
	}

	idx := indexes[0]
	return &models.FundingRate{
		Symbol:          idx.Symbol,
		FundingRate:     parseFloat(idx.LastFundingRate),
		NextFundingTime: idx.NextFundingTime,
		Timestamp:       idx.Time,
	}, nil
}

// OpenInterest fetches the outstanding contract volume for a symbol
func (c *Client) OpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error) {
	oi, err := c.client.NewGetOpenInterestService().
		Symbol(NormalizeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open interest for %s: %w", symbol, err)
	}

	return &models.OpenInterest{
		Symbol:       oi.Symbol,
		OpenInterest: parseFloat(oi.OpenInterest),
		Timestamp:    oi.Time,
	}, nil
}

// AccountSummary fetches wallet balances and non-flat exchange positions.
// Requires API credentials.
func (c *Client) AccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	account, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}

	summary := &models.AccountSummary{
		TotalWalletBalance:    parseFloat(account.TotalWalletBalance),
		TotalUnrealizedProfit: parseFloat(account.TotalUnrealizedProfit),
		AvailableBalance:      parseFloat(account.AvailableBalance),
	}

	for _, p := range account.Positions {
		amt := parseFloat(p.PositionAmt)
		if amt == 0 {
			continue
		}
		leverage, _ := strconv.Atoi(p.Leverage)
		summary.Positions = append(summary.Positions, models.ExchangePosition{
			Symbol:           p.Symbol,
			PositionAmt:      amt,
			EntryPrice:       parseFloat(p.EntryPrice),
			UnrealizedProfit: parseFloat(p.UnrealizedProfit),
			Leverage:         leverage,
			PositionSide:     string(p.PositionSide),
		})
	}
	return summary, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
