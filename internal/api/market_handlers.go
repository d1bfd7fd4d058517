package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/tradelab/trading-dashboard/internal/exchange"
	"github.com/tradelab/trading-dashboard/internal/indicators"
	"github.com/tradelab/trading-dashboard/internal/redis"
)

// requireMarket guards the market endpoints when no exchange is configured
func (h *Handler) requireMarket(w http.ResponseWriter) bool {
	if h.market == nil {
		respondError(w, http.StatusServiceUnavailable, "exchange not configured")
		return false
	}
	return true
}

func requireSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return "", false
	}
	return symbol, true
}

// GetKlines handles GET /market/klines. Served from the Redis cache when
// warm, limit capped at 1000.
func (h *Handler) GetKlines(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}
	symbol, ok := requireSymbol(w, r)
	if !ok {
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := queryInt(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}

	cacheKey := exchange.NormalizeSymbol(symbol)
	if h.redis != nil {
		if klines, err := h.redis.GetKlines(r.Context(), cacheKey, interval, limit); err == nil {
			respondList(w, http.StatusOK, klines, len(klines))
			return
		} else if !redis.IsCacheMiss(err) {
			log.Printf("Klines cache read failed for %s: %v", symbol, err)
		}
	}

	klines, err := h.market.Klines(r.Context(), symbol, interval, limit)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if h.redis != nil {
		if err := h.redis.SetKlines(r.Context(), cacheKey, interval, limit, klines); err != nil {
			log.Printf("Klines cache write failed for %s: %v", symbol, err)
		}
	}
	respondList(w, http.StatusOK, klines, len(klines))
}

// GetTicker handles GET /market/ticker
func (h *Handler) GetTicker(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}
	symbol, ok := requireSymbol(w, r)
	if !ok {
		return
	}

	cacheKey := exchange.NormalizeSymbol(symbol)
	if h.redis != nil {
		if ticker, err := h.redis.GetTicker(r.Context(), cacheKey); err == nil {
			respondData(w, http.StatusOK, ticker)
			return
		} else if !redis.IsCacheMiss(err) {
			log.Printf("Ticker cache read failed for %s: %v", symbol, err)
		}
	}

	ticker, err := h.market.Ticker(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if h.redis != nil {
		if err := h.redis.SetTicker(r.Context(), ticker); err != nil {
			log.Printf("Ticker cache write failed for %s: %v", symbol, err)
		}
	}
	respondData(w, http.StatusOK, ticker)
}

// GetSymbols handles GET /market/symbols
func (h *Handler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}

	quote := r.URL.Query().Get("quote")
	activeOnly := true
	if v := r.URL.Query().Get("active_only"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			activeOnly = b
		}
	}

	symbols, err := h.market.Symbols(r.Context(), quote, activeOnly)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondList(w, http.StatusOK, symbols, len(symbols))
}

// GetFundingRate handles GET /market/funding
func (h *Handler) GetFundingRate(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}
	symbol, ok := requireSymbol(w, r)
	if !ok {
		return
	}

	funding, err := h.market.FundingRate(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondData(w, http.StatusOK, funding)
}

// GetOpenInterest handles GET /market/open-interest
func (h *Handler) GetOpenInterest(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}
	symbol, ok := requireSymbol(w, r)
	if !ok {
		return
	}

	oi, err := h.market.OpenInterest(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondData(w, http.StatusOK, oi)
}

// GetIndicators handles GET /market/indicators. Computes EMA, RSI, MACD and
// ATR over the requested kline window; include_series=true adds the full
// per-candle series alongside the latest values.
func (h *Handler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	if !h.requireMarket(w) {
		return
	}
	symbol, ok := requireSymbol(w, r)
	if !ok {
		return
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := queryInt(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}

	klines, err := h.market.Klines(r.Context(), symbol, interval, limit)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if len(klines) == 0 {
		respondError(w, http.StatusNotFound, "no kline data for "+symbol)
		return
	}

	data := map[string]interface{}{
		"symbol":   exchange.NormalizeSymbol(symbol),
		"interval": interval,
		"latest":   indicators.ComputeLatest(klines),
	}
	if v := r.URL.Query().Get("include_series"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			data["series"] = indicators.Compute(klines)
		}
	}
	respondData(w, http.StatusOK, data)
}
