package indicators

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradelab/trading-dashboard/internal/models"
)

func constantKlines(n int, price float64) []models.Kline {
	klines := make([]models.Kline, n)
	for i := range klines {
		klines[i] = models.Kline{
			Timestamp: int64(i) * 60000,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100,
		}
	}
	return klines
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func TestEMA_ConstantSeries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 42
	}
	ema := EMA(values, 20)

	assert.True(t, math.IsNaN(ema[18]), "warm-up values should be NaN")
	assert.InDelta(t, 42, ema[19], 1e-9)
	assert.InDelta(t, 42, ema[59], 1e-9)
}

func TestEMA_TooShort(t *testing.T) {
	ema := EMA([]float64{1, 2, 3}, 20)
	for _, v := range ema {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRSI_MonotonicSeries(t *testing.T) {
	rsi := RSI(risingCloses(60), 14)
	// Only gains, so RSI pins at 100
	assert.InDelta(t, 100, rsi[59], 1e-9)

	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	rsi = RSI(falling, 14)
	assert.InDelta(t, 0, rsi[59], 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{
		100, 102, 101, 103, 105, 104, 106, 108, 107, 109,
		108, 110, 109, 111, 110, 112, 111, 113, 112, 114,
	}
	rsi := RSI(closes, 14)
	last := rsi[len(rsi)-1]
	assert.False(t, math.IsNaN(last))
	assert.GreaterOrEqual(t, last, 0.0)
	assert.LessOrEqual(t, last, 100.0)
}

func TestMACD_RisingSeriesIsPositive(t *testing.T) {
	macd, signal, histogram := MACD(risingCloses(80))

	last := len(macd) - 1
	require.False(t, math.IsNaN(macd[last]))
	require.False(t, math.IsNaN(signal[last]))
	assert.Greater(t, macd[last], 0.0)
	assert.InDelta(t, macd[last]-signal[last], histogram[last], 1e-9)
}

func TestATR_ConstantRange(t *testing.T) {
	atr := ATR(constantKlines(40, 100), 14)
	// High-low is always 2, so ATR converges to 2
	assert.InDelta(t, 2, atr[39], 1e-9)
}

func TestComputeLatest(t *testing.T) {
	klines := constantKlines(80, 500)
	latest := ComputeLatest(klines)

	assert.Equal(t, 500.0, latest.Price)
	assert.InDelta(t, 500, latest.EMA20, 1e-9)
	assert.InDelta(t, 500, latest.EMA50, 1e-9)
	assert.InDelta(t, 0, latest.MACD, 1e-9)
	assert.InDelta(t, 2, latest.ATR14, 1e-9)
}

func TestComputeLatest_Empty(t *testing.T) {
	latest := ComputeLatest(nil)
	assert.Zero(t, latest.Price)
}

func TestFloatSeries_MarshalsNaNAsNull(t *testing.T) {
	data, err := json.Marshal(FloatSeries{math.NaN(), 1.5, math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 1.5, null]`, string(data))

	// Whole series payloads stay marshalable despite warm-up NaNs.
	_, err = json.Marshal(Compute(constantKlines(25, 100)))
	require.NoError(t, err)
}

func TestCompute_SeriesAligned(t *testing.T) {
	klines := constantKlines(60, 100)
	s := Compute(klines)

	assert.Len(t, s.Timestamps, 60)
	assert.Len(t, s.EMA20, 60)
	assert.Len(t, s.MACD, 60)
	assert.Len(t, s.RSI14, 60)
	assert.Len(t, s.ATR14, 60)
}
