package indicators

import (
	"bytes"
	"math"
	"strconv"

	"github.com/tradelab/trading-dashboard/internal/models"
)

// FloatSeries is a []float64 that marshals NaN warm-up values as JSON null
type FloatSeries []float64

func (f FloatSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Series holds full indicator time series aligned with the input klines.
// Values before an indicator's warm-up period are NaN.
type Series struct {
	Timestamps []int64     `json:"timestamps"`
	EMA20      FloatSeries `json:"ema20"`
	EMA50      FloatSeries `json:"ema50"`
	MACD       FloatSeries `json:"macd"`
	Signal     FloatSeries `json:"signal"`
	Histogram  FloatSeries `json:"histogram"`
	RSI7       FloatSeries `json:"rsi7"`
	RSI14      FloatSeries `json:"rsi14"`
	ATR3       FloatSeries `json:"atr3"`
	ATR14      FloatSeries `json:"atr14"`
}

// Latest holds the most recent value of each indicator plus the close that
// produced it.
type Latest struct {
	Price     float64 `json:"current_price"`
	EMA20     float64 `json:"ema20"`
	EMA50     float64 `json:"ema50"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"macd_signal"`
	Histogram float64 `json:"macd_histogram"`
	RSI7      float64 `json:"rsi7"`
	RSI14     float64 `json:"rsi14"`
	ATR3      float64 `json:"atr3"`
	ATR14     float64 `json:"atr14"`
}

// Compute calculates all indicator series for a kline window
func Compute(klines []models.Kline) *Series {
	closes := make([]float64, len(klines))
	timestamps := make([]int64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		timestamps[i] = k.Timestamp
	}

	macd, signal, histogram := MACD(closes)

	return &Series{
		Timestamps: timestamps,
		EMA20:      EMA(closes, 20),
		EMA50:      EMA(closes, 50),
		MACD:       macd,
		Signal:     signal,
		Histogram:  histogram,
		RSI7:       RSI(closes, 7),
		RSI14:      RSI(closes, 14),
		ATR3:       ATR(klines, 3),
		ATR14:      ATR(klines, 14),
	}
}

// ComputeLatest calculates all indicators and returns only their last values
func ComputeLatest(klines []models.Kline) *Latest {
	if len(klines) == 0 {
		return &Latest{}
	}
	s := Compute(klines)
	last := len(klines) - 1

	return &Latest{
		Price:     klines[last].Close,
		EMA20:     tail(s.EMA20),
		EMA50:     tail(s.EMA50),
		MACD:      tail(s.MACD),
		Signal:    tail(s.Signal),
		Histogram: tail(s.Histogram),
		RSI7:      tail(s.RSI7),
		RSI14:     tail(s.RSI14),
		ATR3:      tail(s.ATR3),
		ATR14:     tail(s.ATR14),
	}
}

// EMA computes an exponential moving average seeded with the SMA of the first
// period values. Positions before the warm-up are NaN.
func EMA(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if len(values) < period || period <= 0 {
		return result
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	result[period-1] = prev

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		result[i] = prev
	}
	return result
}

// RSI computes the relative strength index using Wilder smoothing
func RSI(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if len(values) <= period || period <= 0 {
		return result
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes MACD(12,26) with a 9-period signal line
func MACD(values []float64) (macd, signal, histogram []float64) {
	fast := EMA(values, 12)
	slow := EMA(values, 26)

	macd = nanSlice(len(values))
	for i := range values {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
		}
	}

	// Signal is the EMA of the defined MACD region
	signal = nanSlice(len(values))
	start := firstValid(macd)
	if start >= 0 {
		sub := EMA(macd[start:], 9)
		for i, v := range sub {
			signal[start+i] = v
		}
	}

	histogram = nanSlice(len(values))
	for i := range values {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signal[i]) {
			histogram[i] = macd[i] - signal[i]
		}
	}
	return macd, signal, histogram
}

// ATR computes the average true range using Wilder smoothing
func ATR(klines []models.Kline, period int) []float64 {
	result := nanSlice(len(klines))
	if len(klines) <= period || period <= 0 {
		return result
	}

	tr := make([]float64, len(klines))
	tr[0] = klines[0].High - klines[0].Low
	for i := 1; i < len(klines); i++ {
		hl := klines[i].High - klines[i].Low
		hc := math.Abs(klines[i].High - klines[i-1].Close)
		lc := math.Abs(klines[i].Low - klines[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	result[period] = prev

	for i := period + 1; i < len(klines); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		result[i] = prev
	}
	return result
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func tail(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return 0
}
