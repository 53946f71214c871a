// Package indicator computes technical indicators over a bounded price
// series. All functions are pure; when the series is too short they report
// an explicit not-ready state instead of a fabricated number.
package indicator

import (
	"math"

	"SignalDesk/internal/domain/models"
)

const (
	RSIPeriod  = 14
	ATRPeriod  = 14
	EMAFast    = 12
	EMASlow    = 26
	SignalSpan = 9
	// VolWindow is the trailing return window for realized volatility.
	VolWindow = 10

	// RSINeutral is the sentinel reported while RSI history is still
	// accumulating. Callers must render it distinctly from a computed 50.
	RSINeutral = 50.0
)

// RSI computes the relative strength index over the last `period` deltas.
// With fewer than period+1 points it returns (RSINeutral, false).
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return RSINeutral, false
	}
	var gain, loss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return RSINeutral, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// EMA computes an exponential moving average seeded with the simple average
// of the first `period` points (or the first point when the series is
// shorter), then smoothed with k = 2/(period+1).
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 {
		period = 1
	}
	seedLen := period
	if len(prices) < period {
		seedLen = 1
	}
	var ema float64
	for i := 0; i < seedLen; i++ {
		ema += prices[i]
	}
	ema /= float64(seedLen)
	k := 2.0 / float64(period+1)
	for i := seedLen; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
	}
	return ema
}

// MACDResult is the full MACD read-out.
type MACDResult struct {
	MACD     float64
	Signal   float64
	Hist     float64
	Prev     float64 // MACD line one step back, for crossover checks
	EMA12    float64
	EMA26    float64
}

// MACD computes the MACD line (EMA12 − EMA26) and a signal line taken as
// the simple average of the MACD line recomputed over its trailing 9
// values. This SMA signal is the canonical choice here; an EMA(9) signal
// would shift crossover timing and is deliberately not used.
// Requires at least 26 points; otherwise all fields are zero and ok=false.
func MACD(prices []float64) (MACDResult, bool) {
	if len(prices) < EMASlow {
		return MACDResult{}, false
	}
	macdAt := func(end int) float64 {
		p := prices[:end+1]
		return EMA(p, EMAFast) - EMA(p, EMASlow)
	}
	last := len(prices) - 1
	span := SignalSpan
	if avail := len(prices) - EMASlow + 1; avail < span {
		span = avail
	}
	var sum float64
	for i := last - span + 1; i <= last; i++ {
		sum += macdAt(i)
	}
	r := MACDResult{
		MACD:   macdAt(last),
		Signal: sum / float64(span),
		EMA12:  EMA(prices, EMAFast),
		EMA26:  EMA(prices, EMASlow),
	}
	if last > EMASlow-1 {
		r.Prev = macdAt(last - 1)
	} else {
		r.Prev = r.MACD
	}
	r.Hist = r.MACD - r.Signal
	return r, true
}

// ATR computes the average true range over the last `period` steps. With a
// single price stream (no separate high/low feed) the true range degrades
// to the absolute step change |p[i] − p[i-1]|.
// Requires at least period+1 points.
func ATR(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	var sum float64
	for i := len(prices) - period; i < len(prices); i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(period), true
}

// RealizedVolatility is the sample standard deviation of percent returns
// over the trailing `window` steps, in percent. Requires window+1 points.
func RealizedVolatility(prices []float64, window int) (float64, bool) {
	if window <= 1 || len(prices) < window+1 {
		return 0, false
	}
	rets := make([]float64, 0, window)
	for i := len(prices) - window; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (prices[i]-prev)/prev*100)
	}
	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))
	var sq float64
	for _, r := range rets {
		sq += (r - mean) * (r - mean)
	}
	variance := sq / float64(len(rets)-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}

// Snapshot computes the full indicator read-out for a series.
func Snapshot(series *models.PriceSeries) models.IndicatorSnapshot {
	prices := series.Values()
	var snap models.IndicatorSnapshot
	snap.RSI, snap.RSIReady = RSI(prices, RSIPeriod)
	snap.EMA12 = EMA(prices, EMAFast)
	snap.EMA26 = EMA(prices, EMASlow)
	if m, ok := MACD(prices); ok {
		snap.MACD = m.MACD
		snap.MACDSignal = m.Signal
		snap.MACDHist = m.Hist
		snap.MACDPrev = m.Prev
		snap.MACDReady = true
	}
	snap.ATR, snap.ATRReady = ATR(prices, ATRPeriod)
	snap.Volatility, snap.VolReady = RealizedVolatility(prices, VolWindow)
	return snap
}
