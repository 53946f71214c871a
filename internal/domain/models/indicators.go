package models

// IndicatorSnapshot is the full indicator read-out derived from one
// PriceSeries. The *Ready flags distinguish a computed value from the
// sentinel reported while history is still accumulating; consumers must
// never present a not-ready value as real.
type IndicatorSnapshot struct {
	RSI      float64
	RSIReady bool

	EMA12 float64
	EMA26 float64

	MACD       float64
	MACDSignal float64
	MACDHist   float64
	MACDPrev   float64
	MACDReady  bool

	ATR      float64
	ATRReady bool

	Volatility float64
	VolReady   bool
}
