package models

import "time"

// MarketSession is the exchange trading phase.
type MarketSession string

const (
	SessionPre     MarketSession = "PRE"
	SessionRegular MarketSession = "REG"
	SessionPost    MarketSession = "POST"
	SessionClosed  MarketSession = "CLOSED"
)

// SessionHint is a session state reported by the market data source,
// timestamped so stale hints can be discarded.
type SessionHint struct {
	State MarketSession
	At    time.Time
}

// Quote is the latest snapshot for a symbol from a market data source.
type Quote struct {
	Symbol    string
	Price     float64
	DayHigh   float64
	DayLow    float64
	ChangePct float64
	Hint      *SessionHint
	Timestamp time.Time
}

// PriceSeries is a bounded FIFO of observed prices for one symbol.
// It has a single writer (the symbol's tick loop); all other components
// only read the snapshot returned by Values.
type PriceSeries struct {
	symbol string
	max    int
	prices []float64
}

// NewPriceSeries creates a series bounded to max points.
func NewPriceSeries(symbol string, max int) *PriceSeries {
	if max <= 0 {
		max = 100
	}
	return &PriceSeries{symbol: symbol, max: max, prices: make([]float64, 0, max)}
}

func (s *PriceSeries) Symbol() string { return s.symbol }

// Append adds a price, evicting the oldest point when the bound is hit.
func (s *PriceSeries) Append(price float64) {
	if len(s.prices) == s.max {
		copy(s.prices, s.prices[1:])
		s.prices = s.prices[:len(s.prices)-1]
	}
	s.prices = append(s.prices, price)
}

// Values returns a copy of the series in insertion order.
func (s *PriceSeries) Values() []float64 {
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}

func (s *PriceSeries) Len() int { return len(s.prices) }

// Last returns the most recent price, or 0 if empty.
func (s *PriceSeries) Last() float64 {
	if len(s.prices) == 0 {
		return 0
	}
	return s.prices[len(s.prices)-1]
}

// Position is an open position. Absence (nil) means flat.
type Position struct {
	Shares   float64
	AvgPrice float64
}

// PnLPct returns the unrealized profit percentage at the given price.
func (p *Position) PnLPct(price float64) float64 {
	if p == nil || p.AvgPrice == 0 {
		return 0
	}
	return (price - p.AvgPrice) / p.AvgPrice * 100
}

// MacroRegime classifies the broad-market volatility backdrop.
type MacroRegime string

const (
	RegimeCalm      MacroRegime = "calm"
	RegimeNormal    MacroRegime = "normal"
	RegimeTurbulent MacroRegime = "turbulent"
)

// MacroSnapshot holds the latest broad-market context. Snapshots are
// immutable; the holder swaps the whole value on refresh.
type MacroSnapshot struct {
	IndexChangePct  float64
	VolatilityIndex float64
	Regime          MacroRegime
	Timestamp       time.Time
}

// WatchlistEntry is the per-symbol view the decision cache maintains.
type WatchlistEntry struct {
	Symbol          string
	LastPrice       float64
	LastChangePct   float64
	VolatilityLevel float64
	Verdict         *ConsensusVerdict
	UpdatedAt       time.Time
}
