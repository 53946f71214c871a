package models

import "time"

// Action is a provider's trading recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Verdict is one provider's structured answer, normalized onto the
// canonical 1..10 sentiment scale.
type Verdict struct {
	Action         Action
	Sentiment      int // 1..10
	Support        float64
	Resistance     float64
	Reason         string
	PositionAdvice string
}

// ProviderErrorKind classifies a failed provider call.
type ProviderErrorKind string

const (
	ProviderErrTimeout     ProviderErrorKind = "timeout"
	ProviderErrMalformed   ProviderErrorKind = "malformed_response"
	ProviderErrAuthMissing ProviderErrorKind = "auth_missing"
	ProviderErrTransport   ProviderErrorKind = "transport"
)

// ProviderResult is the settled outcome of one provider call.
type ProviderResult struct {
	Provider string
	OK       bool
	Verdict  Verdict
	ErrKind  ProviderErrorKind
	ErrMsg   string
	Latency  time.Duration
}

// ProviderOpinion retains a provider's rationale for display, tagged with
// its identity and action, in arrival order.
type ProviderOpinion struct {
	Provider string
	Action   Action
	Reason   string
}

// ConsensusVerdict is the aggregate of all successful provider results.
// A new run produces a new value; it is never mutated after creation.
type ConsensusVerdict struct {
	Symbol         string
	Action         Action
	AvgSentiment   float64
	AvgSupport     float64
	AvgResistance  float64
	PositionAdvice string
	Opinions       []ProviderOpinion
	Timestamp      time.Time
}

// Age returns how old the verdict is at now.
func (v *ConsensusVerdict) Age(now time.Time) time.Duration {
	return now.Sub(v.Timestamp)
}

// AnalysisRequest bundles all context for one consensus run. It is built
// once per run and shared read-only across provider calls.
type AnalysisRequest struct {
	Symbol     string
	Price      float64
	ChangePct  float64
	Session    MarketSession
	Indicators IndicatorSnapshot
	Macro      MacroSnapshot
	Position   *Position
	News       string
}

// SignalLabel is a discrete day-trading recommendation from the local
// policy, independent of any provider verdict.
type SignalLabel string

const (
	LabelRangeTooNarrow SignalLabel = "range-bound"
	LabelSellTheRip     SignalLabel = "sell-the-rip"
	LabelReduce         SignalLabel = "reduce"
	LabelBuyTheDip      SignalLabel = "buy-the-dip"
	LabelCautiousBuy    SignalLabel = "cautious-buy"
	LabelAvoidMacro     SignalLabel = "avoid-macro-risk"
	LabelAccumulate     SignalLabel = "accumulate"
	LabelDistribute     SignalLabel = "distribute"
	LabelObserve        SignalLabel = "observe"
	LabelWarmingUp      SignalLabel = "accumulating-data"
)

// PolicyDecision is the local policy output: a label plus the reasoning
// behind it.
type PolicyDecision struct {
	Label     SignalLabel
	Rationale string
}

// TickRecord is the per-tick history row, published to the tick topic and
// archived for review.
type TickRecord struct {
	Symbol    string      `json:"symbol"`
	Price     float64     `json:"price"`
	RSI       float64     `json:"rsi"`
	MACD      float64     `json:"macd"`
	ATR       float64     `json:"atr"`
	Label     SignalLabel `json:"label"`
	Timestamp time.Time   `json:"ts"`
}

// AlertKind classifies a risk alert.
type AlertKind string

const (
	AlertStopLoss   AlertKind = "stop_loss"
	AlertTakeProfit AlertKind = "take_profit"
	AlertVolatility AlertKind = "volatility"
	AlertVerdict    AlertKind = "verdict"
)

// AlertEvent is published to the alert bus and forwarded to sinks.
type AlertEvent struct {
	Symbol    string    `json:"symbol"`
	Kind      AlertKind `json:"kind"`
	Reason    string    `json:"reason"`
	Price     float64   `json:"price"`
	PnLPct    float64   `json:"pnl_pct,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
