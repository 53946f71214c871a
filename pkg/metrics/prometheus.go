package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal    *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	signalsTotal  *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	consensusRuns *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_ticks_total",
				Help: "Total number of evaluated quote ticks",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signaldesk_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_signals_total",
				Help: "Policy labels produced per symbol",
			},
			[]string{"symbol", "label"},
		),
		providerCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_provider_calls_total",
				Help: "LLM provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_provider_duration_seconds",
				Help:    "Duration of LLM provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		consensusRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_consensus_runs_total",
				Help: "Consensus engine runs by outcome",
			},
			[]string{"outcome"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_verdict_cache_lookups_total",
				Help: "Watchlist verdict cache lookups",
			},
			[]string{"result"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_alerts_total",
				Help: "Risk alerts emitted by kind",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordTick counts one evaluated tick for a symbol.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordSignal counts a policy label for a symbol.
func (r *Recorder) RecordSignal(symbol, label string) {
	r.signalsTotal.WithLabelValues(symbol, label).Inc()
}

// RecordProviderCall records one provider call with its latency.
func (r *Recorder) RecordProviderCall(provider, outcome string, seconds float64) {
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
	r.providerTime.WithLabelValues(provider).Observe(seconds)
}

// RecordConsensusRun counts a consensus run by outcome.
func (r *Recorder) RecordConsensusRun(outcome string) {
	r.consensusRuns.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup counts a verdict cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordAlert counts an emitted risk alert.
func (r *Recorder) RecordAlert(kind string) {
	r.alertsTotal.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
