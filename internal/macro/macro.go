// Package macro maintains the broad-market context used as a cross-cutting
// filter by the signal policy and the watchlist cache.
package macro

import (
	"context"
	"sync/atomic"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// Volatility-index cutoffs for the regime classification.
const (
	calmBelow      = 15.0
	turbulentAbove = 25.0
)

// Holder keeps the latest MacroSnapshot. The snapshot is replaced
// atomically on refresh and never mutated in place, so readers need no
// locking.
type Holder struct {
	cur atomic.Pointer[models.MacroSnapshot]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(&models.MacroSnapshot{Regime: models.RegimeNormal})
	return h
}

// Current returns the latest snapshot. Never nil.
func (h *Holder) Current() *models.MacroSnapshot {
	return h.cur.Load()
}

// Update swaps in a new snapshot.
func (h *Holder) Update(s *models.MacroSnapshot) {
	h.cur.Store(s)
}

// ClassifyRegime maps a volatility index level to a regime.
func ClassifyRegime(volIndex float64) models.MacroRegime {
	switch {
	case volIndex <= 0:
		return models.RegimeNormal // no reading yet
	case volIndex < calmBelow:
		return models.RegimeCalm
	case volIndex > turbulentAbove:
		return models.RegimeTurbulent
	default:
		return models.RegimeNormal
	}
}

// Refresher polls the broad index and volatility index on a fixed interval
// and swaps the holder's snapshot. Fetch failures keep the previous
// snapshot; macro data going stale degrades the filter, it never blocks
// signal production.
type Refresher struct {
	holder      *Holder
	source      domrepo.MarketDataSource
	indexSymbol string
	volSymbol   string
	interval    time.Duration
	logger      *applogger.Logger
}

func NewRefresher(holder *Holder, source domrepo.MarketDataSource, indexSymbol, volSymbol string, interval time.Duration, l *applogger.Logger) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		holder:      holder,
		source:      source,
		indexSymbol: indexSymbol,
		volSymbol:   volSymbol,
		interval:    interval,
		logger:      l,
	}
}

// Run blocks until ctx is cancelled, refreshing once immediately and then
// on every interval tick.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	prev := r.holder.Current()
	next := *prev

	if q, err := r.source.LatestQuote(ctx, r.indexSymbol); err != nil {
		r.logger.Warn("macro index fetch failed",
			applogger.String("symbol", r.indexSymbol),
			applogger.Error(err))
	} else {
		next.IndexChangePct = q.ChangePct
	}

	if r.volSymbol != "" {
		if q, err := r.source.LatestQuote(ctx, r.volSymbol); err != nil {
			r.logger.Warn("volatility index fetch failed",
				applogger.String("symbol", r.volSymbol),
				applogger.Error(err))
		} else {
			next.VolatilityIndex = q.Price
		}
	}

	next.Regime = ClassifyRegime(next.VolatilityIndex)
	next.Timestamp = time.Now()
	r.holder.Update(&next)
}
