package usecase

import (
	"context"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/indicator"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/policy"
	"SignalDesk/internal/riskmon"
	"SignalDesk/internal/service/cooldown"
	"SignalDesk/internal/session"
	"SignalDesk/internal/watchlist"
	applogger "SignalDesk/pkg/logger"
)

// NotifyCooldown throttles risk notifications per symbol.
const NotifyCooldown = 5 * time.Minute

// SymbolState is the read-only view of one symbol's latest evaluation.
type SymbolState struct {
	Quote      models.Quote
	Indicators models.IndicatorSnapshot
	Session    models.MarketSession
	Policy     models.PolicyDecision
	UpdatedAt  time.Time
}

// symbolSlot is the per-symbol mutable state. The series is written only
// by the symbol's own loop goroutine; state is swapped under the parent
// lock for readers.
type symbolSlot struct {
	series *models.PriceSeries
	state  *SymbolState
}

// TickLoop drives per-symbol evaluation: one timer per symbol, each tick
// strictly sequential for its symbol. Read quote, append price, compute
// indicators, classify session, evaluate policy, check risk.
type TickLoop struct {
	source    domrepo.MarketDataSource
	macro     *macro.Holder
	wl        *watchlist.Cache
	monitor   *riskmon.Monitor
	positions *PositionBook
	alerts    domrepo.AlertPublisher
	ticks     domrepo.TickPublisher
	notifier  domsvc.NotificationSink
	scheduler AnalysisScheduler
	gate      *cooldown.Gate
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	clock     domsvc.Clock

	interval  time.Duration
	seriesMax int

	mu    sync.RWMutex
	slots map[string]*symbolSlot
}

func NewTickLoop(
	source domrepo.MarketDataSource,
	macroHolder *macro.Holder,
	wl *watchlist.Cache,
	monitor *riskmon.Monitor,
	positions *PositionBook,
	alerts domrepo.AlertPublisher,
	ticks domrepo.TickPublisher,
	notifier domsvc.NotificationSink,
	scheduler AnalysisScheduler,
	gate *cooldown.Gate,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	clock domsvc.Clock,
	interval time.Duration,
	seriesMax int,
) *TickLoop {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if seriesMax <= 0 {
		seriesMax = 100
	}
	return &TickLoop{
		source:    source,
		macro:     macroHolder,
		wl:        wl,
		monitor:   monitor,
		positions: positions,
		alerts:    alerts,
		ticks:     ticks,
		notifier:  notifier,
		scheduler: scheduler,
		gate:      gate,
		metrics:   metrics,
		logger:    logger,
		clock:     clock,
		interval:  interval,
		seriesMax: seriesMax,
		slots:     make(map[string]*symbolSlot),
	}
}

// Run starts one loop goroutine per symbol and blocks until ctx is done.
func (l *TickLoop) Run(ctx context.Context, symbols []string) {
	var wg sync.WaitGroup
	for _, sym := range symbols {
		l.wl.Track(sym)
		slot := &symbolSlot{series: models.NewPriceSeries(sym, l.seriesMax)}
		l.mu.Lock()
		l.slots[sym] = slot
		l.mu.Unlock()

		wg.Add(1)
		go func(sym string, slot *symbolSlot) {
			defer wg.Done()
			l.loop(ctx, sym, slot)
		}(sym, slot)
	}
	wg.Wait()
}

func (l *TickLoop) loop(ctx context.Context, symbol string, slot *symbolSlot) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.tick(ctx, symbol, slot)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx, symbol, slot)
		}
	}
}

func (l *TickLoop) tick(ctx context.Context, symbol string, slot *symbolSlot) {
	quote, err := l.source.LatestQuote(ctx, symbol)
	if err != nil {
		// No signal this cycle; the next tick retries.
		l.metrics.RecordError("market_data")
		l.logger.Debug("quote unavailable",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return
	}

	slot.series.Append(quote.Price)
	snap := indicator.Snapshot(slot.series)
	sess := session.Classify(l.clock.Now(), quote.Hint)
	pos := l.positions.Get(symbol)

	pol := policy.Evaluate(policy.Input{
		Quote:      *quote,
		Indicators: snap,
		Macro:      l.macro.Current(),
		Position:   pos,
	})

	state := &SymbolState{
		Quote:      *quote,
		Indicators: snap,
		Session:    sess,
		Policy:     pol,
		UpdatedAt:  l.clock.Now(),
	}
	l.mu.Lock()
	slot.state = state
	l.mu.Unlock()

	l.wl.UpdateQuote(symbol, quote.Price, quote.ChangePct, snap.Volatility)
	l.metrics.RecordTick(symbol)
	l.metrics.RecordLastPrice(symbol, quote.Price)
	l.metrics.RecordSignal(symbol, string(pol.Label))

	l.publishTick(ctx, symbol, quote.Price, snap, pol)
	l.checkRisk(ctx, symbol, quote.Price, sess, pos, snap)
}

func (l *TickLoop) publishTick(ctx context.Context, symbol string, price float64, snap models.IndicatorSnapshot, pol models.PolicyDecision) {
	if l.ticks == nil {
		return
	}
	rec := &models.TickRecord{
		Symbol:    symbol,
		Price:     price,
		RSI:       snap.RSI,
		MACD:      snap.MACD,
		ATR:       snap.ATR,
		Label:     pol.Label,
		Timestamp: l.clock.Now(),
	}
	if err := l.ticks.PublishTick(ctx, rec); err != nil {
		l.metrics.RecordError("tick_publish")
		l.logger.Warn("tick publish failed",
			applogger.String("symbol", symbol),
			applogger.Error(err))
	}
}

func (l *TickLoop) checkRisk(ctx context.Context, symbol string, price float64, sess models.MarketSession, pos *models.Position, snap models.IndicatorSnapshot) {
	out := l.monitor.Check(symbol, price, sess, pos, snap)
	for _, ev := range out.Alerts {
		l.metrics.RecordAlert(string(ev.Kind))
		if l.alerts != nil {
			if err := l.alerts.Publish(ctx, ev); err != nil {
				l.metrics.RecordError("alert_publish")
				l.logger.Warn("alert publish failed",
					applogger.String("symbol", symbol),
					applogger.Error(err))
			}
		}
		if l.gate.Allow(symbol+"/notify", NotifyCooldown) {
			l.notifier.Notify(ctx, string(ev.Kind)+" "+symbol, ev.Reason)
		}
	}
	if out.RequestAnalysis && l.scheduler != nil {
		if err := l.scheduler.Schedule(ctx, symbol, "risk_breach"); err != nil {
			l.metrics.RecordError("analysis_schedule")
			l.logger.Warn("analysis schedule failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}
}

// StateFor returns the latest evaluated state for a symbol.
func (l *TickLoop) StateFor(symbol string) (*SymbolState, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	slot, ok := l.slots[symbol]
	if !ok || slot.state == nil {
		return nil, false
	}
	cp := *slot.state
	return &cp, true
}
