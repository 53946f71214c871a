package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/consensus"
	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/service/cooldown"
	"SignalDesk/internal/watchlist"
	applogger "SignalDesk/pkg/logger"
)

const (
	// AnalysisCooldown throttles automatic re-analysis per symbol.
	AnalysisCooldown = 5 * time.Minute

	// TriggerUser marks a user-initiated run, which bypasses the
	// automatic cooldown (the API applies its own rate limit).
	TriggerUser = "user"
)

// ErrAnalysisCoolingDown is returned when an automatic trigger arrives
// inside the per-symbol cooldown window.
var ErrAnalysisCoolingDown = errors.New("analysis cooling down")

// Analyzer runs the consensus engine for one symbol, using the tick
// loop's latest evaluated state, and fans the verdict out to the cache,
// the history store, the alert bus and the notifier.
type Analyzer struct {
	engine    *consensus.Engine
	loop      *TickLoop
	macro     *macro.Holder
	positions *PositionBook
	wl        *watchlist.Cache
	history   domrepo.HistoryStore
	alerts    domrepo.AlertPublisher
	notifier  domsvc.NotificationSink
	gate      *cooldown.Gate
	logger    *applogger.Logger
}

func NewAnalyzer(
	engine *consensus.Engine,
	loop *TickLoop,
	macroHolder *macro.Holder,
	positions *PositionBook,
	wl *watchlist.Cache,
	history domrepo.HistoryStore,
	alerts domrepo.AlertPublisher,
	notifier domsvc.NotificationSink,
	gate *cooldown.Gate,
	logger *applogger.Logger,
) *Analyzer {
	return &Analyzer{
		engine:    engine,
		loop:      loop,
		macro:     macroHolder,
		positions: positions,
		wl:        wl,
		history:   history,
		alerts:    alerts,
		notifier:  notifier,
		gate:      gate,
		logger:    logger,
	}
}

// Analyze runs one consensus pass. Automatic triggers respect the
// per-symbol cooldown; user triggers do not.
func (a *Analyzer) Analyze(ctx context.Context, symbol, trigger string) (*models.ConsensusVerdict, error) {
	return a.AnalyzeWithNews(ctx, symbol, trigger, "")
}

// AnalyzeWithNews is Analyze with optional caller-supplied news context
// folded into the prompt.
func (a *Analyzer) AnalyzeWithNews(ctx context.Context, symbol, trigger, news string) (*models.ConsensusVerdict, error) {
	if trigger != TriggerUser && !a.gate.Allow(symbol+"/analysis", AnalysisCooldown) {
		a.logger.Debug("analysis skipped inside cooldown",
			applogger.String("symbol", symbol),
			applogger.String("trigger", trigger))
		return nil, ErrAnalysisCoolingDown
	}

	state, ok := a.loop.StateFor(symbol)
	if !ok {
		return nil, fmt.Errorf("no market data observed for %s yet", symbol)
	}

	req := &models.AnalysisRequest{
		Symbol:     symbol,
		Price:      state.Quote.Price,
		ChangePct:  state.Quote.ChangePct,
		Session:    state.Session,
		Indicators: state.Indicators,
		Macro:      *a.macro.Current(),
		Position:   a.positions.Get(symbol),
		News:       news,
	}

	verdict, err := a.engine.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("consensus for %s: %w", symbol, err)
	}

	a.wl.StoreVerdict(verdict)

	if a.history != nil {
		if err := a.history.StoreVerdict(ctx, verdict); err != nil {
			a.logger.Warn("verdict archive failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}

	if a.alerts != nil {
		ev := &models.AlertEvent{
			Symbol:    symbol,
			Kind:      models.AlertVerdict,
			Reason:    fmt.Sprintf("consensus %s (sentiment %.1f)", verdict.Action, verdict.AvgSentiment),
			Price:     state.Quote.Price,
			Timestamp: verdict.Timestamp,
		}
		if err := a.alerts.Publish(ctx, ev); err != nil {
			a.logger.Warn("verdict alert publish failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}

	a.notifier.Notify(ctx,
		fmt.Sprintf("%s consensus: %s", symbol, verdict.Action),
		fmt.Sprintf("sentiment %.1f, support %.2f, resistance %.2f. %s",
			verdict.AvgSentiment, verdict.AvgSupport, verdict.AvgResistance, verdict.PositionAdvice))

	return verdict, nil
}
