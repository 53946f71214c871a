package usecase

import (
	"context"
	"errors"
	"fmt"

	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/queue"
)

const analysisMsgType = "analysis.run"

// AnalysisScheduler requests a consensus run for a symbol. The tick loop
// never runs analysis inline; it hands the request off and keeps ticking.
type AnalysisScheduler interface {
	Schedule(ctx context.Context, symbol, trigger string) error
}

// AnalysisRequestPayload is the queued job payload.
type AnalysisRequestPayload struct {
	Symbol  string `json:"symbol"`
	Trigger string `json:"trigger"`
}

// QueueScheduler enqueues analysis requests onto the shared job queue, so
// runs survive restarts and are drained by queue workers.
type QueueScheduler struct {
	q queue.QueueService
}

func NewQueueScheduler(q queue.QueueService) *QueueScheduler {
	return &QueueScheduler{q: q}
}

func (s *QueueScheduler) Schedule(ctx context.Context, symbol, trigger string) error {
	return s.q.PublishMessage(ctx, analysisMsgType, AnalysisRequestPayload{Symbol: symbol, Trigger: trigger})
}

// InlineScheduler runs the analysis in a detached goroutine. Used when no
// queue backend is configured. The analyzer is bound after construction
// because it depends on the tick loop, which holds the scheduler.
type InlineScheduler struct {
	analyzer *Analyzer
	logger   *applogger.Logger
}

func NewInlineScheduler(logger *applogger.Logger) *InlineScheduler {
	return &InlineScheduler{logger: logger}
}

// Bind attaches the analyzer once it exists.
func (s *InlineScheduler) Bind(a *Analyzer) { s.analyzer = a }

func (s *InlineScheduler) Schedule(ctx context.Context, symbol, trigger string) error {
	if s.analyzer == nil {
		return nil
	}
	go func() {
		if _, err := s.analyzer.Analyze(context.WithoutCancel(ctx), symbol, trigger); err != nil {
			s.logger.Warn("inline analysis failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}()
	return nil
}

// AnalysisJob drains queued analysis requests through the Analyzer.
type AnalysisJob struct {
	analyzer *Analyzer
}

func NewAnalysisJob(analyzer *Analyzer) *AnalysisJob {
	return &AnalysisJob{analyzer: analyzer}
}

func (j *AnalysisJob) Name() string { return "analysis-runner" }
func (j *AnalysisJob) Type() string { return analysisMsgType }

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[AnalysisRequestPayload](payload)
	if err != nil {
		return fmt.Errorf("parse analysis payload: %w", err)
	}
	_, err = j.analyzer.Analyze(ctx, p.Symbol, p.Trigger)
	if errors.Is(err, ErrAnalysisCoolingDown) {
		return nil // drop silently, a newer trigger already ran
	}
	return err
}

var _ queue.Job = (*AnalysisJob)(nil)
