// Package consensus fans one analysis request out to every configured
// provider, collects their verdicts, and settles a majority vote.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/providers"
	applogger "SignalDesk/pkg/logger"
)

const (
	DefaultProviderTimeout = 12 * time.Second
	retryAttempts          = 1
)

// ErrAllProvidersFailed is returned when no provider produced a usable
// verdict. The message enumerates the per-provider reasons.
var ErrAllProvidersFailed = errors.New("all providers failed")

// errMalformed wraps a verdict decode failure so classify can tell it
// apart from transport errors.
var errMalformed = errors.New("malformed provider response")

// Engine runs the fan-out and the vote. Safe for concurrent use.
type Engine struct {
	providers []domsvc.AnalysisProvider
	timeout   time.Duration
	clock     domsvc.Clock
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewEngine(provs []domsvc.AnalysisProvider, timeout time.Duration, clock domsvc.Clock, m domrepo.Metrics, l *applogger.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Engine{
		providers: provs,
		timeout:   timeout,
		clock:     clock,
		metrics:   m,
		logger:    l,
	}
}

// Run queries every ready provider concurrently and settles the vote.
// Providers without credentials are skipped and do not count as failures;
// zero usable verdicts is a hard error.
func (e *Engine) Run(ctx context.Context, req *models.AnalysisRequest) (*models.ConsensusVerdict, error) {
	prompt := providers.BuildPrompt(req)

	ready := make([]domsvc.AnalysisProvider, 0, len(e.providers))
	for _, p := range e.providers {
		if p.Ready() {
			ready = append(ready, p)
		} else {
			e.logger.Debug("provider skipped, not configured",
				applogger.String("provider", p.Name()))
		}
	}
	if len(ready) == 0 {
		e.metrics.RecordConsensusRun("no_providers")
		return nil, fmt.Errorf("%w: no provider has credentials configured", ErrAllProvidersFailed)
	}

	ch := make(chan models.ProviderResult, len(ready))
	var wg sync.WaitGroup
	for _, p := range ready {
		wg.Add(1)
		go func(p domsvc.AnalysisProvider) {
			defer wg.Done()
			ch <- e.query(ctx, p, prompt)
		}(p)
	}
	go func() { wg.Wait(); close(ch) }()

	// Arrival order, not launch order: opinions read in the order the
	// providers answered.
	results := make([]models.ProviderResult, 0, len(ready))
	for r := range ch {
		results = append(results, r)
	}

	return e.settle(req.Symbol, results)
}

// query runs one provider call with a per-call timeout and a single retry.
// Retrying a dead key is pointless, so auth failures are not retried.
func (e *Engine) query(ctx context.Context, p domsvc.AnalysisProvider, prompt string) models.ProviderResult {
	var lastErr error
	start := e.clock.Now()
	for attempt := 0; attempt <= retryAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		raw, err := p.Submit(callCtx, prompt)
		cancel()
		if err != nil {
			lastErr = err
			if classify(err) == models.ProviderErrAuthMissing {
				break
			}
			continue
		}

		verdict, err := DecodeVerdict(raw)
		if err != nil {
			// A garbled payload is worth one more try.
			lastErr = fmt.Errorf("%w: %v", errMalformed, err)
			continue
		}

		latency := e.clock.Now().Sub(start)
		e.metrics.RecordProviderCall(p.Name(), "ok", latency.Seconds())
		return models.ProviderResult{
			Provider: p.Name(),
			OK:       true,
			Verdict:  *verdict,
			Latency:  latency,
		}
	}

	latency := e.clock.Now().Sub(start)
	kind := classify(lastErr)
	e.metrics.RecordProviderCall(p.Name(), string(kind), latency.Seconds())
	e.logger.Warn("provider call failed",
		applogger.String("provider", p.Name()),
		applogger.String("kind", string(kind)),
		applogger.Error(lastErr))
	return models.ProviderResult{
		Provider: p.Name(),
		ErrKind:  kind,
		ErrMsg:   lastErr.Error(),
		Latency:  latency,
	}
}

func classify(err error) models.ProviderErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return models.ProviderErrTimeout
	case errors.Is(err, providers.ErrAuthMissing):
		return models.ProviderErrAuthMissing
	case errors.Is(err, errMalformed):
		return models.ProviderErrMalformed
	default:
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return models.ProviderErrTimeout
		}
		return models.ProviderErrTransport
	}
}

// settle counts the votes. The winning action must carry at least half of
// the successful verdicts; an exact half is enough, a tie between actions
// at the top is not and falls back to HOLD.
func (e *Engine) settle(symbol string, results []models.ProviderResult) (*models.ConsensusVerdict, error) {
	var (
		ok       []models.ProviderResult
		failures []string
	)
	for _, r := range results {
		switch {
		case r.OK:
			ok = append(ok, r)
		case r.ErrKind == models.ProviderErrAuthMissing:
			// A provider whose key died mid-call drops out the same way an
			// unconfigured one does: no vote, no failure tally.
		default:
			failures = append(failures, fmt.Sprintf("%s: %s (%s)", r.Provider, r.ErrKind, r.ErrMsg))
		}
	}

	if len(ok) == 0 {
		e.metrics.RecordConsensusRun("all_failed")
		if len(failures) == 0 {
			return nil, fmt.Errorf("%w: no provider has credentials configured", ErrAllProvidersFailed)
		}
		sort.Strings(failures)
		return nil, fmt.Errorf("%w: %s", ErrAllProvidersFailed, strings.Join(failures, "; "))
	}

	votes := map[models.Action]int{}
	var sumSentiment, sumSupport, sumResistance float64
	var nSupport, nResistance int
	var positionAdvice string
	opinions := make([]models.ProviderOpinion, 0, len(ok))
	for _, r := range ok {
		votes[r.Verdict.Action]++
		sumSentiment += float64(r.Verdict.Sentiment)
		// Providers that omit a level are left out of its average.
		if r.Verdict.Support > 0 {
			sumSupport += r.Verdict.Support
			nSupport++
		}
		if r.Verdict.Resistance > 0 {
			sumResistance += r.Verdict.Resistance
			nResistance++
		}
		if positionAdvice == "" && r.Verdict.PositionAdvice != "" {
			positionAdvice = r.Verdict.PositionAdvice
		}
		opinions = append(opinions, models.ProviderOpinion{
			Provider: r.Provider,
			Action:   r.Verdict.Action,
			Reason:   r.Verdict.Reason,
		})
	}

	v := &models.ConsensusVerdict{
		Symbol:         symbol,
		Action:         winner(votes, len(ok)),
		AvgSentiment:   sumSentiment / float64(len(ok)),
		PositionAdvice: positionAdvice,
		Opinions:       opinions,
		Timestamp:      e.clock.Now(),
	}
	if nSupport > 0 {
		v.AvgSupport = sumSupport / float64(nSupport)
	}
	if nResistance > 0 {
		v.AvgResistance = sumResistance / float64(nResistance)
	}

	e.metrics.RecordConsensusRun("ok")
	return v, nil
}

func winner(votes map[models.Action]int, successes int) models.Action {
	best := models.ActionHold
	bestN := 0
	tied := false
	for _, a := range []models.Action{models.ActionBuy, models.ActionSell, models.ActionHold} {
		switch n := votes[a]; {
		case n > bestN:
			best, bestN, tied = a, n, false
		case n == bestN && n > 0:
			tied = true
		}
	}
	// An exact half carries; a split top does not.
	if tied || bestN*2 < successes {
		return models.ActionHold
	}
	return best
}
