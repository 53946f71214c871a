package consensus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/providers"
	applogger "SignalDesk/pkg/logger"
)

type fakeProvider struct {
	name     string
	ready    bool
	response string
	err      error
	calls    atomic.Int32

	// responses, when set, is consumed one entry per call.
	responses []string
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Ready() bool  { return f.ready }

func (f *fakeProvider) Submit(ctx context.Context, prompt string) (string, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) > 0 {
		idx := int(n) - 1
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		return f.responses[idx], nil
	}
	return f.response, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)                          {}
func (nopMetrics) RecordLastPrice(string, float64)            {}
func (nopMetrics) RecordSignal(string, string)                {}
func (nopMetrics) RecordProviderCall(string, string, float64) {}
func (nopMetrics) RecordConsensusRun(string)                  {}
func (nopMetrics) RecordCacheLookup(bool)                     {}
func (nopMetrics) RecordAlert(string)                         {}
func (nopMetrics) RecordError(string)                         {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func verdictJSON(action string, sentiment int) string {
	return fmt.Sprintf(`{"action":%q,"sentiment":%d,"support":100,"resistance":110,"reason":"because"}`, action, sentiment)
}

func newTestEngine(t *testing.T, provs ...domsvc.AnalysisProvider) *Engine {
	t.Helper()
	return NewEngine(provs, 2*time.Second, domsvc.SystemClock{}, nopMetrics{}, testLogger(t))
}

func testRequest() *models.AnalysisRequest {
	return &models.AnalysisRequest{
		Symbol:    "TEST",
		Price:     105,
		ChangePct: 1.2,
		Session:   models.SessionRegular,
	}
}

func TestMajorityWins(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: verdictJSON("BUY", 8)},
		&fakeProvider{name: "b", ready: true, response: verdictJSON("BUY", 6)},
		&fakeProvider{name: "c", ready: true, response: verdictJSON("SELL", 3)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionBuy {
		t.Fatalf("action = %q, want BUY", v.Action)
	}
	want := (8.0 + 6.0 + 3.0) / 3.0
	if v.AvgSentiment != want {
		t.Fatalf("avg sentiment = %v, want %v", v.AvgSentiment, want)
	}
	if len(v.Opinions) != 3 {
		t.Fatalf("opinions = %d, want 3", len(v.Opinions))
	}
}

func TestExactHalfCarries(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: verdictJSON("BUY", 7)},
		&fakeProvider{name: "b", ready: true, response: verdictJSON("BUY", 7)},
		&fakeProvider{name: "c", ready: true, response: verdictJSON("SELL", 4)},
		&fakeProvider{name: "d", ready: true, response: verdictJSON("HOLD", 5)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionBuy {
		t.Fatalf("action = %q, want BUY on exact half", v.Action)
	}
}

func TestTopTieFallsBackToHold(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: verdictJSON("BUY", 8)},
		&fakeProvider{name: "b", ready: true, response: verdictJSON("SELL", 2)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionHold {
		t.Fatalf("action = %q, want HOLD on tie", v.Action)
	}
}

func TestMinorityWinnerFallsBackToHold(t *testing.T) {
	// One BUY out of three successes is under half.
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: verdictJSON("BUY", 8)},
		&fakeProvider{name: "b", ready: true, err: errors.New("boom")},
		&fakeProvider{name: "c", ready: true, err: errors.New("boom")},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Single success carries the whole vote.
	if v.Action != models.ActionBuy {
		t.Fatalf("action = %q, want BUY from sole survivor", v.Action)
	}
}

func TestAllFailedEnumeratesReasons(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, err: errors.New("connection refused")},
		&fakeProvider{name: "b", ready: true, response: "not json at all"},
	)

	_, err := e.Run(context.Background(), testRequest())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"a:", "b:", "transport", "malformed_response"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestUnreadyProvidersSkippedSilently(t *testing.T) {
	skipped := &fakeProvider{name: "nokey", ready: false}
	e := newTestEngine(t,
		skipped,
		&fakeProvider{name: "ok", ready: true, response: verdictJSON("SELL", 3)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionSell {
		t.Fatalf("action = %q, want SELL", v.Action)
	}
	if got := skipped.calls.Load(); got != 0 {
		t.Fatalf("unready provider was called %d times", got)
	}
	if len(v.Opinions) != 1 {
		t.Fatalf("opinions = %d, want 1", len(v.Opinions))
	}
}

func TestNoReadyProvidersIsHardError(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{name: "a", ready: false})

	_, err := e.Run(context.Background(), testRequest())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
}

func TestMalformedResponseRetriedOnce(t *testing.T) {
	p := &fakeProvider{
		name:  "flaky",
		ready: true,
		responses: []string{
			"garbage",
			verdictJSON("HOLD", 5),
		},
	}
	e := newTestEngine(t, p)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionHold {
		t.Fatalf("action = %q, want HOLD", v.Action)
	}
	if got := p.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestClassifyMalformedSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("%w: unexpected token", errMalformed)
	if got := classify(err); got != models.ProviderErrMalformed {
		t.Fatalf("kind = %q, want malformed_response", got)
	}
	wrapped := fmt.Errorf("attempt 2: %w", err)
	if got := classify(wrapped); got != models.ProviderErrMalformed {
		t.Fatalf("kind = %q, want malformed_response through wrapping", got)
	}
}

func TestMidCallAuthFailureDropsOutOfVote(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "revoked", ready: true, err: fmt.Errorf("status 401: %w", providers.ErrAuthMissing)},
		&fakeProvider{name: "ok", ready: true, response: verdictJSON("SELL", 3)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionSell {
		t.Fatalf("action = %q, want SELL", v.Action)
	}
	if len(v.Opinions) != 1 {
		t.Fatalf("opinions = %d, want 1", len(v.Opinions))
	}
}

func TestMidCallAuthFailureNotInFailureTally(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "revoked", ready: true, err: fmt.Errorf("status 403: %w", providers.ErrAuthMissing)},
		&fakeProvider{name: "down", ready: true, err: errors.New("connection refused")},
	)

	_, err := e.Run(context.Background(), testRequest())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "down:") {
		t.Fatalf("error %q missing transport failure", msg)
	}
	if strings.Contains(msg, "revoked") {
		t.Fatalf("error %q should not enumerate the auth-dropped provider", msg)
	}
}

func TestAllAuthFailuresReadAsNoCredentials(t *testing.T) {
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, err: fmt.Errorf("status 401: %w", providers.ErrAuthMissing)},
	)

	_, err := e.Run(context.Background(), testRequest())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no provider has credentials configured") {
		t.Fatalf("error = %q", err)
	}
}

func TestOmittedLevelsSkippedInAverages(t *testing.T) {
	noLevels := `{"action":"BUY","sentiment":7,"reason":"momentum"}`
	withLevels := `{"action":"BUY","sentiment":7,"support":100,"resistance":110,"reason":"levels"}`
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: noLevels},
		&fakeProvider{name: "b", ready: true, response: withLevels},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.AvgSupport != 100 || v.AvgResistance != 110 {
		t.Fatalf("levels = %v/%v, want 100/110", v.AvgSupport, v.AvgResistance)
	}
}

func TestFirstPositionAdviceSurfaces(t *testing.T) {
	withAdvice := `{"action":"SELL","sentiment":3,"support":100,"resistance":110,"reason":"r","position_advice":"trim half"}`
	e := newTestEngine(t,
		&fakeProvider{name: "a", ready: true, response: withAdvice},
		&fakeProvider{name: "b", ready: true, response: verdictJSON("SELL", 4)},
	)

	v, err := e.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.PositionAdvice != "trim half" {
		t.Fatalf("position advice = %q", v.PositionAdvice)
	}
}
