package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/riskmon"
	"SignalDesk/internal/service/cooldown"
	"SignalDesk/internal/watchlist"
	applogger "SignalDesk/pkg/logger"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeSource struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	err    error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	cp := *q
	return &cp, nil
}

type fakeAlerts struct {
	mu     sync.Mutex
	events []*models.AlertEvent
}

func (a *fakeAlerts) Publish(ctx context.Context, ev *models.AlertEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *fakeAlerts) Close() error { return nil }

type fakeTicks struct {
	mu   sync.Mutex
	recs []*models.TickRecord
}

func (t *fakeTicks) PublishTick(ctx context.Context, rec *models.TickRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recs = append(t.recs, rec)
	return nil
}

func (t *fakeTicks) Close() error { return nil }

type fakeScheduler struct {
	mu      sync.Mutex
	symbols []string
}

func (s *fakeScheduler) Schedule(ctx context.Context, symbol, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append(s.symbols, symbol)
	return nil
}

type fakeSettings struct {
	mu sync.Mutex
	m  map[string]interface{}
}

func (s *fakeSettings) Get(ctx context.Context, key string, dest interface{}) error {
	return fmt.Errorf("not found")
}

func (s *fakeSettings) Set(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]interface{})
	}
	s.m[key] = value
	return nil
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

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// regularHours returns a wall time inside the regular session so the
// classifier lands on REG without a hint.
func regularHours() time.Time {
	loc, _ := time.LoadLocation("America/New_York")
	return time.Date(2026, time.September, 2, 10, 30, 0, 0, loc) // Wednesday
}

func newTestLoop(t *testing.T, src *fakeSource) (*TickLoop, *fakeAlerts, *fakeTicks, *fakeScheduler, *watchlist.Cache, *PositionBook) {
	t.Helper()
	clock := &fakeClock{now: regularHours()}
	gate := cooldown.New(clock)
	wl := watchlist.NewCache(15*time.Minute, clock, nopMetrics{})
	monitor := riskmon.New(riskmon.DefaultConfig(), cooldown.New(clock), clock)
	holder := macro.NewHolder()
	positions := NewPositionBook(&fakeSettings{})
	alerts := &fakeAlerts{}
	ticks := &fakeTicks{}
	sched := &fakeScheduler{}

	loop := NewTickLoop(src, holder, wl, monitor, positions, alerts, ticks, nopNotifier{}, sched, gate, nopMetrics{}, testLogger(t), clock, time.Second, 50)
	return loop, alerts, ticks, sched, wl, positions
}

func TestTickEvaluatesAndPublishes(t *testing.T) {
	src := &fakeSource{quotes: map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 190, DayHigh: 192, DayLow: 188, ChangePct: 0.5},
	}}
	loop, _, ticks, _, wl, _ := newTestLoop(t, src)

	slot := &symbolSlot{series: models.NewPriceSeries("AAPL", 50)}
	loop.slots["AAPL"] = slot
	loop.wl.Track("AAPL")
	loop.tick(context.Background(), "AAPL", slot)

	state, ok := loop.StateFor("AAPL")
	if !ok {
		t.Fatal("state missing after tick")
	}
	if state.Session != models.SessionRegular {
		t.Fatalf("session = %q, want REG", state.Session)
	}
	// One price point: indicators not ready, policy reports warm-up.
	if state.Policy.Label != models.LabelWarmingUp {
		t.Fatalf("label = %q", state.Policy.Label)
	}

	entries := wl.Snapshot()
	if len(entries) != 1 || entries[0].LastPrice != 190 {
		t.Fatalf("watchlist = %+v", entries)
	}
	if len(ticks.recs) != 1 || ticks.recs[0].Symbol != "AAPL" {
		t.Fatalf("tick records = %+v", ticks.recs)
	}
}

func TestQuoteFailureSkipsCycle(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("upstream down")}
	loop, _, ticks, _, _, _ := newTestLoop(t, src)

	slot := &symbolSlot{series: models.NewPriceSeries("AAPL", 50)}
	loop.slots["AAPL"] = slot
	loop.tick(context.Background(), "AAPL", slot)

	if _, ok := loop.StateFor("AAPL"); ok {
		t.Fatal("state should be absent after failed quote")
	}
	if len(ticks.recs) != 0 {
		t.Fatal("no tick record should be published on failure")
	}
}

func TestBreachSchedulesAnalysisAndAlerts(t *testing.T) {
	src := &fakeSource{quotes: map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 95, DayHigh: 101, DayLow: 94, ChangePct: -5},
	}}
	loop, alerts, _, sched, _, positions := newTestLoop(t, src)

	// -5% against a 100 average breaches the -3% stop.
	if err := positions.Set(context.Background(), "AAPL", &models.Position{Shares: 100, AvgPrice: 100}); err != nil {
		t.Fatalf("set position: %v", err)
	}

	slot := &symbolSlot{series: models.NewPriceSeries("AAPL", 50)}
	loop.slots["AAPL"] = slot
	loop.tick(context.Background(), "AAPL", slot)

	if len(alerts.events) != 1 || alerts.events[0].Kind != models.AlertStopLoss {
		t.Fatalf("alerts = %+v", alerts.events)
	}
	if len(sched.symbols) != 1 || sched.symbols[0] != "AAPL" {
		t.Fatalf("scheduled = %v", sched.symbols)
	}
}
