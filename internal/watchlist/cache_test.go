package watchlist

import (
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)                          {}
func (nopMetrics) RecordLastPrice(string, float64)            {}
func (nopMetrics) RecordSignal(string, string)                {}
func (nopMetrics) RecordProviderCall(string, string, float64) {}
func (nopMetrics) RecordConsensusRun(string)                  {}
func (nopMetrics) RecordCacheLookup(bool)                     {}
func (nopMetrics) RecordAlert(string)                         {}
func (nopMetrics) RecordError(string)                         {}

func verdictAt(symbol string, action models.Action, at time.Time) *models.ConsensusVerdict {
	return &models.ConsensusVerdict{Symbol: symbol, Action: action, Timestamp: at}
}

func TestFreshVerdictWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionBuy, clock.now))
	clock.advance(14 * time.Minute)

	v, ok := c.FreshVerdict("AAPL")
	if !ok {
		t.Fatal("verdict at 14m should be fresh")
	}
	if v.Action != models.ActionBuy {
		t.Fatalf("action = %q", v.Action)
	}
}

func TestVerdictExpiresAtWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionBuy, clock.now))
	clock.advance(15 * time.Minute)

	if _, ok := c.FreshVerdict("AAPL"); ok {
		t.Fatal("verdict at exactly 15m should be stale")
	}
}

func TestDecideFallsBackToPolicyWhenStale(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionBuy, clock.now))
	clock.advance(20 * time.Minute)

	pol := models.PolicyDecision{Label: models.LabelObserve, Rationale: "no edge"}
	d := c.Decide("AAPL", pol, &models.MacroSnapshot{})
	if d.FromCache {
		t.Fatal("stale verdict should not be served")
	}
	if d.Policy.Label != models.LabelObserve {
		t.Fatalf("policy label = %q", d.Policy.Label)
	}
}

func TestMacroOverrideSuppressesCachedBuy(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionBuy, clock.now))
	clock.advance(5 * time.Minute)

	d := c.Decide("AAPL", models.PolicyDecision{}, &models.MacroSnapshot{IndexChangePct: -1.4})
	if !d.FromCache || !d.Overridden {
		t.Fatalf("expected overridden cached decision, got %+v", d)
	}
	if d.Caution {
		t.Fatal("hard override should not also flag caution")
	}
}

func TestMacroCautionDowngradesCachedBuy(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionBuy, clock.now))
	clock.advance(time.Minute)

	d := c.Decide("AAPL", models.PolicyDecision{}, &models.MacroSnapshot{IndexChangePct: -0.7})
	if !d.FromCache {
		t.Fatalf("expected cached decision, got %+v", d)
	}
	if d.Overridden {
		t.Fatal("index down 0.7% should downgrade, not suppress")
	}
	if !d.Caution || d.Note == "" {
		t.Fatalf("expected caution downgrade with note, got %+v", d)
	}
}

func TestMacroOverrideLeavesSellAlone(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.StoreVerdict(verdictAt("AAPL", models.ActionSell, clock.now))

	d := c.Decide("AAPL", models.PolicyDecision{}, &models.MacroSnapshot{IndexChangePct: -2})
	if d.Overridden {
		t.Fatal("cached SELL should not be overridden by a falling index")
	}
}

func TestSnapshotIsSortedAndCopied(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.UpdateQuote("TSLA", 250, 1.1, 0.8)
	c.UpdateQuote("AAPL", 180, -0.4, 0.3)

	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].Symbol != "AAPL" || snap[1].Symbol != "TSLA" {
		t.Fatalf("snapshot order wrong: %+v", snap)
	}

	snap[0].LastPrice = 0
	again := c.Snapshot()
	if again[0].LastPrice != 180 {
		t.Fatal("snapshot must not alias cache state")
	}
}

func TestTrackRegistersEmptyEntry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10000, 0)}
	c := NewCache(15*time.Minute, clock, nopMetrics{})

	c.Track("NVDA")
	syms := c.Symbols()
	if len(syms) != 1 || syms[0] != "NVDA" {
		t.Fatalf("symbols = %v", syms)
	}
}
