package riskmon

import (
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/service/cooldown"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newMonitor(clock *fakeClock) *Monitor {
	return New(DefaultConfig(), cooldown.New(clock), clock)
}

func TestStopLossBreachDuringRegularSession(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}

	out := m.Check("AAPL", 96, models.SessionRegular, pos, models.IndicatorSnapshot{})
	if !out.RequestAnalysis {
		t.Fatal("stop-loss breach should request analysis")
	}
	if len(out.Alerts) != 1 || out.Alerts[0].Kind != models.AlertStopLoss {
		t.Fatalf("alerts = %+v", out.Alerts)
	}
	if out.Alerts[0].PnLPct != -4 {
		t.Fatalf("pnl = %v, want -4", out.Alerts[0].PnLPct)
	}
}

func TestTakeProfitBreach(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}

	out := m.Check("AAPL", 106, models.SessionRegular, pos, models.IndicatorSnapshot{})
	if !out.RequestAnalysis || len(out.Alerts) != 1 || out.Alerts[0].Kind != models.AlertTakeProfit {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestBreachOutsideRegularSessionSuppressed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}

	for _, s := range []models.MarketSession{models.SessionPre, models.SessionPost, models.SessionClosed} {
		out := m.Check("AAPL", 96, s, pos, models.IndicatorSnapshot{})
		if out.RequestAnalysis || len(out.Alerts) != 0 {
			t.Fatalf("session %s: outcome = %+v", s, out)
		}
	}
}

func TestCooldownSuppressesRepeatTrigger(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}

	first := m.Check("AAPL", 96, models.SessionRegular, pos, models.IndicatorSnapshot{})
	if !first.RequestAnalysis {
		t.Fatal("first breach should fire")
	}

	clock.advance(2 * time.Minute)
	second := m.Check("AAPL", 95, models.SessionRegular, pos, models.IndicatorSnapshot{})
	if second.RequestAnalysis || len(second.Alerts) != 0 {
		t.Fatalf("breach inside cooldown fired: %+v", second)
	}

	clock.advance(3 * time.Minute)
	third := m.Check("AAPL", 95, models.SessionRegular, pos, models.IndicatorSnapshot{})
	if !third.RequestAnalysis {
		t.Fatal("breach after cooldown should fire again")
	}
}

func TestVolatilityBreachWithPosition(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}
	ind := models.IndicatorSnapshot{VolReady: true, Volatility: 2.4}

	out := m.Check("AAPL", 101, models.SessionRegular, pos, ind)
	if !out.RequestAnalysis || len(out.Alerts) != 1 || out.Alerts[0].Kind != models.AlertVolatility {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestFlatOnlyElevatedVolatilityAlerts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)

	// Below the elevated bar: nothing, even though an open position
	// would have alerted at this level.
	out := m.Check("AAPL", 100, models.SessionRegular, nil, models.IndicatorSnapshot{VolReady: true, Volatility: 2.4})
	if len(out.Alerts) != 0 {
		t.Fatalf("flat alert below elevated bar: %+v", out)
	}

	out = m.Check("AAPL", 100, models.SessionRegular, nil, models.IndicatorSnapshot{VolReady: true, Volatility: 4.0})
	if len(out.Alerts) != 1 || out.Alerts[0].Kind != models.AlertVolatility {
		t.Fatalf("outcome = %+v", out)
	}
	if out.RequestAnalysis {
		t.Fatal("flat state must never auto-trigger analysis")
	}
}

func TestMultipleBreachesReportedTogether(t *testing.T) {
	clock := &fakeClock{now: time.Unix(50000, 0)}
	m := newMonitor(clock)
	pos := &models.Position{Shares: 100, AvgPrice: 100}
	ind := models.IndicatorSnapshot{VolReady: true, Volatility: 2.4}

	out := m.Check("AAPL", 96, models.SessionRegular, pos, ind)
	if len(out.Alerts) != 2 {
		t.Fatalf("alerts = %d, want stop-loss and volatility", len(out.Alerts))
	}
}
