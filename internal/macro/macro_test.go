package macro

import (
	"context"
	"errors"
	"testing"

	"SignalDesk/internal/domain/models"
	applogger "SignalDesk/pkg/logger"
)

type fakeSource struct {
	quotes map[string]*models.Quote
	fail   map[string]bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) LatestQuote(_ context.Context, symbol string) (*models.Quote, error) {
	if f.fail[symbol] {
		return nil, errors.New("fetch failed")
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return q, nil
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestHolderNeverNil(t *testing.T) {
	h := NewHolder()
	cur := h.Current()
	if cur == nil {
		t.Fatal("Current returned nil")
	}
	if cur.Regime != models.RegimeNormal {
		t.Fatalf("initial regime = %q, want %q", cur.Regime, models.RegimeNormal)
	}
}

func TestClassifyRegime(t *testing.T) {
	cases := []struct {
		vol  float64
		want models.MacroRegime
	}{
		{0, models.RegimeNormal},
		{12.5, models.RegimeCalm},
		{15, models.RegimeNormal},
		{20, models.RegimeNormal},
		{25, models.RegimeNormal},
		{30, models.RegimeTurbulent},
	}
	for _, tc := range cases {
		if got := ClassifyRegime(tc.vol); got != tc.want {
			t.Errorf("ClassifyRegime(%v) = %q, want %q", tc.vol, got, tc.want)
		}
	}
}

func TestRefreshUpdatesSnapshot(t *testing.T) {
	src := &fakeSource{quotes: map[string]*models.Quote{
		"SPY": {Symbol: "SPY", Price: 500, ChangePct: -1.2},
		"VIX": {Symbol: "VIX", Price: 28},
	}}
	h := NewHolder()
	r := NewRefresher(h, src, "SPY", "VIX", 0, testLogger(t))

	r.refresh(context.Background())

	cur := h.Current()
	if cur.IndexChangePct != -1.2 {
		t.Fatalf("IndexChangePct = %v, want -1.2", cur.IndexChangePct)
	}
	if cur.VolatilityIndex != 28 {
		t.Fatalf("VolatilityIndex = %v, want 28", cur.VolatilityIndex)
	}
	if cur.Regime != models.RegimeTurbulent {
		t.Fatalf("Regime = %q, want turbulent", cur.Regime)
	}
	if cur.Timestamp.IsZero() {
		t.Fatal("Timestamp not set")
	}
}

func TestFetchFailureKeepsPreviousValues(t *testing.T) {
	src := &fakeSource{quotes: map[string]*models.Quote{
		"SPY": {Symbol: "SPY", Price: 500, ChangePct: 0.4},
		"VIX": {Symbol: "VIX", Price: 14},
	}, fail: map[string]bool{}}
	h := NewHolder()
	r := NewRefresher(h, src, "SPY", "VIX", 0, testLogger(t))

	r.refresh(context.Background())

	src.fail["SPY"] = true
	src.quotes["VIX"].Price = 30
	r.refresh(context.Background())

	cur := h.Current()
	if cur.IndexChangePct != 0.4 {
		t.Fatalf("IndexChangePct = %v, want previous 0.4", cur.IndexChangePct)
	}
	if cur.VolatilityIndex != 30 {
		t.Fatalf("VolatilityIndex = %v, want refreshed 30", cur.VolatilityIndex)
	}
}
