package indicator

import (
	"math"
	"testing"

	"SignalDesk/internal/domain/models"
)

func seq(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRSIStrictlyIncreasing(t *testing.T) {
	for _, n := range []int{15, 30, 80} {
		rsi, ok := RSI(seq(100, 0.5, n), 14)
		if !ok {
			t.Fatalf("n=%d: expected ready", n)
		}
		if rsi != 100 {
			t.Fatalf("n=%d: expected RSI 100, got %v", n, rsi)
		}
	}
}

func TestRSIInsufficientData(t *testing.T) {
	rsi, ok := RSI(seq(100, 1, 14), 14) // 14 points, need 15
	if ok {
		t.Fatalf("expected not ready")
	}
	if rsi != RSINeutral {
		t.Fatalf("expected neutral sentinel, got %v", rsi)
	}
}

func TestRSIStrictlyDecreasing(t *testing.T) {
	rsi, ok := RSI(seq(100, -0.5, 20), 14)
	if !ok {
		t.Fatalf("expected ready")
	}
	if rsi != 0 {
		t.Fatalf("expected RSI 0, got %v", rsi)
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	rsi, ok := RSI(constant(50, 20), 14)
	if !ok || rsi != RSINeutral {
		t.Fatalf("flat series: got rsi=%v ok=%v", rsi, ok)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	for _, period := range []int{1, 5, 12, 26} {
		got := EMA(constant(42.5, 40), period)
		if math.Abs(got-42.5) > 1e-9 {
			t.Fatalf("period=%d: expected 42.5, got %v", period, got)
		}
	}
}

func TestEMAShortSeriesSeedsWithFirstPoint(t *testing.T) {
	got := EMA([]float64{10}, 12)
	if got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestATRConstantSeries(t *testing.T) {
	atr, ok := ATR(constant(99, 20), 14)
	if !ok {
		t.Fatalf("expected ready")
	}
	if atr != 0 {
		t.Fatalf("expected ATR 0, got %v", atr)
	}
}

func TestATRUniformSteps(t *testing.T) {
	atr, ok := ATR(seq(100, 2, 20), 14)
	if !ok {
		t.Fatalf("expected ready")
	}
	if math.Abs(atr-2) > 1e-9 {
		t.Fatalf("expected ATR 2, got %v", atr)
	}
}

func TestATRInsufficientData(t *testing.T) {
	if _, ok := ATR(seq(100, 1, 14), 14); ok {
		t.Fatalf("14 points must not be enough for ATR(14)")
	}
}

func TestMACDRequires26Points(t *testing.T) {
	if _, ok := MACD(seq(100, 1, 25)); ok {
		t.Fatalf("25 points must not be enough")
	}
	m, ok := MACD(seq(100, 1, 26))
	if !ok {
		t.Fatalf("26 points must be enough")
	}
	if m.MACD <= 0 {
		t.Fatalf("rising series should have positive MACD, got %v", m.MACD)
	}
}

func TestMACDConstantSeriesIsZero(t *testing.T) {
	m, ok := MACD(constant(10, 60))
	if !ok {
		t.Fatalf("expected ready")
	}
	if math.Abs(m.MACD) > 1e-9 || math.Abs(m.Signal) > 1e-9 || math.Abs(m.Hist) > 1e-9 {
		t.Fatalf("constant series: expected zeros, got %+v", m)
	}
}

func TestMACDSignalIsTrailingAverage(t *testing.T) {
	prices := seq(100, 0.3, 60)
	m, _ := MACD(prices)
	// signal must be the mean of the MACD line over the last 9 positions
	var sum float64
	for i := len(prices) - 9; i < len(prices); i++ {
		p := prices[:i+1]
		sum += EMA(p, EMAFast) - EMA(p, EMASlow)
	}
	want := sum / 9
	if math.Abs(m.Signal-want) > 1e-9 {
		t.Fatalf("signal %v, want %v", m.Signal, want)
	}
}

func TestRealizedVolatilityConstantSeries(t *testing.T) {
	v, ok := RealizedVolatility(constant(10, 20), VolWindow)
	if !ok || v != 0 {
		t.Fatalf("got v=%v ok=%v", v, ok)
	}
}

func TestRealizedVolatilityNotReady(t *testing.T) {
	if _, ok := RealizedVolatility(seq(10, 1, 5), VolWindow); ok {
		t.Fatalf("expected not ready with short series")
	}
}

func TestSnapshotFlagsInsufficientData(t *testing.T) {
	s := models.NewPriceSeries("AAPL", 100)
	for _, p := range seq(100, 1, 10) {
		s.Append(p)
	}
	snap := Snapshot(s)
	if snap.RSIReady || snap.MACDReady || snap.ATRReady {
		t.Fatalf("short series must not mark indicators ready: %+v", snap)
	}
	if snap.RSI != RSINeutral {
		t.Fatalf("expected neutral RSI sentinel, got %v", snap.RSI)
	}
}

func TestSnapshotFullSeries(t *testing.T) {
	s := models.NewPriceSeries("AAPL", 100)
	for _, p := range seq(100, 0.5, 60) {
		s.Append(p)
	}
	snap := Snapshot(s)
	if !snap.RSIReady || !snap.MACDReady || !snap.ATRReady || !snap.VolReady {
		t.Fatalf("expected all indicators ready: %+v", snap)
	}
	if snap.RSI != 100 {
		t.Fatalf("strictly rising series: expected RSI 100, got %v", snap.RSI)
	}
}

func TestPriceSeriesBounded(t *testing.T) {
	s := models.NewPriceSeries("AAPL", 5)
	for i := 0; i < 8; i++ {
		s.Append(float64(i))
	}
	got := s.Values()
	if len(got) != 5 {
		t.Fatalf("expected 5 points, got %d", len(got))
	}
	if got[0] != 3 || got[4] != 7 {
		t.Fatalf("expected FIFO eviction, got %v", got)
	}
	if s.Last() != 7 {
		t.Fatalf("expected last 7, got %v", s.Last())
	}
}
