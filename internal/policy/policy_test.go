package policy

import (
	"testing"

	"SignalDesk/internal/domain/models"
)

func baseInput() Input {
	return Input{
		Quote: models.Quote{
			Symbol:  "TEST",
			Price:   102,
			DayHigh: 104,
			DayLow:  100,
		},
		Indicators: models.IndicatorSnapshot{
			RSI:      50,
			RSIReady: true,
		},
		Macro: &models.MacroSnapshot{Regime: models.RegimeNormal},
	}
}

func TestWarmingUpBeforeIndicatorsReady(t *testing.T) {
	in := baseInput()
	in.Indicators.RSIReady = false

	got := Evaluate(in)
	if got.Label != models.LabelWarmingUp {
		t.Fatalf("expected %q, got %q", models.LabelWarmingUp, got.Label)
	}
}

func TestNarrowRangeWinsRegardlessOfSetup(t *testing.T) {
	in := baseInput()
	// 1.0% range, below the 1.5% minimum.
	in.Quote.DayLow = 100
	in.Quote.DayHigh = 101
	in.Quote.Price = 100.9
	// Would otherwise be a textbook sell setup.
	in.Indicators.RSI = 80
	in.Position = &models.Position{Shares: 100, AvgPrice: 95}

	got := Evaluate(in)
	if got.Label != models.LabelRangeTooNarrow {
		t.Fatalf("expected %q, got %q (%s)", models.LabelRangeTooNarrow, got.Label, got.Rationale)
	}
}

func TestSellTheRipWithPosition(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 103.5 // ~88% of range
	in.Indicators.RSI = 65
	in.Position = &models.Position{Shares: 50, AvgPrice: 98}

	got := Evaluate(in)
	if got.Label != models.LabelSellTheRip {
		t.Fatalf("expected %q, got %q (%s)", models.LabelSellTheRip, got.Label, got.Rationale)
	}
}

func TestRisingIndexSoftensSell(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 103.5 // ~88% of range
	in.Indicators.RSI = 65
	in.Position = &models.Position{Shares: 50, AvgPrice: 98}
	in.Macro.IndexChangePct = 1.5

	got := Evaluate(in)
	if got.Label != models.LabelReduce {
		t.Fatalf("expected %q, got %q (%s)", models.LabelReduce, got.Label, got.Rationale)
	}
}

func TestDistributeWhenFlat(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 103.5
	in.Indicators.RSI = 65

	got := Evaluate(in)
	if got.Label != models.LabelDistribute {
		t.Fatalf("expected %q, got %q", models.LabelDistribute, got.Label)
	}
}

func TestBuyTheDip(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 100.5 // 12.5% of range
	in.Indicators.RSI = 32

	got := Evaluate(in)
	if got.Label != models.LabelBuyTheDip {
		t.Fatalf("expected %q, got %q (%s)", models.LabelBuyTheDip, got.Label, got.Rationale)
	}
}

func TestFallingIndexVetoesBuy(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 100.5
	in.Indicators.RSI = 32
	in.Macro.IndexChangePct = -1.2

	got := Evaluate(in)
	if got.Label != models.LabelAvoidMacro {
		t.Fatalf("expected %q, got %q (%s)", models.LabelAvoidMacro, got.Label, got.Rationale)
	}
}

func TestModerateIndexDropDowngradesBuy(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 100.5
	in.Indicators.RSI = 32
	in.Macro.IndexChangePct = -0.7

	got := Evaluate(in)
	if got.Label != models.LabelCautiousBuy {
		t.Fatalf("expected %q, got %q (%s)", models.LabelCautiousBuy, got.Label, got.Rationale)
	}
}

func TestHighVolatilityMidRangeObserves(t *testing.T) {
	in := baseInput()
	in.Indicators.VolReady = true
	in.Indicators.Volatility = 3.1

	got := Evaluate(in)
	if got.Label != models.LabelObserve {
		t.Fatalf("expected %q, got %q", models.LabelObserve, got.Label)
	}
}

func TestHighVolatilityAtRangeBottomAccumulates(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 100.4 // 10% of range, RSI neutral so rule 3 passes over
	in.Indicators.RSI = 50
	in.Indicators.VolReady = true
	in.Indicators.Volatility = 2.5

	got := Evaluate(in)
	if got.Label != models.LabelAccumulate {
		t.Fatalf("expected %q, got %q (%s)", models.LabelAccumulate, got.Label, got.Rationale)
	}
}

func TestHighVolatilityAtRangeTopDistributes(t *testing.T) {
	in := baseInput()
	in.Quote.Price = 103.6 // 90% of range, RSI neutral so rule 2 passes over
	in.Indicators.RSI = 50
	in.Indicators.VolReady = true
	in.Indicators.Volatility = 2.5

	got := Evaluate(in)
	if got.Label != models.LabelDistribute {
		t.Fatalf("expected %q, got %q (%s)", models.LabelDistribute, got.Label, got.Rationale)
	}
}

func TestNilMacroTreatedAsFlatIndex(t *testing.T) {
	in := baseInput()
	in.Macro = nil
	in.Quote.Price = 100.5
	in.Indicators.RSI = 32

	got := Evaluate(in)
	if got.Label != models.LabelBuyTheDip {
		t.Fatalf("expected %q, got %q", models.LabelBuyTheDip, got.Label)
	}
}
