// Package policy turns an indicator snapshot plus market context into a
// deterministic trading stance. Rules are evaluated in order; the first
// matching rule wins.
package policy

import (
	"fmt"

	"SignalDesk/internal/domain/models"
)

// Rule thresholds.
const (
	MinRangePct = 1.5 // intraday range below this is untradeable

	highInRange = 0.75 // position in range above which we look to sell
	lowInRange  = 0.25 // position in range below which we look to buy

	rsiOverbought = 60.0
	rsiOversold   = 40.0

	MacroAvoidPct   = -1.0 // index drop forcing buy signals to avoid
	MacroCautionPct = -0.5 // index drop downgrading buys to caution
	macroSoftenPct  = 1.0  // index rally softening sell signals

	highVolatility = 2.0
)

// Input carries everything a single policy evaluation consumes.
type Input struct {
	Quote      models.Quote
	Indicators models.IndicatorSnapshot
	Macro      *models.MacroSnapshot
	Position   *models.Position // nil when flat
}

// rangePosition returns where the current price sits inside the day's
// high/low band, 0 at the low and 1 at the high, plus the band width as a
// percent of the low.
func rangePosition(q models.Quote) (pos, widthPct float64, ok bool) {
	if q.DayHigh <= q.DayLow || q.DayLow <= 0 {
		return 0, 0, false
	}
	width := q.DayHigh - q.DayLow
	return (q.Price - q.DayLow) / width, width / q.DayLow * 100, true
}

// Evaluate applies the rule chain and returns the winning decision.
func Evaluate(in Input) models.PolicyDecision {
	ind := in.Indicators

	// Not enough history yet: say so rather than guessing.
	if !ind.RSIReady {
		return models.PolicyDecision{
			Label:     models.LabelWarmingUp,
			Rationale: "insufficient price history for indicators",
		}
	}

	pos, widthPct, rangeOK := rangePosition(in.Quote)

	// Rule 1: the day's range is too narrow to trade regardless of
	// where price sits in it.
	if rangeOK && widthPct < MinRangePct {
		return models.PolicyDecision{
			Label:     models.LabelRangeTooNarrow,
			Rationale: fmt.Sprintf("intraday range %.2f%% below %.1f%% minimum", widthPct, MinRangePct),
		}
	}

	indexChg := 0.0
	if in.Macro != nil {
		indexChg = in.Macro.IndexChangePct
	}

	// Rule 2: near the top of the range and overbought.
	if rangeOK && pos >= highInRange && ind.RSI > rsiOverbought {
		if indexChg >= macroSoftenPct {
			// A strongly rising tape argues against fading strength.
			return models.PolicyDecision{
				Label:     models.LabelReduce,
				Rationale: fmt.Sprintf("overbought at range top but index up %.2f%%, trim instead of full exit", indexChg),
			}
		}
		if in.Position != nil && in.Position.Shares > 0 {
			return models.PolicyDecision{
				Label:     models.LabelSellTheRip,
				Rationale: fmt.Sprintf("RSI %.1f overbought at %.0f%% of range with open position", ind.RSI, pos*100),
			}
		}
		return models.PolicyDecision{
			Label:     models.LabelDistribute,
			Rationale: fmt.Sprintf("RSI %.1f overbought at %.0f%% of range", ind.RSI, pos*100),
		}
	}

	// Rule 3: near the bottom of the range and oversold. Macro risk
	// trumps the local setup on the buy side.
	if rangeOK && pos <= lowInRange && ind.RSI < rsiOversold {
		switch {
		case indexChg <= MacroAvoidPct:
			return models.PolicyDecision{
				Label:     models.LabelAvoidMacro,
				Rationale: fmt.Sprintf("oversold setup vetoed, index down %.2f%%", indexChg),
			}
		case indexChg <= MacroCautionPct:
			return models.PolicyDecision{
				Label:     models.LabelCautiousBuy,
				Rationale: fmt.Sprintf("oversold at range bottom but index down %.2f%%, size down", indexChg),
			}
		default:
			return models.PolicyDecision{
				Label:     models.LabelBuyTheDip,
				Rationale: fmt.Sprintf("RSI %.1f oversold at %.0f%% of range", ind.RSI, pos*100),
			}
		}
	}

	// Rule 4: RSI gave no edge, fall back to the volatility read. An
	// active tape near a range extreme still carries information.
	if ind.VolReady && ind.Volatility >= highVolatility && rangeOK {
		if pos <= lowInRange {
			return models.PolicyDecision{
				Label:     models.LabelAccumulate,
				Rationale: fmt.Sprintf("volatility %.2f%% near range bottom, scale in", ind.Volatility),
			}
		}
		if pos >= highInRange {
			return models.PolicyDecision{
				Label:     models.LabelDistribute,
				Rationale: fmt.Sprintf("volatility %.2f%% near range top, scale out", ind.Volatility),
			}
		}
	}

	return models.PolicyDecision{
		Label:     models.LabelObserve,
		Rationale: "no edge at current levels",
	}
}
