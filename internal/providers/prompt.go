// Package providers holds the adapters for the external analysis backends
// and the prompt they all share.
package providers

import (
	"fmt"
	"strings"

	"SignalDesk/internal/domain/models"
)

const systemMessage = "You are a disciplined intraday equity analyst. Base every statement strictly on the data provided. Answer with a single JSON object and nothing else."

// BuildPrompt renders one analysis request into the shared prompt. Every
// provider receives the identical text so their verdicts are comparable.
func BuildPrompt(req *models.AnalysisRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluate %s for an intraday trade.\n\n", req.Symbol)
	fmt.Fprintf(&b, "Price: %.2f (%+.2f%% today), session: %s\n", req.Price, req.ChangePct, req.Session)

	ind := req.Indicators
	if ind.RSIReady {
		fmt.Fprintf(&b, "RSI(14): %.1f\n", ind.RSI)
	}
	if ind.MACDReady {
		fmt.Fprintf(&b, "MACD: %.4f, signal: %.4f, histogram: %.4f\n", ind.MACD, ind.MACDSignal, ind.MACDHist)
	}
	if ind.ATRReady {
		fmt.Fprintf(&b, "ATR(14): %.4f\n", ind.ATR)
	}
	if ind.VolReady {
		fmt.Fprintf(&b, "Realized volatility: %.2f%%\n", ind.Volatility)
	}

	fmt.Fprintf(&b, "Broad market: index %+.2f%%, volatility index %.1f, regime %s\n",
		req.Macro.IndexChangePct, req.Macro.VolatilityIndex, req.Macro.Regime)

	if req.Position != nil && req.Position.Shares > 0 {
		fmt.Fprintf(&b, "Open position: %.0f shares at avg %.2f (P&L %+.2f%%)\n",
			req.Position.Shares, req.Position.AvgPrice, req.Position.PnLPct(req.Price))
	} else {
		b.WriteString("No open position.\n")
	}

	if req.News != "" {
		fmt.Fprintf(&b, "\nRecent headlines:\n%s\n", req.News)
	}

	b.WriteString(`
Respond with exactly this JSON shape:
{"action":"BUY|SELL|HOLD","sentiment":<integer 1-10>,"support":<price>,"resistance":<price>,"reason":"<one sentence>","position_advice":"<one sentence, empty string if flat>"}`)

	return b.String()
}
