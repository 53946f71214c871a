// Package riskmon evaluates open positions against stop-loss, take-profit
// and volatility thresholds and decides when a fresh consensus run is
// warranted.
package riskmon

import (
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/service/cooldown"
)

// Config holds the breach thresholds. StopLossPct is negative.
type Config struct {
	StopLossPct      float64
	TakeProfitPct    float64
	VolThreshold     float64 // with an open position
	FlatVolThreshold float64 // elevated bar when flat
	Cooldown         time.Duration
}

func DefaultConfig() Config {
	return Config{
		StopLossPct:      -3.0,
		TakeProfitPct:    5.0,
		VolThreshold:     2.0,
		FlatVolThreshold: 3.5,
		Cooldown:         5 * time.Minute,
	}
}

// Outcome is what one evaluation produced. RequestAnalysis asks the
// caller to schedule a consensus run; alerts are emitted regardless.
type Outcome struct {
	Alerts          []*models.AlertEvent
	RequestAnalysis bool
}

// Monitor is stateless except for the trigger cooldowns.
type Monitor struct {
	cfg   Config
	gate  *cooldown.Gate
	clock domsvc.Clock
}

func New(cfg Config, gate *cooldown.Gate, clock domsvc.Clock) *Monitor {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Monitor{cfg: cfg, gate: gate, clock: clock}
}

// Check evaluates one symbol. With an open position, breaches request
// analysis only during the regular session and after the cooldown. Flat
// symbols get volatility alerts above the elevated bar and never an
// automatic analysis run.
func (m *Monitor) Check(symbol string, price float64, session models.MarketSession, pos *models.Position, ind models.IndicatorSnapshot) Outcome {
	if pos == nil || pos.Shares <= 0 {
		return m.checkFlat(symbol, price, ind)
	}

	pnl := pos.PnLPct(price)
	var breaches []*models.AlertEvent
	now := m.clock.Now()

	if pnl <= m.cfg.StopLossPct {
		breaches = append(breaches, &models.AlertEvent{
			Symbol:    symbol,
			Kind:      models.AlertStopLoss,
			Reason:    fmt.Sprintf("P&L %.2f%% breached stop-loss %.2f%%", pnl, m.cfg.StopLossPct),
			Price:     price,
			PnLPct:    pnl,
			Timestamp: now,
		})
	}
	if pnl >= m.cfg.TakeProfitPct {
		breaches = append(breaches, &models.AlertEvent{
			Symbol:    symbol,
			Kind:      models.AlertTakeProfit,
			Reason:    fmt.Sprintf("P&L %.2f%% reached take-profit %.2f%%", pnl, m.cfg.TakeProfitPct),
			Price:     price,
			PnLPct:    pnl,
			Timestamp: now,
		})
	}
	if ind.VolReady && ind.Volatility >= m.cfg.VolThreshold {
		breaches = append(breaches, &models.AlertEvent{
			Symbol:    symbol,
			Kind:      models.AlertVolatility,
			Reason:    fmt.Sprintf("realized volatility %.2f%% above %.2f%% with open position", ind.Volatility, m.cfg.VolThreshold),
			Price:     price,
			PnLPct:    pnl,
			Timestamp: now,
		})
	}

	if len(breaches) == 0 {
		return Outcome{}
	}
	if session != models.SessionRegular {
		return Outcome{}
	}
	if !m.gate.Allow(symbol+"/risk", m.cfg.Cooldown) {
		return Outcome{}
	}
	return Outcome{Alerts: breaches, RequestAnalysis: true}
}

func (m *Monitor) checkFlat(symbol string, price float64, ind models.IndicatorSnapshot) Outcome {
	if !ind.VolReady || ind.Volatility < m.cfg.FlatVolThreshold {
		return Outcome{}
	}
	if !m.gate.Allow(symbol+"/flatvol", m.cfg.Cooldown) {
		return Outcome{}
	}
	return Outcome{Alerts: []*models.AlertEvent{{
		Symbol:    symbol,
		Kind:      models.AlertVolatility,
		Reason:    fmt.Sprintf("realized volatility %.2f%% above %.2f%%", ind.Volatility, m.cfg.FlatVolThreshold),
		Price:     price,
		Timestamp: m.clock.Now(),
	}}}
}
