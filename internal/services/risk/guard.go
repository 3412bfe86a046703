package risk

import (
	"fmt"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/pkg/config"
)

// Candidate is the adjusted trade proposal evaluated by the guard.
type Candidate struct {
	Symbol          string
	Direction       models.Direction
	Notional        float64
	TakeProfitPct   float64 // defaulted when zero
	StopLossPct     float64 // defaulted when zero
	ReducesExposure bool    // exit/close of an existing position
}

// Guard enforces the layered risk policy. Layers run in a fixed order and
// the first violation wins; a nil result means the candidate passed.
type Guard struct {
	limits *LimitState
	kill   service.KillSwitch

	maxPositionNotional  float64
	maxPortfolioLeverage float64
	dailyLossLimit       float64
	defaultTPPct         float64
	defaultSLPct         float64
}

func NewGuard(cfg *config.Config, limits *LimitState, kill service.KillSwitch) *Guard {
	return &Guard{
		limits:               limits,
		kill:                 kill,
		maxPositionNotional:  cfg.Risk.MaxPositionNotional,
		maxPortfolioLeverage: cfg.Risk.MaxPortfolioLeverage,
		dailyLossLimit:       cfg.Risk.DailyLossLimit,
		defaultTPPct:         cfg.Risk.DefaultTakeProfitPct,
		defaultSLPct:         cfg.Risk.DefaultStopLossPct,
	}
}

// ApplyDefaults fills missing take-profit/stop-loss levels on the candidate
// and reports which defaults were applied.
func (g *Guard) ApplyDefaults(c *Candidate) []string {
	var applied []string
	if c.TakeProfitPct == 0 {
		c.TakeProfitPct = g.defaultTPPct
		applied = append(applied, "default_take_profit")
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = g.defaultSLPct
		applied = append(applied, "default_stop_loss")
	}
	return applied
}

// Evaluate runs the four limit layers in order: position, portfolio, daily,
// system. Correlation risk is computed upstream and passed in; it belongs to
// the portfolio layer. Exits are exempt from the daily layer so a breached
// day can still be flattened.
func (g *Guard) Evaluate(c Candidate, snapshot models.PortfolioSnapshot, corr models.CorrelationRisk) *models.RiskViolation {
	// Layer 1: position
	if g.maxPositionNotional > 0 && c.Notional > g.maxPositionNotional {
		return &models.RiskViolation{
			Layer:     models.LayerPosition,
			Code:      "max_position_size",
			Threshold: g.maxPositionNotional,
			Observed:  c.Notional,
			Message:   fmt.Sprintf("notional %.2f exceeds max single-position size %.2f", c.Notional, g.maxPositionNotional),
		}
	}

	// Layer 2: portfolio
	if snapshot.TotalCapital > 0 {
		exposure := snapshot.TotalExposure()
		if c.ReducesExposure {
			exposure -= c.Notional
			if exposure < 0 {
				exposure = 0
			}
		} else {
			exposure += c.Notional
		}
		leverage := exposure / snapshot.TotalCapital
		if leverage > g.maxPortfolioLeverage {
			return &models.RiskViolation{
				Layer:     models.LayerPortfolio,
				Code:      "max_leverage",
				Threshold: g.maxPortfolioLeverage,
				Observed:  leverage,
				Message:   fmt.Sprintf("portfolio leverage %.2fx would exceed limit %.2fx", leverage, g.maxPortfolioLeverage),
			}
		}
	}
	if !c.ReducesExposure && !corr.Safe {
		return &models.RiskViolation{
			Layer:    models.LayerPortfolio,
			Code:     "correlation_" + string(corr.Level),
			Observed: corr.SizeAdjustment,
			Message:  "correlation risk unsafe: " + corr.Explanation,
		}
	}

	// Layer 3: daily
	if !c.ReducesExposure && g.dailyLossLimit > 0 {
		if g.limits.DailyBreached() {
			return g.dailyViolation(g.limits.RealizedLoss())
		}
		// the local counter and the portfolio's reported daily PnL track
		// the same closed trades from different sources; take whichever
		// saw more so neither feed is required and none is double-counted
		loss := g.limits.RealizedLoss()
		if reported := -snapshot.DailyRealizedPnL; reported > loss {
			loss = reported
		}
		if unreal := snapshot.TotalUnrealizedPnL(); unreal < 0 {
			loss -= unreal
		}
		if loss > g.dailyLossLimit {
			g.limits.MarkDailyBreached()
			return g.dailyViolation(loss)
		}
	}

	// Layer 4: system kill switch, unconditional
	if g.kill.Active() {
		return &models.RiskViolation{
			Layer:   models.LayerSystem,
			Code:    "kill_switch",
			Message: "kill switch active: " + g.kill.Reason(),
		}
	}

	return nil
}

func (g *Guard) dailyViolation(loss float64) *models.RiskViolation {
	return &models.RiskViolation{
		Layer:     models.LayerDaily,
		Code:      "daily_loss_limit",
		Threshold: g.dailyLossLimit,
		Observed:  loss,
		Message:   fmt.Sprintf("daily loss %.2f breached limit %.2f, new entries blocked until rollover", loss, g.dailyLossLimit),
	}
}
