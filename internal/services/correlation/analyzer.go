package correlation

import (
	"fmt"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
)

// Analyzer evaluates a proposed position against the existing open-position
// set for directional and per-symbol concentration. It never mutates the
// snapshot it is given.
type Analyzer struct {
	maxDirectional float64 // fraction of total capital allowed same-direction
	symbolCap      float64 // fraction of total capital allowed per symbol
	mediumRatio    float64
	highRatio      float64
}

func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		maxDirectional: cfg.Correlation.MaxDirectionalExposure,
		symbolCap:      cfg.Correlation.SymbolCap,
		mediumRatio:    cfg.Correlation.MediumRatio,
		highRatio:      cfg.Correlation.HighRatio,
	}
}

// Analyze grades the concentration risk of adding the proposed trade to the
// portfolio. Risk escalates monotonically with both the directional-exposure
// ratio and the symbol concentration ratio; the worse of the two decides.
func (a *Analyzer) Analyze(symbol string, side models.Direction, notional float64, snapshot models.PortfolioSnapshot) models.CorrelationRisk {
	if snapshot.TotalCapital <= 0 {
		return models.CorrelationRisk{
			Level:          models.RiskCritical,
			Safe:           false,
			SizeAdjustment: 0,
			Explanation:    "portfolio capital unknown or zero",
		}
	}

	// Net same-direction exposure if the trade is added.
	directional := notional
	for _, p := range snapshot.Positions {
		if p.Side == side {
			directional += p.Notional
		}
	}
	directionalRatio := directional / snapshot.TotalCapital / a.maxDirectional

	// Same-symbol concentration against the per-symbol cap.
	symbolNotional := notional
	if p, ok := snapshot.Positions[symbol]; ok {
		symbolNotional += p.Notional
	}
	symbolRatio := symbolNotional / snapshot.TotalCapital / a.symbolCap

	worst := directionalRatio
	driver := fmt.Sprintf("directional exposure at %.0f%% of cap", directionalRatio*100)
	if symbolRatio > worst {
		worst = symbolRatio
		driver = fmt.Sprintf("%s concentration at %.0f%% of cap", symbol, symbolRatio*100)
	}

	level := a.grade(worst)
	return models.CorrelationRisk{
		Level:          level,
		Safe:           level == models.RiskLow || level == models.RiskMedium,
		SizeAdjustment: SizeAdjustment(level),
		Explanation:    driver,
	}
}

// grade maps the worst cap-utilization ratio to a risk level. A ratio of 1.0
// means the corresponding cap would be fully consumed.
func (a *Analyzer) grade(ratio float64) models.RiskLevel {
	switch {
	case ratio >= 1.0:
		return models.RiskCritical
	case ratio >= a.highRatio:
		return models.RiskHigh
	case ratio >= a.mediumRatio:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// SizeAdjustment returns the multiplicative size factor for a risk level.
// Critical is a hard veto.
func SizeAdjustment(level models.RiskLevel) float64 {
	switch level {
	case models.RiskLow:
		return 1.0
	case models.RiskMedium:
		return 0.75
	case models.RiskHigh:
		return 0.5
	default:
		return 0
	}
}
