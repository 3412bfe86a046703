package regime

import "TradeQuorum/internal/domain/models"

// multiplier bands per regime; the multiplier scales linearly with regime
// confidence within the band.
var sizeBands = map[models.MarketRegime][2]float64{
	models.RegimeTrendingBull: {0.8, 1.3},
	models.RegimeTrendingBear: {0.8, 1.3},
	models.RegimeRanging:      {0.4, 0.8},
	models.RegimeHighVol:      {0.3, 0.6},
	models.RegimeLowVol:       {0.6, 1.0},
	models.RegimeNewsDriven:   {0.2, 0.5},
	models.RegimeLiquidity:    {0.3, 0.6},
}

var strategies = map[models.MarketRegime]string{
	models.RegimeTrendingBull: "momentum_follow",
	models.RegimeTrendingBear: "momentum_follow",
	models.RegimeRanging:      "mean_reversion",
	models.RegimeHighVol:      "volatility_breakout",
	models.RegimeLowVol:       "carry_accumulate",
	models.RegimeNewsDriven:   "stand_aside",
	models.RegimeLiquidity:    "passive_limit",
	models.RegimeUnknown:      "none",
}

// StrategyForRegime returns the recommended strategy tag. Pure lookup.
func StrategyForRegime(r models.MarketRegime) string {
	if s, ok := strategies[r]; ok {
		return s
	}
	return "none"
}

// SizeMultiplier returns the position-size multiplier for a regime, scaled
// linearly by confidence within the regime's band. Unknown regimes size at a
// conservative flat 0.5.
func SizeMultiplier(r models.MarketRegime, confidence float64) float64 {
	band, ok := sizeBands[r]
	if !ok {
		return 0.5
	}
	return band[0] + clamp01(confidence)*(band[1]-band[0])
}
