package models

import "time"

// MarketRegime classifies current market behavior.
type MarketRegime string

const (
	RegimeTrendingBull MarketRegime = "trending_bull"
	RegimeTrendingBear MarketRegime = "trending_bear"
	RegimeRanging      MarketRegime = "ranging"
	RegimeHighVol      MarketRegime = "high_volatility"
	RegimeLowVol       MarketRegime = "low_volatility"
	RegimeNewsDriven   MarketRegime = "news_driven"
	RegimeLiquidity    MarketRegime = "liquidity_driven"
	RegimeUnknown      MarketRegime = "unknown"
)

// RegimeMetrics is the output of regime classification for one symbol,
// recomputed every cycle from a fixed-size trailing window.
type RegimeMetrics struct {
	Symbol         string
	Timestamp      time.Time
	Regime         MarketRegime
	TrendStrength  float64 // signed slope normalized by volatility
	Volatility     float64 // realized volatility over the window
	Confidence     float64 // 0 when the window is too short
	Strategy       string  // recommended strategy tag for the regime
	SizeMultiplier float64 // position-size multiplier in (0, 1.5]
}
