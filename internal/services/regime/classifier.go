package regime

import (
	"math"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
)

// Classifier derives the current market regime from a rolling price/volume
// window. It is a pure computation: short histories degrade to the unknown
// regime, they never fail.
type Classifier struct {
	minWindow      int
	shortWindow    int
	trendThreshold float64
	newsZScore     float64
	liquidityRatio float64
	highVolPct     float64
	lowVolPct      float64
}

func New(cfg *config.Config) *Classifier {
	return &Classifier{
		minWindow:      cfg.Regime.MinWindow,
		shortWindow:    cfg.Regime.ShortWindow,
		trendThreshold: cfg.Regime.TrendThreshold,
		newsZScore:     cfg.Regime.NewsZScore,
		liquidityRatio: cfg.Regime.LiquidityRatio,
		highVolPct:     cfg.Regime.HighVolPercent,
		lowVolPct:      cfg.Regime.LowVolPercent,
	}
}

// Classify computes regime metrics for a symbol from its trailing window,
// newest candle last. Ties between candidate regimes are resolved by a fixed
// precedence: news-driven > liquidity-driven > high-volatility > trending >
// ranging > low-volatility.
func (c *Classifier) Classify(symbol string, history []models.Candle, currentPrice, currentVolume float64) models.RegimeMetrics {
	m := models.RegimeMetrics{
		Symbol: symbol,
		Regime: models.RegimeUnknown,
	}
	if len(history) > 0 {
		m.Timestamp = history[len(history)-1].Bucket
	}
	if len(history) < c.minWindow {
		m.Strategy = StrategyForRegime(models.RegimeUnknown)
		m.SizeMultiplier = SizeMultiplier(models.RegimeUnknown, 0)
		return m
	}

	closes := make([]float64, len(history))
	volumes := make([]float64, len(history))
	for i, k := range history {
		closes[i] = k.Close
		volumes[i] = k.Volume
	}

	rets := logReturns(closes)
	vol := stddev(rets)
	longSlope := normalizedSlope(closes)
	shortSlope := normalizedSlope(closes[len(closes)-c.shortWindow:])

	m.Volatility = vol
	if vol > 0 {
		m.TrendStrength = longSlope / vol
	}

	regime, conf := c.pick(closes, volumes, rets, vol, longSlope, shortSlope, currentPrice, currentVolume)
	m.Regime = regime
	m.Confidence = conf
	m.Strategy = StrategyForRegime(regime)
	m.SizeMultiplier = SizeMultiplier(regime, conf)
	return m
}

// pick applies the precedence order. Each check returns its own confidence,
// scaled by how far the deciding metric clears its threshold.
func (c *Classifier) pick(closes, volumes, rets []float64, vol, longSlope, shortSlope, currentPrice, currentVolume float64) (models.MarketRegime, float64) {
	// News shocks: recent price or volume z-score spikes within the short
	// sub-window dominate everything else.
	if z := c.recentShock(closes, volumes, currentPrice, currentVolume); z >= c.newsZScore {
		return models.RegimeNewsDriven, clamp01(z / (2 * c.newsZScore))
	}

	// Thin books: meaningful price movement on anomalously low volume.
	if c.liquidityDriven(rets, volumes, vol) {
		return models.RegimeLiquidity, 0.6
	}

	// Volatility extremes: latest rolling vol vs its own trailing distribution.
	pct := c.volPercentile(rets)
	if pct >= c.highVolPct {
		return models.RegimeHighVol, clamp01(0.5 + (pct-c.highVolPct)/(1-c.highVolPct)/2)
	}

	// Trend vs range: slope magnitude relative to realized volatility. Both
	// slopes must agree on sign so a late reversal does not count as a trend.
	if vol > 0 {
		strength := math.Abs(longSlope) / vol
		if strength >= c.trendThreshold && longSlope*shortSlope > 0 {
			conf := clamp01(0.5 + strength/(4*c.trendThreshold))
			if longSlope > 0 {
				return models.RegimeTrendingBull, conf
			}
			return models.RegimeTrendingBear, conf
		}
	}

	if pct <= c.lowVolPct && pct > 0 {
		return models.RegimeLowVol, clamp01(0.5 + (c.lowVolPct-pct)/c.lowVolPct/2)
	}

	return models.RegimeRanging, 0.5
}

// recentShock returns the max of price-delta and volume z-scores over the
// most recent sub-window, measured against the rest of the history.
func (c *Classifier) recentShock(closes, volumes []float64, currentPrice, currentVolume float64) float64 {
	base := len(closes) - c.shortWindow
	if base < 2 {
		return 0
	}

	baseRets := logReturns(closes[:base])
	retMean := mean(baseRets)
	retStd := stddev(baseRets)

	volMean := mean(volumes[:base])
	volStd := stddev(volumes[:base])

	var maxZ float64
	recent := append([]float64{}, closes[base-1:]...)
	if currentPrice > 0 && currentPrice != closes[len(closes)-1] {
		recent = append(recent, currentPrice)
	}
	for _, r := range logReturns(recent) {
		if retStd > 0 {
			maxZ = math.Max(maxZ, math.Abs(r-retMean)/retStd)
		}
	}
	recentVols := append(append([]float64{}, volumes[base:]...), currentVolume)
	for _, v := range recentVols {
		if volStd > 0 {
			maxZ = math.Max(maxZ, math.Abs(v-volMean)/volStd)
		}
	}
	return maxZ
}

// liquidityDriven flags windows where price moves but volume has dried up
// relative to its own average.
func (c *Classifier) liquidityDriven(rets, volumes []float64, vol float64) bool {
	if len(volumes) < c.shortWindow || vol == 0 {
		return false
	}
	avgVol := mean(volumes)
	if avgVol == 0 {
		return false
	}
	recentVol := mean(volumes[len(volumes)-c.shortWindow:])
	recentMove := math.Abs(mean(rets[len(rets)-c.shortWindow+1:]))
	return recentVol/avgVol < c.liquidityRatio && recentMove > vol/2
}

// volPercentile ranks the latest short-window volatility against the rolling
// volatilities observable across the whole window.
func (c *Classifier) volPercentile(rets []float64) float64 {
	w := c.shortWindow
	if len(rets) < 2*w {
		return 0.5
	}
	var rolling []float64
	for i := w; i <= len(rets); i++ {
		rolling = append(rolling, stddev(rets[i-w:i]))
	}
	latest := rolling[len(rolling)-1]
	var below int
	for _, v := range rolling {
		if v < latest {
			below++
		}
	}
	return float64(below) / float64(len(rolling))
}

// --- window math ---

func logReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(closes[i]/closes[i-1]))
	}
	return out
}

// normalizedSlope is the least-squares slope of the series per bar, divided
// by the series mean so symbols at different price scales compare.
func normalizedSlope(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sumI, sumX, sumIX, sumII float64
	for i, x := range xs {
		fi := float64(i)
		sumI += fi
		sumX += x
		sumIX += fi * x
		sumII += fi * fi
	}
	denom := n*sumII - sumI*sumI
	if denom == 0 {
		return 0
	}
	slope := (n*sumIX - sumI*sumX) / denom
	m := sumX / n
	if m == 0 {
		return 0
	}
	return slope / m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var s float64
	for _, x := range xs {
		d := x - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(xs)-1))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
