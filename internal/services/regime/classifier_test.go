package regime

import (
	"math"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Regime.MinWindow = 20
	cfg.Regime.ShortWindow = 10
	cfg.Regime.TrendThreshold = 1.0
	cfg.Regime.NewsZScore = 3.0
	cfg.Regime.LiquidityRatio = 0.25
	cfg.Regime.HighVolPercent = 0.8
	cfg.Regime.LowVolPercent = 0.2
	return cfg
}

func candles(closes, volumes []float64) []models.Candle {
	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	cs := make([]models.Candle, len(closes))
	for i := range closes {
		cs[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return cs
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestClassifyShortWindowUnknown(t *testing.T) {
	c := New(testConfig())
	hist := candles([]float64{100, 5000, 1, 9999}, repeat(1000, 4))

	m := c.Classify("BTCUSDT", hist, 120, 500)
	if m.Regime != models.RegimeUnknown {
		t.Fatalf("expected unknown, got %s", m.Regime)
	}
	if m.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %v", m.Confidence)
	}
	if m.SizeMultiplier != 0.5 {
		t.Fatalf("expected multiplier 0.5, got %v", m.SizeMultiplier)
	}
}

func TestClassifyTrendingBull(t *testing.T) {
	c := New(testConfig())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	m := c.Classify("BTCUSDT", candles(closes, repeat(1000, 40)), closes[39], 1000)

	if m.Regime != models.RegimeTrendingBull {
		t.Fatalf("expected trending_bull, got %s", m.Regime)
	}
	if m.TrendStrength <= 0 {
		t.Fatalf("expected positive trend strength, got %v", m.TrendStrength)
	}
	if m.SizeMultiplier < 0.8 || m.SizeMultiplier > 1.3 {
		t.Fatalf("multiplier %v outside trending band", m.SizeMultiplier)
	}
}

func TestClassifyTrendingBear(t *testing.T) {
	c := New(testConfig())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	m := c.Classify("BTCUSDT", candles(closes, repeat(1000, 40)), closes[39], 1000)

	if m.Regime != models.RegimeTrendingBear {
		t.Fatalf("expected trending_bear, got %s", m.Regime)
	}
	if m.TrendStrength >= 0 {
		t.Fatalf("expected negative trend strength, got %v", m.TrendStrength)
	}
}

func TestClassifyNewsDrivenVolumeShock(t *testing.T) {
	c := New(testConfig())
	n := 40
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 0.1*math.Sin(float64(i))
		volumes[i] = 1000 + 100*math.Sin(float64(i))
	}
	// volume explodes in the most recent sub-window
	for i := n - 3; i < n; i++ {
		volumes[i] = 20000
	}
	m := c.Classify("BTCUSDT", candles(closes, volumes), closes[n-1], 20000)

	if m.Regime != models.RegimeNewsDriven {
		t.Fatalf("expected news_driven, got %s", m.Regime)
	}
	if m.Strategy != "stand_aside" {
		t.Fatalf("unexpected strategy %s", m.Strategy)
	}
}

func TestNewsBeatsTrendPrecedence(t *testing.T) {
	c := New(testConfig())
	n := 40
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
		volumes[i] = 1000 + 50*math.Sin(float64(i))
	}
	for i := n - 2; i < n; i++ {
		volumes[i] = 50000
	}
	m := c.Classify("BTCUSDT", candles(closes, volumes), closes[n-1], 50000)

	if m.Regime != models.RegimeNewsDriven {
		t.Fatalf("news shock should outrank trend, got %s", m.Regime)
	}
}

func TestClassifyHighVolatility(t *testing.T) {
	c := New(testConfig())
	n := 40
	closes := make([]float64, n)
	for i := range closes {
		// oscillation whose amplitude ramps up across the window
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		closes[i] = 100 + sign*0.05*float64(i)
	}
	m := c.Classify("BTCUSDT", candles(closes, repeat(1000, n)), closes[n-1], 1000)

	if m.Regime != models.RegimeHighVol {
		t.Fatalf("expected high_volatility, got %s", m.Regime)
	}
	if m.Volatility <= 0 {
		t.Fatalf("expected positive volatility, got %v", m.Volatility)
	}
}

func TestClassifyRangingFlat(t *testing.T) {
	c := New(testConfig())
	m := c.Classify("BTCUSDT", candles(repeat(100, 40), repeat(1000, 40)), 100, 1000)

	if m.Regime != models.RegimeRanging {
		t.Fatalf("expected ranging, got %s", m.Regime)
	}
}

func TestSizeMultiplierScalesWithConfidence(t *testing.T) {
	lo := SizeMultiplier(models.RegimeRanging, 0)
	hi := SizeMultiplier(models.RegimeRanging, 1)
	if lo != 0.4 || hi != 0.8 {
		t.Fatalf("ranging band [%v,%v], want [0.4,0.8]", lo, hi)
	}

	mid := SizeMultiplier(models.RegimeTrendingBull, 0.5)
	if math.Abs(mid-1.05) > 1e-9 {
		t.Fatalf("trending mid multiplier %v, want 1.05", mid)
	}

	if got := SizeMultiplier(models.RegimeUnknown, 0.9); got != 0.5 {
		t.Fatalf("unknown multiplier %v, want 0.5", got)
	}
}

func TestStrategyLookup(t *testing.T) {
	if StrategyForRegime(models.RegimeRanging) != "mean_reversion" {
		t.Fatalf("unexpected strategy for ranging")
	}
	if StrategyForRegime(models.MarketRegime("bogus")) != "none" {
		t.Fatalf("unexpected strategy for bogus regime")
	}
}
