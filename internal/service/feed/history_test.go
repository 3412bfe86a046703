package feed

import (
	"context"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
)

func tick(symbol string, ts int64, price, volume float64) *models.Trade {
	return &models.Trade{Symbol: symbol, Timestamp: ts, Price: price, Volume: volume}
}

func TestCandleBookAggregatesWithinBucket(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()

	b.Apply(tick("BTCUSDT", base, 100, 1))
	b.Apply(tick("BTCUSDT", base+10, 105, 2))
	b.Apply(tick("BTCUSDT", base+20, 95, 3))
	b.Apply(tick("BTCUSDT", base+30, 102, 1))

	window, err := b.History(context.Background(), "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(window) != 1 {
		t.Fatalf("candles = %d, want 1", len(window))
	}
	c := window[0]
	if c.Open != 100 || c.High != 105 || c.Low != 95 || c.Close != 102 {
		t.Fatalf("ohlc = %v/%v/%v/%v", c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume != 7 {
		t.Fatalf("volume = %v, want 7", c.Volume)
	}
}

func TestCandleBookOpensNewBucket(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()

	b.Apply(tick("BTCUSDT", base, 100, 1))
	b.Apply(tick("BTCUSDT", base+61, 110, 1))

	window, _ := b.History(context.Background(), "BTCUSDT", 10)
	if len(window) != 2 {
		t.Fatalf("candles = %d, want 2", len(window))
	}
	if !window[1].Bucket.After(window[0].Bucket) {
		t.Fatalf("buckets out of order: %v then %v", window[0].Bucket, window[1].Bucket)
	}
	if window[1].Open != 110 {
		t.Fatalf("second candle open = %v", window[1].Open)
	}
}

func TestCandleBookEvictsPastCapacity(t *testing.T) {
	b := NewCandleBook(time.Minute, 3)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()

	for i := int64(0); i < 5; i++ {
		b.Apply(tick("BTCUSDT", base+i*60, 100+float64(i), 1))
	}

	window, _ := b.History(context.Background(), "BTCUSDT", 0)
	if len(window) != 3 {
		t.Fatalf("candles = %d, want capacity 3", len(window))
	}
	if window[0].Open != 102 {
		t.Fatalf("oldest surviving open = %v, want 102", window[0].Open)
	}
}

func TestCandleBookHistoryLimit(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	for i := int64(0); i < 6; i++ {
		b.Apply(tick("BTCUSDT", base+i*60, 100+float64(i), 1))
	}

	window, _ := b.History(context.Background(), "BTCUSDT", 2)
	if len(window) != 2 {
		t.Fatalf("candles = %d, want 2", len(window))
	}
	if window[1].Close != 105 {
		t.Fatalf("newest close = %v, want 105", window[1].Close)
	}
}

func TestCandleBookSymbolsIsolated(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()

	b.Apply(tick("BTCUSDT", base, 100, 1))
	b.Apply(tick("ETHUSDT", base, 10, 1))

	btc, _ := b.History(context.Background(), "BTCUSDT", 0)
	eth, _ := b.History(context.Background(), "ETHUSDT", 0)
	if len(btc) != 1 || len(eth) != 1 {
		t.Fatalf("per-symbol windows = %d/%d", len(btc), len(eth))
	}
	if btc[0].Close == eth[0].Close {
		t.Fatal("windows not isolated")
	}

	last, ok := b.Last("ETHUSDT")
	if !ok || last.Price != 10 {
		t.Fatalf("last trade = %+v ok=%v", last, ok)
	}
}

func TestCandleBookIgnoresBadTicks(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	b.Apply(nil)
	b.Apply(tick("BTCUSDT", 0, 0, 1))

	window, _ := b.History(context.Background(), "BTCUSDT", 0)
	if len(window) != 0 {
		t.Fatalf("bad ticks produced candles: %d", len(window))
	}
}

func TestCandleBookHistoryCopyIsStable(t *testing.T) {
	b := NewCandleBook(time.Minute, 10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	b.Apply(tick("BTCUSDT", base, 100, 1))

	window, _ := b.History(context.Background(), "BTCUSDT", 0)
	b.Apply(tick("BTCUSDT", base+5, 200, 1))

	if window[0].Close != 100 {
		t.Fatalf("snapshot mutated by later tick: close = %v", window[0].Close)
	}
}
