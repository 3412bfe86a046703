package feed

import (
	"context"
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/service"
)

// CandleBook aggregates raw trade ticks into fixed-interval OHLCV candles
// and keeps a bounded rolling window per symbol. It is the in-process
// MarketHistory backing the regime classifier.
type CandleBook struct {
	interval time.Duration
	capacity int

	mu      sync.RWMutex
	candles map[string][]models.Candle // per symbol, oldest first
	last    map[string]models.Trade
}

func NewCandleBook(interval time.Duration, capacity int) *CandleBook {
	if interval <= 0 {
		interval = time.Minute
	}
	if capacity <= 0 {
		capacity = 500
	}
	return &CandleBook{
		interval: interval,
		capacity: capacity,
		candles:  make(map[string][]models.Candle),
		last:     make(map[string]models.Trade),
	}
}

// Apply folds one trade into the symbol's current candle, opening a new
// bucket at interval boundaries and evicting the oldest candle past capacity.
func (b *CandleBook) Apply(t *models.Trade) {
	if t == nil || t.Price <= 0 {
		return
	}
	bucket := time.Unix(t.Timestamp, 0).UTC().Truncate(b.interval)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[t.Symbol] = *t
	window := b.candles[t.Symbol]
	if n := len(window); n > 0 && window[n-1].Bucket.Equal(bucket) {
		c := &window[n-1]
		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		c.Close = t.Price
		c.Volume += t.Volume
		return
	}

	window = append(window, models.Candle{
		Bucket: bucket,
		Symbol: t.Symbol,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Volume,
	})
	if len(window) > b.capacity {
		window = window[len(window)-b.capacity:]
	}
	b.candles[t.Symbol] = window
}

// History returns up to n most recent candles for symbol, oldest first.
// An empty slice means the window has not filled yet.
func (b *CandleBook) History(_ context.Context, symbol string, n int) ([]models.Candle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	window := b.candles[symbol]
	if n > 0 && len(window) > n {
		window = window[len(window)-n:]
	}
	out := make([]models.Candle, len(window))
	copy(out, window)
	return out, nil
}

// Last returns the most recent trade seen for symbol.
func (b *CandleBook) Last(symbol string) (models.Trade, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.last[symbol]
	return t, ok
}

var _ service.MarketHistory = (*CandleBook)(nil)
