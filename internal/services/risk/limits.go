package risk

import (
	"sync"
	"time"
)

// LimitState holds the long-lived per-day risk counters shared by all
// concurrent cycles. Only the risk guard mutates it; updates are serialized
// under the mutex so a breach can never be double-counted.
type LimitState struct {
	mu            sync.Mutex
	realizedLoss  float64 // accumulated realized loss for the day, >= 0
	dailyBreached bool    // sticky until rollover
	rolledOverAt  time.Time
}

func NewLimitState() *LimitState {
	return &LimitState{rolledOverAt: time.Now()}
}

// AddRealizedPnL folds a closed trade's PnL into the daily counter.
// Profits shrink the accumulated loss but never below zero.
func (s *LimitState) AddRealizedPnL(pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realizedLoss -= pnl
	if s.realizedLoss < 0 {
		s.realizedLoss = 0
	}
}

// RealizedLoss returns the day's accumulated realized loss.
func (s *LimitState) RealizedLoss() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.realizedLoss
}

// MarkDailyBreached sets the sticky flag that blocks new entries until the
// next rollover. Returns true only on the first call after a rollover, so
// the caller can emit exactly one alert per breach.
func (s *LimitState) MarkDailyBreached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dailyBreached {
		return false
	}
	s.dailyBreached = true
	return true
}

// DailyBreached reports the sticky daily-loss flag.
func (s *LimitState) DailyBreached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyBreached
}

// Rollover resets the daily counters at the day boundary (or on a manual
// operator reset).
func (s *LimitState) Rollover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realizedLoss = 0
	s.dailyBreached = false
	s.rolledOverAt = time.Now()
}

// LastRollover returns when the counters were last reset.
func (s *LimitState) LastRollover() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolledOverAt
}
