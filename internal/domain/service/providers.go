package service

import (
	"context"

	"TradeQuorum/internal/domain/models"
)

// VoteProvider is one analysis agent queried for its opinion each cycle.
// Vote is expected to be bounded by the caller's context deadline; an agent
// that does not answer in time is excluded from consensus, not treated as a
// HOLD vote.
type VoteProvider interface {
	AgentID() string
	Specialization() string
	Vote(ctx context.Context, symbol string) (models.AgentVote, error)
}

// MarketHistory returns the rolling OHLCV window for a symbol, newest last.
// A short window is a normal, representable state, not an error.
type MarketHistory interface {
	History(ctx context.Context, symbol string, n int) ([]models.Candle, error)
}

// PortfolioProvider returns the current open-position snapshot and balance.
type PortfolioProvider interface {
	Snapshot(ctx context.Context) (models.PortfolioSnapshot, error)
}

// PerformanceStore holds rolling per-agent win-rate/return history used to
// derive agent weights.
type PerformanceStore interface {
	RecordOutcome(ctx context.Context, outcome models.TradeOutcome) error
	Performance(ctx context.Context, agentID string) (models.AgentPerformance, error)
}

// KillSwitch is the operator- or system-triggered flag that unconditionally
// halts new trade entries. Active must be cheap and safe to call from
// concurrent cycles.
type KillSwitch interface {
	Active() bool
	Set(active bool, reason string)
	Reason() string
}
