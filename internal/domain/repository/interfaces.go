package repository

import (
	"context"
	"time"

	"TradeQuorum/internal/domain/models"
)

// MarketStream is a live trade-tick source feeding the rolling history windows.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// EventPublisher delivers risk-violation and breaker-state-change events to
// the alerting/telemetry collaborator.
type EventPublisher interface {
	PublishRiskViolation(ctx context.Context, ev models.RiskViolationEvent) error
	PublishBreakerTransition(ctx context.Context, ev models.BreakerTransitionEvent) error
	Close() error
}

// DecisionStore persists the audit trail of every cycle outcome.
type DecisionStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.DecisionRecord) error
	StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error
	Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.DecisionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records decision-engine observability counters.
type Metrics interface {
	RecordDecision(symbol, action string)
	RecordRiskBlock(layer string)
	RecordBreakerTransition(operation, to string)
	RecordVoteCollected(agentID string)
	RecordVoteExcluded(agentID, cause string)
	RecordConsensusConfidence(symbol string, confidence float64)
	RecordRegime(symbol, regime string)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
