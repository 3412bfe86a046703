package models

import "time"

// Event types published to the alerting collaborator.
const (
	EventRiskViolation     = "risk_violation"
	EventBreakerTransition = "breaker_transition"
)

// RiskViolationEvent is emitted whenever the risk guard blocks a trade.
type RiskViolationEvent struct {
	Type      string        `json:"type"`
	Symbol    string        `json:"symbol"`
	Violation RiskViolation `json:"violation"`
	Timestamp time.Time     `json:"timestamp"`
}

// BreakerTransitionEvent is emitted on every circuit breaker state change.
type BreakerTransitionEvent struct {
	Type      string    `json:"type"`
	Operation string    `json:"operation"` // e.g. "agent:momentum-1"
	From      string    `json:"from"`
	To        string    `json:"to"`
	Failures  int       `json:"failures"`
	Timestamp time.Time `json:"timestamp"`
}
