package models

import "time"

// ConsensusResult is the single aggregated decision derived from all agent
// votes for a cycle. Produced once, never mutated.
type ConsensusResult struct {
	Symbol     string
	Timestamp  time.Time
	Direction  Direction
	Confidence float64 // winning direction's share of total effective weight
	Notional   float64
	VoteCount  int         // votes contributing to the winning direction
	Dissenting []AgentVote // retained for audit, never discarded
}

// Actionable reports whether the consensus proposes an actual trade.
func (c ConsensusResult) Actionable() bool {
	return c.Direction == DirectionLong || c.Direction == DirectionShort
}
