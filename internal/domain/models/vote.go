package models

import "time"

// Direction is the trade direction an agent votes for.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// AgentVote is one trading opinion submitted by an analysis agent for one
// symbol in one evaluation cycle. Immutable once collected.
type AgentVote struct {
	AgentID        string    `json:"agent_id" validate:"required"`
	AgentType      string    `json:"agent_type" validate:"required"`
	Symbol         string    `json:"symbol" validate:"required"`
	Direction      Direction `json:"direction" validate:"required,oneof=LONG SHORT HOLD"`
	Confidence     float64   `json:"confidence" validate:"gte=0,lte=1"`
	Notional       float64   `json:"notional" validate:"gte=0"`
	Rationale      string    `json:"rationale"`
	Specialization string    `json:"specialization,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// AgentPerformance is the rolling historical record backing an agent's weight.
type AgentPerformance struct {
	AgentID   string    `json:"agent_id"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	AvgReturn float64   `json:"avg_return"` // mean return per closed trade
	UpdatedAt time.Time `json:"updated_at"`
}

// WinRate returns the historical win rate, 0.5 when no history exists.
func (p AgentPerformance) WinRate() float64 {
	total := p.Wins + p.Losses
	if total == 0 {
		return 0.5
	}
	return float64(p.Wins) / float64(total)
}

// TradeOutcome records the result of a closed trade attributed to an agent,
// used to update its performance history.
type TradeOutcome struct {
	AgentID  string    `json:"agent_id" validate:"required"`
	Symbol   string    `json:"symbol" validate:"required"`
	Return   float64   `json:"return"` // fractional return, negative on loss
	ClosedAt time.Time `json:"closed_at"`
}
