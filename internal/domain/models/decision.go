package models

import "time"

// ReasonCode is a machine-readable explanation attached to every NoAction
// and risk block for downstream logging and alerting.
type ReasonCode string

const (
	ReasonNoVotes           ReasonCode = "no_votes"
	ReasonConsensusHold     ReasonCode = "consensus_hold"
	ReasonCorrelationVeto   ReasonCode = "correlation_veto"
	ReasonRiskBlocked       ReasonCode = "risk_blocked"
	ReasonCircuitOpen       ReasonCode = "circuit_open"
	ReasonKillSwitch        ReasonCode = "kill_switch"
	ReasonPortfolioUnknown  ReasonCode = "portfolio_unavailable"
	ReasonZeroSizedDecision ReasonCode = "zero_notional"
)

// TradeDecision is the accepted trade action emitted for one symbol in one
// cycle, consumed by the order-execution collaborator.
type TradeDecision struct {
	Symbol              string       `json:"symbol"`
	Direction           Direction    `json:"direction"`
	Notional            float64      `json:"notional"`
	Regime              MarketRegime `json:"regime"`
	ConsensusConfidence float64      `json:"consensus_confidence"`
	Adjustments         []string     `json:"adjustments,omitempty"` // size adjustments applied, in order
	DecidedAt           time.Time    `json:"decided_at"`
}

// NoAction explains why no trade was emitted this cycle.
type NoAction struct {
	Symbol    string         `json:"symbol"`
	Code      ReasonCode     `json:"code"`
	Detail    string         `json:"detail"`
	Violation *RiskViolation `json:"violation,omitempty"` // set when Code is risk_blocked
	DecidedAt time.Time      `json:"decided_at"`
}

// DecisionRecord is the flattened audit row persisted for every cycle outcome.
type DecisionRecord struct {
	Symbol     string
	Action     string // "TRADE" or "NO_ACTION"
	Direction  string
	Notional   float64
	Regime     string
	Confidence float64
	Reason     string
	Detail     string
	DecidedAt  time.Time
}

// Record flattens a TradeDecision into its audit row.
func (d *TradeDecision) Record() *DecisionRecord {
	return &DecisionRecord{
		Symbol:     d.Symbol,
		Action:     "TRADE",
		Direction:  string(d.Direction),
		Notional:   d.Notional,
		Regime:     string(d.Regime),
		Confidence: d.ConsensusConfidence,
		DecidedAt:  d.DecidedAt,
	}
}

// Record flattens a NoAction into its audit row.
func (n *NoAction) Record() *DecisionRecord {
	return &DecisionRecord{
		Symbol:    n.Symbol,
		Action:    "NO_ACTION",
		Reason:    string(n.Code),
		Detail:    n.Detail,
		DecidedAt: n.DecidedAt,
	}
}
