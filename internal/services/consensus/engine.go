package consensus

import (
	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/logger"
)

// Engine aggregates per-agent votes into one decision per symbol per cycle.
// Given identical vote sets and weights the result is bit-for-bit
// reproducible: no randomness, no wall-clock reads.
type Engine struct {
	weights           WeightSource
	log               *logger.Logger
	majorityThreshold float64
	neutralBand       float64
	maxSymbolNotional float64
	specBonus         float64
	symbolTags        map[string]string
}

func NewEngine(cfg *config.Config, weights WeightSource, log *logger.Logger) *Engine {
	return &Engine{
		weights:           weights,
		log:               log.With("consensus"),
		majorityThreshold: cfg.Consensus.MajorityThreshold,
		neutralBand:       cfg.Consensus.NeutralBand,
		maxSymbolNotional: cfg.Consensus.MaxSymbolNotional,
		specBonus:         cfg.Consensus.SpecializationBonus,
		symbolTags:        cfg.Engine.SymbolTags,
	}
}

// BuildConsensus reconciles the cycle's votes for a symbol. An empty or
// fully-invalid vote set degrades to a HOLD with confidence 0; it is never
// an error. A direction wins only when its share of total effective weight
// clears the majority threshold and the long/short split leaves the neutral
// band; otherwise the result is HOLD regardless of plurality.
func (e *Engine) BuildConsensus(votes []models.AgentVote, symbol string) models.ConsensusResult {
	res := models.ConsensusResult{
		Symbol:    symbol,
		Direction: models.DirectionHold,
	}
	if len(votes) == 0 {
		return res
	}

	valid := votes[:0:0]
	for i := range votes {
		v := votes[i]
		if err := v.Validate(); err != nil {
			// malformed input is that vote's problem, not the cycle's
			e.log.Warn("vote rejected", logger.Error(err))
			continue
		}
		valid = append(valid, v)
		if v.SubmittedAt.After(res.Timestamp) {
			res.Timestamp = v.SubmittedAt
		}
	}
	if len(valid) == 0 {
		return res
	}

	var longW, shortW, totalW float64
	eff := make([]float64, len(valid))
	for i, v := range valid {
		w := e.weights.Weight(v.AgentID) * v.Confidence * e.specializationBonus(v, symbol)
		eff[i] = w
		totalW += w
		switch v.Direction {
		case models.DirectionLong:
			longW += w
		case models.DirectionShort:
			shortW += w
		}
	}
	if totalW == 0 {
		res.Dissenting = dissenters(valid, models.DirectionHold)
		return res
	}

	winner := models.DirectionLong
	winnerW := longW
	if shortW > longW {
		winner = models.DirectionShort
		winnerW = shortW
	}
	share := winnerW / totalW

	if share <= e.majorityThreshold || (longW+shortW > 0 && absDiff(longW, shortW)/totalW < e.neutralBand) {
		// weak plurality: hold, but surface how close the leading side came
		res.Confidence = share
		res.Dissenting = dissenters(valid, models.DirectionHold)
		return res
	}

	// Notional: weighted average across agreeing votes, bounded by both the
	// weight-scaled vote sum and the per-symbol ceiling.
	var weightedSum, agreeingW float64
	var count int
	dissenting := make([]models.AgentVote, 0)
	for i, v := range valid {
		if v.Direction != winner {
			dissenting = append(dissenting, v)
			continue
		}
		count++
		weightedSum += eff[i] * v.Notional
		agreeingW += eff[i]
	}

	notional := 0.0
	if agreeingW > 0 {
		notional = weightedSum / agreeingW
	}
	if notional > weightedSum {
		// low total weight must not inflate size past the weight-scaled sum
		notional = weightedSum
	}
	if e.maxSymbolNotional > 0 && notional > e.maxSymbolNotional {
		notional = e.maxSymbolNotional
	}

	res.Direction = winner
	res.Confidence = share
	res.Notional = notional
	res.VoteCount = count
	res.Dissenting = dissenting
	return res
}

func (e *Engine) specializationBonus(v models.AgentVote, symbol string) float64 {
	if v.Specialization == "" {
		return 1.0
	}
	if tag, ok := e.symbolTags[symbol]; ok && tag == v.Specialization {
		return e.specBonus
	}
	return 1.0
}

// dissenters lists the votes that disagree with the final direction.
func dissenters(votes []models.AgentVote, final models.Direction) []models.AgentVote {
	out := make([]models.AgentVote, 0)
	for _, v := range votes {
		if v.Direction != final {
			out = append(out, v)
		}
	}
	return out
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
