package consensus

import (
	"math"
	"reflect"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/logger"
)

type stubWeights map[string]float64

func (s stubWeights) Weight(agentID string) float64 {
	if w, ok := s[agentID]; ok {
		return w
	}
	return 0.5
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Consensus.MajorityThreshold = 0.55
	cfg.Consensus.NeutralBand = 0.1
	cfg.Consensus.MaxSymbolNotional = 50_000
	cfg.Consensus.SpecializationBonus = 1.2
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func vote(agent string, dir models.Direction, conf, notional float64) models.AgentVote {
	return models.AgentVote{
		AgentID:     agent,
		AgentType:   "analysis",
		Symbol:      "BTCUSDT",
		Direction:   dir,
		Confidence:  conf,
		Notional:    notional,
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildConsensusEmptyVotes(t *testing.T) {
	e := NewEngine(testConfig(), stubWeights{}, testLogger(t))
	res := e.BuildConsensus(nil, "BTCUSDT")

	if res.Direction != models.DirectionHold {
		t.Fatalf("expected HOLD, got %s", res.Direction)
	}
	if res.Confidence != 0 || res.Notional != 0 {
		t.Fatalf("expected zero confidence and notional, got %v / %v", res.Confidence, res.Notional)
	}
}

func TestBuildConsensusWeightedMajority(t *testing.T) {
	weights := stubWeights{"a": 0.6, "b": 0.3, "c": 0.1}
	e := NewEngine(testConfig(), weights, testLogger(t))

	votes := []models.AgentVote{
		vote("a", models.DirectionLong, 0.9, 10_000),
		vote("b", models.DirectionShort, 0.8, 8_000),
		vote("c", models.DirectionLong, 0.5, 4_000),
	}
	res := e.BuildConsensus(votes, "BTCUSDT")

	if res.Direction != models.DirectionLong {
		t.Fatalf("expected LONG, got %s", res.Direction)
	}
	// effective: long 0.6*0.9 + 0.1*0.5 = 0.59, short 0.3*0.8 = 0.24
	want := 0.59 / 0.83
	if math.Abs(res.Confidence-want) > 1e-9 {
		t.Fatalf("confidence %v, want %v", res.Confidence, want)
	}
	if res.VoteCount != 2 {
		t.Fatalf("vote count %d, want 2", res.VoteCount)
	}
	if len(res.Dissenting) != 1 || res.Dissenting[0].AgentID != "b" {
		t.Fatalf("dissenting votes wrong: %+v", res.Dissenting)
	}
}

func TestBuildConsensusWeakPluralityHolds(t *testing.T) {
	weights := stubWeights{"a": 0.5, "b": 0.5}
	e := NewEngine(testConfig(), weights, testLogger(t))

	votes := []models.AgentVote{
		vote("a", models.DirectionLong, 1.0, 10_000),
		vote("b", models.DirectionShort, 1.0, 10_000),
	}
	res := e.BuildConsensus(votes, "BTCUSDT")

	if res.Direction != models.DirectionHold {
		t.Fatalf("split vote must hold, got %s", res.Direction)
	}
	if math.Abs(res.Confidence-0.5) > 1e-9 {
		t.Fatalf("hold confidence should be the leading share, got %v", res.Confidence)
	}
	if res.Notional != 0 {
		t.Fatalf("hold carries no notional, got %v", res.Notional)
	}
	if len(res.Dissenting) != 2 {
		t.Fatalf("both directional votes dissent from HOLD, got %d", len(res.Dissenting))
	}
}

func TestBuildConsensusMalformedVoteExcluded(t *testing.T) {
	weights := stubWeights{"a": 0.6, "bad": 0.9}
	e := NewEngine(testConfig(), weights, testLogger(t))

	bad := vote("bad", models.DirectionShort, 0.9, 10_000)
	bad.Confidence = 2.5 // out of range

	votes := []models.AgentVote{
		vote("a", models.DirectionLong, 0.8, 10_000),
		bad,
	}
	res := e.BuildConsensus(votes, "BTCUSDT")

	if res.Direction != models.DirectionLong {
		t.Fatalf("cycle should continue with remaining valid votes, got %s", res.Direction)
	}
	if res.VoteCount != 1 {
		t.Fatalf("vote count %d, want 1", res.VoteCount)
	}
}

func TestBuildConsensusNotionalBounds(t *testing.T) {
	weights := stubWeights{"a": 0.3}
	e := NewEngine(testConfig(), weights, testLogger(t))

	// single agreeing vote with effective weight 0.3*1.0: the notional must
	// not exceed the weight-scaled vote sum
	res := e.BuildConsensus([]models.AgentVote{vote("a", models.DirectionLong, 1.0, 1_000)}, "BTCUSDT")

	if res.Direction != models.DirectionLong {
		t.Fatalf("expected LONG, got %s", res.Direction)
	}
	if math.Abs(res.Notional-300) > 1e-9 {
		t.Fatalf("notional %v, want 300", res.Notional)
	}
}

func TestBuildConsensusSymbolCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.Consensus.MaxSymbolNotional = 5_000
	weights := stubWeights{"a": 1.0, "b": 1.0}
	e := NewEngine(cfg, weights, testLogger(t))

	votes := []models.AgentVote{
		vote("a", models.DirectionLong, 1.0, 20_000),
		vote("b", models.DirectionLong, 1.0, 30_000),
	}
	res := e.BuildConsensus(votes, "BTCUSDT")

	if res.Notional != 5_000 {
		t.Fatalf("notional %v, want ceiling 5000", res.Notional)
	}
}

func TestBuildConsensusSpecializationBonus(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.SymbolTags = map[string]string{"BTCUSDT": "crypto"}
	weights := stubWeights{"a": 0.5, "b": 0.45}

	long := vote("a", models.DirectionLong, 1.0, 10_000)
	long.Specialization = "crypto"
	short := vote("b", models.DirectionShort, 1.0, 10_000)
	votes := []models.AgentVote{long, short}

	// without the matching tag the long side is a weak plurality
	plain := NewEngine(testConfig(), weights, testLogger(t))
	if res := plain.BuildConsensus(votes, "BTCUSDT"); res.Direction != models.DirectionHold {
		t.Fatalf("expected HOLD without bonus, got %s", res.Direction)
	}

	boosted := NewEngine(cfg, weights, testLogger(t))
	if res := boosted.BuildConsensus(votes, "BTCUSDT"); res.Direction != models.DirectionLong {
		t.Fatalf("expected LONG with specialization bonus, got %s", res.Direction)
	}
}

func TestBuildConsensusDeterministic(t *testing.T) {
	weights := stubWeights{"a": 0.6, "b": 0.3, "c": 0.1}
	e := NewEngine(testConfig(), weights, testLogger(t))

	votes := []models.AgentVote{
		vote("a", models.DirectionLong, 0.9, 10_000),
		vote("b", models.DirectionShort, 0.8, 8_000),
		vote("c", models.DirectionHold, 0.5, 0),
	}
	first := e.BuildConsensus(votes, "BTCUSDT")
	second := e.BuildConsensus(votes, "BTCUSDT")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consensus not reproducible:\n%+v\n%+v", first, second)
	}
}
