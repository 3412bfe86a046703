package consensus

import (
	"context"
	"math"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
)

type stubPerfStore map[string]models.AgentPerformance

func (s stubPerfStore) Performance(_ context.Context, agentID string) (models.AgentPerformance, error) {
	return s[agentID], nil
}

func (s stubPerfStore) RecordOutcome(_ context.Context, _ models.TradeOutcome) error {
	return nil
}

func TestComputeWeightFreshWinner(t *testing.T) {
	w := computeWeight(1.0, 0.1, 0, 72*time.Hour)
	if w != 1.0 {
		t.Fatalf("perfect fresh record should weigh 1.0, got %v", w)
	}
}

func TestComputeWeightFreshLoser(t *testing.T) {
	w := computeWeight(0, -0.1, 0, 72*time.Hour)
	if w != 0 {
		t.Fatalf("worst fresh record should weigh 0, got %v", w)
	}
}

func TestComputeWeightDecaysTowardNeutral(t *testing.T) {
	fresh := computeWeight(1.0, 0.1, 0, 72*time.Hour)
	stale := computeWeight(1.0, 0.1, 72*time.Hour, 72*time.Hour)

	if math.Abs(stale-0.75) > 1e-9 {
		t.Fatalf("one half-life should land midway to neutral, got %v", stale)
	}
	if stale >= fresh {
		t.Fatalf("stale weight %v should be below fresh %v", stale, fresh)
	}

	ancient := computeWeight(1.0, 0.1, 30*24*time.Hour, 72*time.Hour)
	if math.Abs(ancient-0.5) > 0.01 {
		t.Fatalf("very old history should be near neutral, got %v", ancient)
	}
}

func TestWeightTrackerUnknownAgentNeutral(t *testing.T) {
	cfg := &config.Config{}
	cfg.Consensus.WeightHalfLife = 72 * time.Hour

	tr := NewWeightTracker(cfg, stubPerfStore{}, testLogger(t))
	if w := tr.Weight("never-seen"); w != 0.5 {
		t.Fatalf("unknown agent weight %v, want neutral 0.5", w)
	}
}

func TestWeightTrackerRefresh(t *testing.T) {
	cfg := &config.Config{}
	cfg.Consensus.WeightHalfLife = 72 * time.Hour
	cfg.Agents = []config.AgentConfig{{ID: "a", URL: "http://a"}}

	store := stubPerfStore{
		"a": {AgentID: "a", Wins: 8, Losses: 2, AvgReturn: 0.02, UpdatedAt: time.Now()},
	}
	tr := NewWeightTracker(cfg, store, testLogger(t))
	tr.Refresh(context.Background())

	w := tr.Weight("a")
	// 0.5*0.8 + 0.5*clamp01(0.5+0.02*5) = 0.4 + 0.3
	if math.Abs(w-0.7) > 0.01 {
		t.Fatalf("weight %v, want ~0.7", w)
	}
}
