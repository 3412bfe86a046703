package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/cache"
)

func perfStore() *CachedPerformanceStore {
	return NewCachedPerformanceStore(cache.NewMemoryCache())
}

func outcome(agent string, ret float64) models.TradeOutcome {
	return models.TradeOutcome{
		AgentID:  agent,
		Symbol:   "BTCUSDT",
		Return:   ret,
		ClosedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPerformanceEmptyHistoryIsNeutral(t *testing.T) {
	s := perfStore()
	perf, err := s.Performance(context.Background(), "momentum-1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if perf.Wins != 0 || perf.Losses != 0 {
		t.Fatalf("fresh record not empty: %+v", perf)
	}
	if perf.WinRate() != 0.5 {
		t.Fatalf("empty win rate = %v, want neutral 0.5", perf.WinRate())
	}
}

func TestRecordOutcomeAccumulates(t *testing.T) {
	s := perfStore()
	ctx := context.Background()

	for _, ret := range []float64{0.02, 0.04, -0.03} {
		if err := s.RecordOutcome(ctx, outcome("momentum-1", ret)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	perf, err := s.Performance(ctx, "momentum-1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if perf.Wins != 2 || perf.Losses != 1 {
		t.Fatalf("wins/losses = %d/%d, want 2/1", perf.Wins, perf.Losses)
	}
	if math.Abs(perf.AvgReturn-0.01) > 1e-12 {
		t.Fatalf("avg return = %v, want 0.01", perf.AvgReturn)
	}
}

func TestRecordOutcomeAgentsIsolated(t *testing.T) {
	s := perfStore()
	ctx := context.Background()

	if err := s.RecordOutcome(ctx, outcome("a", 0.02)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordOutcome(ctx, outcome("b", -0.02)); err != nil {
		t.Fatalf("record: %v", err)
	}

	a, _ := s.Performance(ctx, "a")
	b, _ := s.Performance(ctx, "b")
	if a.Wins != 1 || a.Losses != 0 {
		t.Fatalf("agent a = %+v", a)
	}
	if b.Wins != 0 || b.Losses != 1 {
		t.Fatalf("agent b = %+v", b)
	}
}

func TestRecordOutcomeRejectsInvalid(t *testing.T) {
	s := perfStore()
	err := s.RecordOutcome(context.Background(), models.TradeOutcome{Return: 0.1})
	if err == nil {
		t.Fatal("outcome without agent id accepted")
	}
}
