package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/pkg/cache"
)

const perfKeyPrefix = "agent:perf"

// CachedPerformanceStore keeps per-agent win/loss history in the cache
// service (Redis in production, memory in tests). Performance survives
// restarts as long as the backing store does; an empty record yields the
// neutral prior downstream.
type CachedPerformanceStore struct {
	cache cache.Service

	// serializes the read-modify-write in RecordOutcome within this process
	mu sync.Mutex
}

func NewCachedPerformanceStore(c cache.Service) *CachedPerformanceStore {
	return &CachedPerformanceStore{cache: c}
}

// RecordOutcome folds one closed trade into the agent's rolling record.
func (s *CachedPerformanceStore) RecordOutcome(ctx context.Context, outcome models.TradeOutcome) error {
	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	perf, err := s.load(ctx, outcome.AgentID)
	if err != nil {
		return err
	}

	total := perf.Wins + perf.Losses
	if outcome.Return > 0 {
		perf.Wins++
	} else {
		perf.Losses++
	}
	// incremental mean keeps the record a fixed size
	perf.AvgReturn = (perf.AvgReturn*float64(total) + outcome.Return) / float64(total+1)
	perf.UpdatedAt = outcome.ClosedAt
	if perf.UpdatedAt.IsZero() {
		perf.UpdatedAt = time.Now().UTC()
	}

	if err := s.cache.Set(ctx, cache.GenerateKey(perfKeyPrefix, outcome.AgentID), perf, 0); err != nil {
		return fmt.Errorf("store performance %s: %w", outcome.AgentID, err)
	}
	return nil
}

// Performance returns the agent's record, zero-valued when no history exists.
func (s *CachedPerformanceStore) Performance(ctx context.Context, agentID string) (models.AgentPerformance, error) {
	return s.load(ctx, agentID)
}

func (s *CachedPerformanceStore) load(ctx context.Context, agentID string) (models.AgentPerformance, error) {
	var perf models.AgentPerformance
	err := s.cache.Get(ctx, cache.GenerateKey(perfKeyPrefix, agentID), &perf)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.AgentPerformance{AgentID: agentID}, nil
	}
	if err != nil {
		return models.AgentPerformance{}, fmt.Errorf("load performance %s: %w", agentID, err)
	}
	perf.AgentID = agentID
	return perf, nil
}

var _ service.PerformanceStore = (*CachedPerformanceStore)(nil)
