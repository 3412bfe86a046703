package consensus

import (
	"context"
	"math"
	"sync"
	"time"

	"TradeQuorum/internal/domain/service"
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/logger"
)

// WeightSource exposes a read-only per-agent weight snapshot. Weights are
// never recomputed inside a single consensus call.
type WeightSource interface {
	Weight(agentID string) float64
}

const neutralWeight = 0.5

// WeightTracker derives per-agent weights in [0,1] from rolling historical
// win rate and average return, decayed toward neutral as the history ages.
// Refresh runs on its own schedule; Weight reads the last computed snapshot.
type WeightTracker struct {
	store    service.PerformanceStore
	log      *logger.Logger
	halfLife time.Duration
	agentIDs []string

	mu      sync.RWMutex
	weights map[string]float64
}

func NewWeightTracker(cfg *config.Config, store service.PerformanceStore, log *logger.Logger) *WeightTracker {
	ids := make([]string, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		ids = append(ids, a.ID)
	}
	return &WeightTracker{
		store:    store,
		log:      log.With("weights"),
		halfLife: cfg.Consensus.WeightHalfLife,
		agentIDs: ids,
		weights:  make(map[string]float64),
	}
}

// Weight returns the agent's last computed weight, neutral for agents with
// no history yet.
func (t *WeightTracker) Weight(agentID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if w, ok := t.weights[agentID]; ok {
		return w
	}
	return neutralWeight
}

// Refresh recomputes all agent weights from the performance store. A store
// failure for one agent keeps that agent's previous weight.
func (t *WeightTracker) Refresh(ctx context.Context) {
	now := time.Now()
	fresh := make(map[string]float64, len(t.agentIDs))

	t.mu.RLock()
	for k, v := range t.weights {
		fresh[k] = v
	}
	t.mu.RUnlock()

	for _, id := range t.agentIDs {
		perf, err := t.store.Performance(ctx, id)
		if err != nil {
			t.log.Warn("performance fetch failed, keeping previous weight",
				logger.String("agent", id), logger.Error(err))
			continue
		}
		fresh[id] = computeWeight(perf.WinRate(), perf.AvgReturn, now.Sub(perf.UpdatedAt), t.halfLife)
	}

	t.mu.Lock()
	t.weights = fresh
	t.mu.Unlock()
}

// Run refreshes weights on the configured interval until the context ends.
func (t *WeightTracker) Run(ctx context.Context, interval time.Duration) {
	t.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Refresh(ctx)
		}
	}
}

// computeWeight blends win rate and normalized return, then decays the
// result toward neutral by how stale the history is. avgReturn of ±10% per
// trade maps to the ends of the return score band.
func computeWeight(winRate, avgReturn float64, age, halfLife time.Duration) float64 {
	returnScore := clamp01(0.5 + avgReturn*5)
	base := 0.5*winRate + 0.5*returnScore

	decay := 1.0
	if halfLife > 0 && age > 0 {
		decay = math.Pow(2, -age.Hours()/halfLife.Hours())
	}
	return clamp01(neutralWeight + (base-neutralWeight)*decay)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
