package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TradeQuorum/internal/domain/models"
	domrepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/domain/service"
	pkgkafka "TradeQuorum/pkg/kafka"
)

// OutcomeHandler consumes closed-trade reports from the execution collaborator
// and folds them into per-agent performance history. Weights pick the change
// up on the next refresh.
type OutcomeHandler struct {
	topic   string
	store   service.PerformanceStore
	metrics domrepo.Metrics
}

func NewOutcomeHandler(topic string, store service.PerformanceStore, metrics domrepo.Metrics) *OutcomeHandler {
	return &OutcomeHandler{topic: topic, store: store, metrics: metrics}
}

func (h *OutcomeHandler) Topic() string { return h.topic }

// incoming message schema: {agent_id, symbol, return, closed_at}
func (h *OutcomeHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		AgentID  string  `json:"agent_id"`
		Symbol   string  `json:"symbol"`
		Return   float64 `json:"return"`
		ClosedAt int64   `json:"closed_at"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("outcome_unmarshal")
		return err
	}
	if m.ClosedAt > 1e11 { // ms
		m.ClosedAt = m.ClosedAt / 1000
	}

	start := time.Now()
	err := h.store.RecordOutcome(ctx, models.TradeOutcome{
		AgentID:  m.AgentID,
		Symbol:   m.Symbol,
		Return:   m.Return,
		ClosedAt: time.Unix(m.ClosedAt, 0).UTC(),
	})
	h.metrics.RecordLatency("outcome_record_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("outcome_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*OutcomeHandler)(nil)
