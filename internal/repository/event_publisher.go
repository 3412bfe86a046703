package repository

import (
	"context"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	pkgkafka "TradeQuorum/pkg/kafka"
)

// KafkaEventPublisher delivers risk and breaker events to the alerting
// topic. Events are keyed so all events for one symbol/operation stay on
// one partition in order.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) drepo.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishRiskViolation(ctx context.Context, ev models.RiskViolationEvent) error {
	ev.Type = models.EventRiskViolation
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaEventPublisher) PublishBreakerTransition(ctx context.Context, ev models.BreakerTransitionEvent) error {
	ev.Type = models.EventBreakerTransition
	return p.producer.Publish(ctx, p.topic, []byte(ev.Operation), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopEventPublisher is used when the event bus is disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishRiskViolation(context.Context, models.RiskViolationEvent) error {
	return nil
}
func (NoopEventPublisher) PublishBreakerTransition(context.Context, models.BreakerTransitionEvent) error {
	return nil
}
func (NoopEventPublisher) Close() error { return nil }
