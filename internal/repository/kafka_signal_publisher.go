package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
)

// SignalEvent is the envelope published for each refreshed signal.
type SignalEvent struct {
	EventID     string        `json:"event_id"`
	PublishedAt time.Time     `json:"published_at"`
	Signal      models.Signal `json:"signal"`
}

// BatchPublisher is satisfied by *pkgkafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaSignalPublisher publishes signals keyed by symbol, so one symbol's
// events stay ordered on a single partition.
type KafkaSignalPublisher struct {
	producer BatchPublisher
	topic    string
	newID    func() string
	now      func() time.Time
}

func NewKafkaSignalPublisher(producer BatchPublisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{
		producer: producer,
		topic:    topic,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

func (p *KafkaSignalPublisher) PublishSignals(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	at := p.now().UTC()
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		id := p.newID()
		msgs[i] = pkgkafka.Message{
			Key:   []byte(s.Symbol),
			Value: SignalEvent{EventID: id, PublishedAt: at, Signal: s},
			Headers: map[string]string{
				"event_id":     id,
				"strategy_id":  s.StrategyID,
				"content-type": "application/json",
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
