package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// Envelope — сообщение outbox в том виде, в каком оно уходит в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher публикует outbox-сообщения в topic по типу агрегата.
type OutboxTopicPublisher struct {
	producer *Producer
	topics   Topics
	fallback string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
// Сообщения неизвестных агрегатов уходят в fallback.
func NewOutboxPublisher(producer *Producer, topics Topics, fallback string) *OutboxTopicPublisher {
	if topics == nil {
		topics = DefaultTopics()
	}
	if fallback == "" {
		fallback = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topics:   topics,
		fallback: fallback,
	}
}

// NewSingleTopicPublisher публикует все сообщения в один topic (используется для DLQ).
func NewSingleTopicPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	return &OutboxTopicPublisher{producer: producer, topics: Topics{}, fallback: topic}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topics.For(event.AggregateType, p.fallback), key, envelope,
		sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(event.EventType)},
		sarama.RecordHeader{Key: []byte(HeaderOutboxID), Value: []byte(event.ID)},
	)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
