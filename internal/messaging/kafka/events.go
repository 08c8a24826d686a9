package kafka

import "github.com/vladislavdragonenkov/r4c/internal/domain"

// Topics для Kafka.
const (
	TopicRobotEvents     = "r4c.robot.events"
	TopicOrderEvents     = "r4c.order.events"
	TopicDeadLetterQueue = "r4c.dlq"
)

// Kafka headers исходного outbox-сообщения.
const (
	HeaderEventType = "x-event-type"
	HeaderOutboxID  = "x-outbox-id"
)

// Topics сопоставляет тип агрегата outbox с topic.
type Topics map[string]string

// DefaultTopics — topic для каждого агрегата сервиса.
func DefaultTopics() Topics {
	return Topics{
		domain.AggregateRobot: TopicRobotEvents,
		domain.AggregateOrder: TopicOrderEvents,
	}
}

// For возвращает topic агрегата или fallback, если агрегат неизвестен.
func (t Topics) For(aggregateType, fallback string) string {
	if topic, ok := t[aggregateType]; ok && topic != "" {
		return topic
	}
	return fallback
}
