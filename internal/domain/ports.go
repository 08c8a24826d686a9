package domain

import (
	"context"
	"time"
)

// Notifier доставляет клиенту сообщение о появлении робота.
type Notifier interface {
	// Notify возвращает ошибку, если доставка не удалась.
	Notify(ctx context.Context, customer Customer, robot Robot) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// Типы событий outbox.
const (
	EventRobotCreated   = "RobotCreated"
	EventOrderFulfilled = "OrderFulfilled"

	AggregateRobot = "robot"
	AggregateOrder = "order"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
