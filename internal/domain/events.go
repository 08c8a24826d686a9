package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RobotCreatedPayload — тело события RobotCreated.
type RobotCreatedPayload struct {
	RobotID string    `json:"robot_id"`
	Model   string    `json:"model"`
	Version string    `json:"version"`
	Serial  string    `json:"serial"`
	Created time.Time `json:"created"`
}

// OrderFulfilledPayload — тело события OrderFulfilled.
type OrderFulfilledPayload struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	RobotID     string    `json:"robot_id"`
	RobotSerial string    `json:"robot_serial"`
	FulfilledAt time.Time `json:"fulfilled_at"`
}

// NewRobotCreatedEvent собирает outbox-сообщение о созданном роботе.
func NewRobotCreatedEvent(robot Robot) (OutboxMessage, error) {
	payload, err := json.Marshal(RobotCreatedPayload{
		RobotID: robot.ID,
		Model:   robot.Model,
		Version: robot.Version,
		Serial:  robot.Serial,
		Created: robot.Created.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal robot created payload: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateRobot,
		AggregateID:   robot.ID,
		EventType:     EventRobotCreated,
		Payload:       payload,
	}, nil
}

// NewOrderFulfilledEvent собирает outbox-сообщение о выполненном заказе.
func NewOrderFulfilledEvent(order Order, robot Robot) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderFulfilledPayload{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		RobotID:     robot.ID,
		RobotSerial: order.RobotSerial,
		FulfilledAt: order.UpdatedAt.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order fulfilled payload: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   order.ID,
		EventType:     EventOrderFulfilled,
		Payload:       payload,
	}, nil
}
