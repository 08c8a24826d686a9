package domain

import (
	"context"
	"time"
)

// RobotRepository описывает требования к хранилищу роботов.
type RobotRepository interface {
	// Create сохраняет нового робота. Возвращает ErrRobotAlreadyExists при повторе ID.
	Create(ctx context.Context, robot Robot) error
	// ListCreatedSince возвращает роботов с Created >= since.
	ListCreatedSince(ctx context.Context, since time.Time) ([]Robot, error)
}

// CustomerRepository хранит клиентов.
type CustomerRepository interface {
	Get(ctx context.Context, id string) (Customer, error)
	// GetOrCreateByEmail возвращает клиента с данным e-mail, создавая его при отсутствии.
	GetOrCreateByEmail(ctx context.Context, email string) (Customer, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListWaitingBySerial возвращает ждущие заказы на серийный номер в порядке created_at, id.
	ListWaitingBySerial(ctx context.Context, serial string) ([]Order, error)
	// SaveFulfilled фиксирует выполнение заказа с учётом optimistic locking:
	// order.Version должна совпадать с сохранённой, а сохранённый заказ должен ждать.
	// Вместе с переходом в outbox ставится событие event.
	SaveFulfilled(ctx context.Context, order Order, event OutboxMessage) error
}
