package domain

import "time"

// OrderStatus описывает жизненный цикл заказа на робота.
type OrderStatus string

const (
	// OrderStatusWaiting — клиент ждёт появления робота с нужным серийным номером.
	OrderStatusWaiting OrderStatus = "waiting"
	// OrderStatusFulfilled — клиент уведомлён, заказ выполнен.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusAbandoned — заказ больше не ждёт и не выполнен. Конвейер его не создаёт.
	OrderStatusAbandoned OrderStatus = "abandoned"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusWaiting, OrderStatusFulfilled, OrderStatusAbandoned:
		return true
	default:
		return false
	}
}

// Order — заказ клиента на робота с конкретным серийным номером.
type Order struct {
	ID          string
	CustomerID  string
	RobotSerial string
	Status      OrderStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder создаёт заказ в статусе ожидания.
func NewOrder(id, customerID, serial string, now time.Time) Order {
	return Order{
		ID:          id,
		CustomerID:  customerID,
		RobotSerial: serial,
		Status:      OrderStatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsWaiting возвращает флаг is_waiting.
func (o Order) IsWaiting() bool {
	return o.Status == OrderStatusWaiting
}

// IsFulfilled возвращает флаг is_fulfilled.
func (o Order) IsFulfilled() bool {
	return o.Status == OrderStatusFulfilled
}

// Fulfill переводит заказ из waiting в fulfilled. Обратного перехода нет.
func (o *Order) Fulfill(now time.Time) error {
	if o.Status != OrderStatusWaiting {
		return ErrOrderNotWaiting
	}
	o.Status = OrderStatusFulfilled
	o.UpdatedAt = now
	return nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerNotFound)
	}
	if o.RobotSerial == "" {
		errs = append(errs, ErrSerialRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderNotWaiting)
	}

	return errs
}
