package fulfillment

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// Matcher находит заказы, ждущие робота с заданным серийным номером.
type Matcher struct {
	orders domain.OrderRepository
}

// NewMatcher создаёт Matcher поверх репозитория заказов.
func NewMatcher(orders domain.OrderRepository) *Matcher {
	return &Matcher{orders: orders}
}

// FindWaitingOrders возвращает все ждущие заказы на serial в порядке хранилища.
// Ничего не изменяет. Пустой serial отклоняется без обращения к хранилищу.
func (m *Matcher) FindWaitingOrders(ctx context.Context, serial string) ([]domain.Order, error) {
	if serial == "" {
		return nil, domain.ValidationError(domain.ErrSerialRequired)
	}

	orders, err := m.orders.ListWaitingBySerial(ctx, serial)
	if err != nil {
		return nil, domain.StoreError(fmt.Errorf("find waiting orders for %s: %w", serial, err))
	}
	return orders, nil
}
