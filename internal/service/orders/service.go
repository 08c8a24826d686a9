// Package orders регистрирует заказы клиентов на роботов.
package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// Service — сценарий оформления заказа.
type Service struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	clock     clock.Clock
	logger    *log.Entry
	newID     func() string
}

// NewService создаёт сервис заказов.
func NewService(customers domain.CustomerRepository, orders domain.OrderRepository, c clock.Clock, logger *log.Entry) *Service {
	if c == nil {
		c = clock.NewSystem()
	}
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Service{
		customers: customers,
		orders:    orders,
		clock:     c,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// CreateOrder находит или создаёт клиента по e-mail и ставит ждущий заказ на serial.
func (s *Service) CreateOrder(ctx context.Context, email, serial string) (domain.Order, error) {
	email = strings.TrimSpace(email)
	serial = strings.TrimSpace(serial)
	if email == "" || serial == "" {
		return domain.Order{}, domain.ValidationError(domain.ErrMissingRequiredFields)
	}

	customer, err := s.customers.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return domain.Order{}, domain.StoreError(err)
	}

	order := domain.NewOrder(s.newID(), customer.ID, serial, s.clock.Now())
	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, domain.StoreError(err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": customer.ID,
		"serial":      serial,
	}).Info("order registered")
	return order, nil
}
