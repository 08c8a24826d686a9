// Package robots реализует создание робота и запуск прохода выполнения заказов.
package robots

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/service/fulfillment"
)

// FulfillmentTrigger запускает проход выполнения для сохранённого робота.
type FulfillmentTrigger interface {
	OnRobotCreated(ctx context.Context, robot domain.Robot) fulfillment.PassResult
}

// CreateRobotInput — входные данные создания робота.
type CreateRobotInput struct {
	Model   string
	Version string
	Created string
}

// Service — сценарий создания робота.
type Service struct {
	robots  domain.RobotRepository
	outbox  domain.OutboxRepository
	trigger FulfillmentTrigger
	logger  *log.Entry
	newID   func() string
}

// NewService создаёт сервис. outbox и trigger могут быть nil.
func NewService(robots domain.RobotRepository, outbox domain.OutboxRepository, trigger FulfillmentTrigger, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "robots")
	}
	return &Service{
		robots:  robots,
		outbox:  outbox,
		trigger: trigger,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// CreateRobot проверяет ввод, сохраняет робота и синхронно запускает проход выполнения.
// Ошибки прохода не влияют на результат: робот к этому моменту уже сохранён.
func (s *Service) CreateRobot(ctx context.Context, in CreateRobotInput) (domain.Robot, error) {
	if in.Model == "" || in.Version == "" || in.Created == "" {
		return domain.Robot{}, domain.ValidationError(domain.ErrMissingRequiredFields)
	}
	created, ok := ParseCreated(in.Created)
	if !ok {
		return domain.Robot{}, domain.ValidationError(domain.ErrInvalidDateFormat)
	}

	robot := domain.NewRobot(s.newID(), in.Model, in.Version, created)
	if err := s.robots.Create(ctx, robot); err != nil {
		return domain.Robot{}, domain.StoreError(err)
	}

	logger := s.logger.WithFields(log.Fields{
		"robot_id": robot.ID,
		"serial":   robot.Serial,
	})
	logger.Info("robot created")

	s.enqueueCreated(logger, robot)

	if s.trigger != nil {
		// Отключение клиента не должно прерывать уведомления по уже сохранённому роботу.
		s.trigger.OnRobotCreated(context.WithoutCancel(ctx), robot)
	}

	return robot, nil
}

func (s *Service) enqueueCreated(logger *log.Entry, robot domain.Robot) {
	if s.outbox == nil {
		return
	}
	event, err := domain.NewRobotCreatedEvent(robot)
	if err == nil {
		_, err = s.outbox.Enqueue(event)
	}
	if err != nil {
		logger.WithError(fmt.Errorf("enqueue robot created event: %w", err)).Warn("robot event not queued")
	}
}
