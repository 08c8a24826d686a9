package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// LogNotifier пишет уведомления в лог вместо отправки. Для локальной разработки.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт notifier, который только логирует письма.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notify-log")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, customer domain.Customer, robot domain.Robot) error {
	if customer.Email == "" {
		return domain.ErrEmailRequired
	}
	content := ComposeArrival(robot)
	n.logger.WithFields(log.Fields{
		"to":      customer.Email,
		"subject": content.Subject,
	}).Info(content.Body)
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
