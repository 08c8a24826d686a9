package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 15 * time.Second
)

// SMTPConfig — параметры почтового сервера и адрес отправителя.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Адрес отправителя писем.
	From string
	// TLS: "mandatory", "opportunistic" (по умолчанию) или "none".
	TLS     string
	Timeout time.Duration
}

// Validate проверяет обязательные поля конфигурации.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return errors.New("smtp host is required")
	}
	if c.From == "" {
		return errors.New("smtp sender address is required")
	}
	switch c.TLS {
	case "", "mandatory", "opportunistic", "none":
		return nil
	default:
		return fmt.Errorf("unsupported smtp tls policy %q", c.TLS)
	}
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier отправляет уведомления по SMTP.
type SMTPNotifier struct {
	from   string
	sender mailSender
	logger *log.Entry
}

// NewSMTPNotifier создаёт notifier поверх go-mail клиента.
func NewSMTPNotifier(cfg SMTPConfig, logger *log.Entry) (*SMTPNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return newSMTPNotifier(cfg.From, client, logger), nil
}

func newSMTPNotifier(from string, sender mailSender, logger *log.Entry) *SMTPNotifier {
	if logger == nil {
		logger = log.WithField("component", "notify-smtp")
	}
	return &SMTPNotifier{from: from, sender: sender, logger: logger}
}

func tlsPolicy(value string) mail.TLSPolicy {
	switch value {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// Notify отправляет клиенту письмо о поступлении робота.
func (n *SMTPNotifier) Notify(ctx context.Context, customer domain.Customer, robot domain.Robot) error {
	if customer.Email == "" {
		return domain.ErrEmailRequired
	}

	content := ComposeArrival(robot)
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(customer.Email); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(content.Subject)
	msg.SetBodyString(mail.TypeTextPlain, content.Body)

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.WithFields(log.Fields{
		"to":     customer.Email,
		"serial": robot.Serial,
	}).Debug("arrival notification sent")
	return nil
}

var _ domain.Notifier = (*SMTPNotifier)(nil)
