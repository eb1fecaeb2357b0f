// Package notify отправляет письма "поделиться постом" через внешнего провайдера.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sender - шлюз отправки писем. Ошибка транспорта оборачивает domain.ErrDelivery.
type Sender interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

// Config - настройки провайдера почты.
type Config struct {
	Provider string
	Mailgun  MailgunConfig
	SendGrid SendGridConfig
}

// NewSender выбирает реализацию по имени провайдера.
func NewSender(cfg Config, log logrus.FieldLogger) (Sender, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogSender(log), nil
	case "mailgun":
		if err := cfg.Mailgun.validate(); err != nil {
			return nil, err
		}
		return NewMailgunSender(cfg.Mailgun), nil
	case "sendgrid":
		if err := cfg.SendGrid.validate(); err != nil {
			return nil, err
		}
		return NewSendGridSender(cfg.SendGrid), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func checkRecipients(to []string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	return nil
}
