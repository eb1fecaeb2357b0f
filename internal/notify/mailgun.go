package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig - настройки Mailgun.
type MailgunConfig struct {
	Domain string
	Key    string
}

func (c MailgunConfig) validate() error {
	if c.Domain == "" || c.Key == "" {
		return errors.New("invalid Mailgun configuration")
	}
	return nil
}

// MailgunSender отправляет письма через Mailgun API.
type MailgunSender struct {
	mg      *mailgun.MailgunImpl
	timeout time.Duration
}

func NewMailgunSender(cfg MailgunConfig) *MailgunSender {
	return &MailgunSender{
		mg:      mailgun.NewMailgun(cfg.Domain, cfg.Key),
		timeout: 30 * time.Second,
	}
}

func (s *MailgunSender) Send(ctx context.Context, subject, body, from string, to []string) error {
	if err := checkRecipients(to); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	message := s.mg.NewMessage(from, subject, body, to...)
	if _, _, err := s.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("%w: mailgun: %v", domain.ErrDelivery, err)
	}
	return nil
}
