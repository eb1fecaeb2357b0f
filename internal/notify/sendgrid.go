package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridConfig - настройки SendGrid.
type SendGridConfig struct {
	Key string
}

func (c SendGridConfig) validate() error {
	if c.Key == "" {
		return errors.New("invalid SendGrid configuration")
	}
	return nil
}

// SendGridSender отправляет письма через SendGrid v3 API.
type SendGridSender struct {
	client  *sendgrid.Client
	timeout time.Duration
}

func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	return &SendGridSender{
		client:  sendgrid.NewSendClient(cfg.Key),
		timeout: 30 * time.Second,
	}
}

// buildSendGridMessage собирает письмо с одним получателем на каждый адрес.
func buildSendGridMessage(subject, body, from string, to []string) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", from))
	m.Subject = subject

	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", body))
	return m
}

func (s *SendGridSender) Send(ctx context.Context, subject, body, from string, to []string) error {
	if err := checkRecipients(to); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.client.SendWithContext(ctx, buildSendGridMessage(subject, body, from, to))
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", domain.ErrDelivery, err)
	}
	if response.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: sendgrid: status code %d", domain.ErrDelivery, response.StatusCode)
	}
	return nil
}
