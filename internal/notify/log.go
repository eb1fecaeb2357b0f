package notify

import (
	"context"
	"fmt"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// LogSender пишет письма в лог вместо отправки. Используется в разработке.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, subject, body, from string, to []string) error {
	if err := checkRecipients(to); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	s.log.WithFields(logrus.Fields{
		"from":    from,
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}
