package notify

import (
	"context"
	"testing"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender(t *testing.T) {
	log, _ := test.NewNullLogger()

	tests := []struct {
		name    string
		cfg     Config
		want    any
		wantErr bool
	}{
		{name: "default is log", cfg: Config{}, want: &LogSender{}},
		{name: "log", cfg: Config{Provider: "log"}, want: &LogSender{}},
		{name: "mailgun", cfg: Config{Provider: "mailgun", Mailgun: MailgunConfig{Domain: "mg.example.com", Key: "key"}}, want: &MailgunSender{}},
		{name: "mailgun without key", cfg: Config{Provider: "mailgun", Mailgun: MailgunConfig{Domain: "mg.example.com"}}, wantErr: true},
		{name: "sendgrid", cfg: Config{Provider: "sendgrid", SendGrid: SendGridConfig{Key: "key"}}, want: &SendGridSender{}},
		{name: "sendgrid without key", cfg: Config{Provider: "sendgrid"}, wantErr: true},
		{name: "unknown", cfg: Config{Provider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.cfg, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, sender)
		})
	}
}

func TestLogSender(t *testing.T) {
	log, hook := test.NewNullLogger()
	sender := NewLogSender(log)

	err := sender.Send(context.Background(), "Hello", "Body text", "blog@example.com", []string{"friend@example.com"})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Body text", entry.Message)
	assert.Equal(t, "Hello", entry.Data["subject"])
	assert.Equal(t, []string{"friend@example.com"}, entry.Data["to"])
}

func TestSenders_NoRecipients(t *testing.T) {
	log, _ := test.NewNullLogger()
	senders := []Sender{
		NewLogSender(log),
		NewMailgunSender(MailgunConfig{Domain: "mg.example.com", Key: "key"}),
		NewSendGridSender(SendGridConfig{Key: "key"}),
	}
	for _, s := range senders {
		err := s.Send(context.Background(), "s", "b", "from@example.com", nil)
		assert.ErrorIs(t, err, domain.ErrDelivery)
	}
}

func TestBuildSendGridMessage(t *testing.T) {
	m := buildSendGridMessage("Subject", "Body", "from@example.com", []string{"a@example.com", "b@example.com"})

	assert.Equal(t, "Subject", m.Subject)
	assert.Equal(t, "from@example.com", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	assert.Len(t, m.Personalizations[0].To, 2)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "Body", m.Content[0].Value)
}
