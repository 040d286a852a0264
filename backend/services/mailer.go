package services

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Email struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	from     string
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: "Apollo",
		from:     from,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.from),
		e.Subject,
		mail.NewEmail(e.ToName, e.ToEmail),
		e.Text,
		"",
	)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer is used when no email provider is configured.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) Send(_ context.Context, e Email) error {
	if m.Logger != nil {
		m.Logger.Printf("email to %s: %s", e.ToEmail, e.Subject)
	}
	return nil
}
