package service

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"cropplanner/internal/config"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends account emails
type Mailer interface {
	// SendRegistration reports whether the provider accepted the message
	SendRegistration(ctx context.Context, toEmail, name string) (bool, error)
}

// sendFunc matches sendgrid.Client.SendWithContext
type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error)

// SendGridMailer delivers email through the SendGrid v3 API
type SendGridMailer struct {
	from *mail.Email
	send sendFunc
}

// NewSendGridMailer creates a mailer for the configured sender
func NewSendGridMailer(cfg config.EmailConfig) *SendGridMailer {
	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	return &SendGridMailer{
		from: mail.NewEmail(cfg.FromName, cfg.FromEmail),
		send: client.SendWithContext,
	}
}

// SendRegistration sends the registration confirmation
func (m *SendGridMailer) SendRegistration(ctx context.Context, toEmail, name string) (bool, error) {
	to := mail.NewEmail(name, toEmail)
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your registration was successful!</p>", html.EscapeString(name))
	msg := mail.NewSingleEmail(m.from, "Registration Confirmation", to, "", body)

	resp, err := m.send(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return false, fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return true, nil
}

// NoopMailer is used when email is not configured
type NoopMailer struct{}

// SendRegistration never sends anything
func (NoopMailer) SendRegistration(context.Context, string, string) (bool, error) {
	return false, nil
}
