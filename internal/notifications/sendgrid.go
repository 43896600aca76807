package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sharebridge/sharebridge-backend/pkg/config"
)

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers email through the SendGrid v3 mail send API.
type SendGridMailer struct {
	client  sendgridClient
	from    *mail.Email
	timeout time.Duration
	sandbox bool
}

// NewSendGridMailer builds a mailer from config. The API key must be set.
func NewSendGridMailer(cfg config.SendgridConfig) (*SendGridMailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	return newSendGridMailer(sendgrid.NewSendClient(cfg.APIKey), cfg)
}

func newSendGridMailer(client sendgridClient, cfg config.SendgridConfig) (*SendGridMailer, error) {
	if client == nil {
		return nil, fmt.Errorf("sendgrid client required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from address required")
	}
	return &SendGridMailer{
		client:  client,
		from:    mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		timeout: cfg.Timeout,
		sandbox: cfg.Sandbox,
	}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	message := mail.NewSingleEmail(m.from, email.Subject, mail.NewEmail(email.ToName, email.To), email.Body, "")
	if m.sandbox {
		settings := mail.NewMailSettings()
		settings.SetSandboxMode(mail.NewSetting(true))
		message.SetMailSettings(settings)
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("sendgrid send: empty response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}
