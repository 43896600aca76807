package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

// Email is a plain-text transactional message addressed to one recipient.
type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Validate checks the fields every provider requires.
func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("email recipient required")
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("email subject required")
	}
	return nil
}

// Mailer delivers transactional email. Failures are reported to the caller and
// never retried here.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer writes emails to the structured log instead of delivering them.
// It is used when no SendGrid key is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if m.logg == nil {
		return nil
	}
	ctx = m.logg.WithFields(ctx, map[string]any{
		"email_to":      email.To,
		"email_subject": email.Subject,
	})
	m.logg.Info(ctx, "email delivery skipped (log mailer)")
	return nil
}
