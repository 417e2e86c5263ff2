/**
 * @description
 * Magic-code delivery.
 * Production deployments send codes over SMTP; development falls back to a
 * mailer that writes the code to the application log.
 *
 * @dependencies
 * - standard "net/smtp"
 */

package auth

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/polaris-starter/backend/internal/config"
	"github.com/polaris-starter/backend/internal/logger"
)

// Mailer delivers one-time sign-in codes
type Mailer interface {
	SendMagicCode(ctx context.Context, email, code string) error
}

// NewMailer picks the SMTP mailer when configured, the log mailer otherwise
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// LogMailer writes codes to the log instead of sending email
type LogMailer struct{}

func (m *LogMailer) SendMagicCode(_ context.Context, email, code string) error {
	logger.Info("📧 [dev mailer] magic code for %s: %s", email, code)
	return nil
}

// SMTPMailer sends codes via a plain-auth SMTP relay
type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) SendMagicCode(_ context.Context, email, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your sign-in code\r\n\r\nYour one-time sign-in code is %s. It expires shortly.\r\n",
		m.cfg.From, email, code,
	)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send magic code email: %w", err)
	}
	return nil
}
