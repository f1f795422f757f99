package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

// SMTPMailer sends messages through a plain SMTP relay. The stdlib client
// negotiates STARTTLS automatically when the server advertises it.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *zap.Logger
}

// NewSMTPMailer builds a mailer from SMTP settings
func NewSMTPMailer(cfg infraconfig.MailConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("mail: smtp_host is required for the smtp backend")
	}
	if cfg.From == "" {
		return nil, errors.New("mail: from address is required")
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPMailer{
		addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:   cfg.From,
		auth:   auth,
		logger: logger,
	}, nil
}

// Send delivers the message through the configured relay
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := buildMIME(m.from, msg)
	if err != nil {
		return err
	}

	// smtp.SendMail dials per call; the relay connection is not pooled.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, m.auth, m.from, msg.To, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: smtp send: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("mail: smtp send: %w", ctx.Err())
	}

	m.logger.Info("email dispatched",
		zap.String("backend", "smtp"),
		zap.Int("recipients", len(msg.To)),
		zap.Int("attachments", len(msg.Attachments)))

	return nil
}

var _ Transport = (*SMTPMailer)(nil)
