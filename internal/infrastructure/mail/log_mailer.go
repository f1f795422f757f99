package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer is the development backend: it records every message to the log
// and delivers nothing. Config validation blocks it in production.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it
func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	attachments := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, att.Filename)
	}

	m.logger.Info("email suppressed by log backend",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", attachments))

	return nil
}

var _ Transport = (*LogMailer)(nil)
