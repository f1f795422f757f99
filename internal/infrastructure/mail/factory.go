package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

// NewFromConfig builds the configured mail transport
func NewFromConfig(ctx context.Context, cfg infraconfig.MailConfig, logger *zap.Logger) (Transport, error) {
	switch cfg.Backend {
	case "smtp":
		logger.Info("using smtp mail transport", zap.String("host", cfg.SMTPHost))
		return NewSMTPMailer(cfg, logger)
	case "ses":
		logger.Info("using ses mail transport", zap.String("region", cfg.SESRegion))
		return NewSESMailer(ctx, cfg, logger)
	case "log":
		logger.Warn("using log mail transport; email-channel orders will not be dispatched")
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("mail: unknown backend %q", cfg.Backend)
	}
}
