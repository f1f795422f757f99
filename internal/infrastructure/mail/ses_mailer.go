package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

// SESMailer sends messages through AWS SESv2. Attachments require the raw
// MIME content path; the simple content API has no attachment support.
type SESMailer struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

// NewSESMailer builds a mailer using the ambient AWS credential chain
func NewSESMailer(ctx context.Context, cfg infraconfig.MailConfig, logger *zap.Logger) (*SESMailer, error) {
	if cfg.From == "" {
		return nil, errors.New("mail: from address is required")
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.SESRegion != "" {
		opts = append(opts, config.WithRegion(cfg.SESRegion))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: load aws config: %w", err)
	}

	return &SESMailer{
		client: sesv2.NewFromConfig(awsCfg),
		from:   cfg.From,
		logger: logger,
	}, nil
}

// Send delivers the message through SES
func (m *SESMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	raw, err := buildMIME(m.from, msg)
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: msg.To},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: raw},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("mail: ses send: %w", err)
	}

	m.logger.Info("email dispatched",
		zap.String("backend", "ses"),
		zap.Int("recipients", len(msg.To)),
		zap.Int("attachments", len(msg.Attachments)))

	return nil
}

var _ Transport = (*SESMailer)(nil)
