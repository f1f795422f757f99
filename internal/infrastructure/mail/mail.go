// Package mail provides outbound mail transports for email-channel orders.
package mail

import (
	"context"
	"errors"
	"strings"
)

// Attachment is one file attached to an outbound message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email. The From address comes from transport
// configuration, not the message, so callers cannot spoof a sender.
type Message struct {
	To          []string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// Validate checks the message has somewhere to go and something to say
func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("mail: message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("mail: blank recipient address")
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail: message has no subject")
	}
	return nil
}

// Transport sends messages. Implementations are safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}
