package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLogMailer_Send(t *testing.T) {
	mailer := NewLogMailer(zap.NewNop())

	t.Run("accepts a valid message without dispatching", func(t *testing.T) {
		msg := &Message{
			To:       []string{"orders@localharvest.example"},
			Subject:  "Order Request",
			TextBody: "body",
		}
		assert.NoError(t, mailer.Send(context.Background(), msg))
	})

	t.Run("still validates", func(t *testing.T) {
		assert.Error(t, mailer.Send(context.Background(), &Message{Subject: "no recipients"}))
	})
}
