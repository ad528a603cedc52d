package mailer

import (
	"context"

	"github.com/ignite/courier/internal/pkg/logger"
)

// LogMailer writes messages to the structured log instead of sending them.
// Default backend for local development.
type LogMailer struct{}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send logs the message envelope. Bodies are omitted to keep log lines
// short.
func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	logger.Info("mail send (log backend)",
		"to", msg.To,
		"from", msg.From(),
		"subject", msg.Subject,
		"html_bytes", len(msg.HTMLBody),
		"plain_bytes", len(msg.PlainBody))
	return nil
}
