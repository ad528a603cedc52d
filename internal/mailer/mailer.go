// Package mailer abstracts the email delivery backend. The delivery job
// only speaks Mailer; SES and the development log backend plug in behind it.
package mailer

import (
	"context"
	"fmt"
)

// Message is one fully rendered email ready for dispatch.
type Message struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	HTMLBody  string
	PlainBody string

	// UnsubscribeURL, when set, is emitted as a List-Unsubscribe header so
	// mail clients can surface their native unsubscribe control.
	UnsubscribeURL string
}

// From formats the RFC 5322 From header value.
func (m *Message) From() string {
	if m.FromName == "" {
		return m.FromEmail
	}
	return fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail)
}

// Mailer sends one message per call. Implementations return an error for a
// failed attempt; the caller decides whether that fails the whole run or
// just tallies a bounce.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
