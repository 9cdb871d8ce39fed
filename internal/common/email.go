package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an outbound e-mail.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// InMemoryMailer records messages for tests.
type InMemoryMailer struct {
	mu     sync.Mutex
	Outbox []Message
}

// Send records the message in memory.
func (m *InMemoryMailer) Send(_ context.Context, msg Message) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	m.Outbox = append(m.Outbox, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the outbox.
func (m *InMemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Outbox...)
}

// LogMailer writes a log line instead of delivering.
type LogMailer struct {
	Logger zerolog.Logger
}

// Send implements Mailer.
func (l LogMailer) Send(_ context.Context, msg Message) error {
	l.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("mail_dispatched")
	return nil
}
