package mailer

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LogMailer writes messages to the application log instead of sending them.
// It keeps the sent messages so development and tests can inspect them.
type LogMailer struct {
	log  *zap.Logger
	mu   sync.Mutex
	sent []Email
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	m.sent = append(m.sent, e)
	m.mu.Unlock()
	body := e.Text
	if body == "" {
		body = e.HTML
	}
	m.log.Info("email (not sent)",
		zap.String("to", strings.Join(e.To, ",")),
		zap.String("subject", e.Subject),
		zap.String("body", body))
	return nil
}

// Sent returns a copy of every message passed to Send.
func (m *LogMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}
