// Package mailer sends transactional email through a pluggable provider.
package mailer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
)

// Mailer delivers one Email.  SMTPMailer, SendGridMailer and LogMailer are
// the implementations; callers choose one through New.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type Email struct {
	From     string
	FromName string
	To       []string
	Subject  string
	Text     string
	HTML     string
	Headers  map[string]string
}

type EmailOption func(*Email)

func NewEmail(from string, to []string, opts ...EmailOption) Email {
	e := Email{From: from, To: to}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func WithSubject(sub string) EmailOption {
	return func(e *Email) { e.Subject = sub }
}

func WithText(text string) EmailOption {
	return func(e *Email) { e.Text = text }
}

func WithHTML(html string) EmailOption {
	return func(e *Email) { e.HTML = html }
}

func WithFromName(name string) EmailOption {
	return func(e *Email) { e.FromName = name }
}

func Header(key, value string) EmailOption {
	return func(e *Email) {
		if e.Headers == nil {
			e.Headers = make(map[string]string)
		}
		e.Headers[key] = value
	}
}

// New builds the Mailer selected by cfg.Provider.  Unknown providers fall
// back to logging.
func New(cfg config.MailConfig, log *zap.Logger) Mailer {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		return &SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			UseAuth:  cfg.SMTPUser != "",
		}
	case "sendgrid":
		return NewSendGridMailer(cfg.SendGridKey)
	default:
		return NewLogMailer(log)
	}
}
