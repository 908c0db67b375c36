package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/metrics"
)

// Notifier renders the application's emails and hands them to a Mailer.
type Notifier struct {
	mailer      Mailer
	provider    string
	from        string
	fromName    string
	frontendURL string
	log         *zap.Logger
}

func NewNotifier(m Mailer, provider, from, fromName, frontendURL string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		mailer:      m,
		provider:    provider,
		from:        from,
		fromName:    fromName,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

func (n *Notifier) send(ctx context.Context, to, subject, tmpl string, data any) error {
	html, err := render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	e := NewEmail(n.from, []string{to}, WithSubject(subject), WithHTML(html), WithFromName(n.fromName))
	if err := n.mailer.Send(ctx, e); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(n.provider, "error").Inc()
		n.log.Error("send email failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return err
	}
	metrics.EmailsSentTotal.WithLabelValues(n.provider, "ok").Inc()
	return nil
}

func (n *Notifier) VerificationCode(ctx context.Context, to, code string) error {
	return n.send(ctx, to, "Email confirmation code", "verification", map[string]string{"Code": code})
}

// ResetURL is the frontend link carried by password reset emails.
func (n *Notifier) ResetURL(token string) string {
	return n.frontendURL + "/reset-password?token=" + token
}

func (n *Notifier) PasswordResetLink(ctx context.Context, to, token string) error {
	return n.send(ctx, to, "Password recovery", "reset", map[string]string{"URL": n.ResetURL(token)})
}

func (n *Notifier) Welcome(ctx context.Context, to, name string) error {
	return n.send(ctx, to, "Welcome!", "welcome", map[string]string{"Name": name})
}

func (n *Notifier) PasswordIssued(ctx context.Context, to, name, password string) error {
	return n.send(ctx, to, "Your new password", "password", map[string]string{"Name": name, "Password": password})
}

func (n *Notifier) PasswordChanged(ctx context.Context, to string) error {
	return n.send(ctx, to, "Password changed", "changed", nil)
}

func (n *Notifier) EventReminder(ctx context.Context, to, name, title string, start time.Time) error {
	return n.send(ctx, to, "Event reminder", "reminder", map[string]string{
		"Name":  name,
		"Title": title,
		"Start": start.UTC().Format("2006-01-02 15:04 MST"),
	})
}

func (n *Notifier) MatchRequest(ctx context.Context, to, name, from, title, message string) error {
	return n.send(ctx, to, "New companion request: "+title, "match_request", map[string]string{
		"Name": name, "From": from, "Title": title, "Message": message,
	})
}

func (n *Notifier) MatchAccepted(ctx context.Context, to, name, from, title string) error {
	return n.send(ctx, to, "Request accepted: "+title, "match_accepted", map[string]string{
		"Name": name, "From": from, "Title": title,
	})
}
