package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/community-events/internal/config"
)

func TestNewEmailOptions(t *testing.T) {
	e := NewEmail("from@x.io", []string{"a@x.io"}, WithSubject("hi"), WithText("body"), Header("X-Tag", "1"))
	if e.Subject != "hi" || e.Text != "body" || e.Headers["X-Tag"] != "1" {
		t.Fatalf("email = %+v", e)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage(NewEmail("noreply@x.io", []string{"a@x.io", "b@x.io"},
		WithSubject("Hello"), WithHTML("<b>hi</b>"), WithFromName("Events"))))

	for _, want := range []string{
		"From: \"Events\" <noreply@x.io>\r\n",
		"To: a@x.io, b@x.io\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n",
		"\r\n\r\n<b>hi</b>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message lacks %q:\n%s", want, msg)
		}
	}
}

func TestNewPicksProvider(t *testing.T) {
	if _, ok := New(config.MailConfig{Provider: "smtp", SMTPHost: "h", SMTPPort: 25}, nil).(*SMTPMailer); !ok {
		t.Error("smtp provider did not build SMTPMailer")
	}
	if _, ok := New(config.MailConfig{Provider: "sendgrid", SendGridKey: "k"}, nil).(*SendGridMailer); !ok {
		t.Error("sendgrid provider did not build SendGridMailer")
	}
	if _, ok := New(config.MailConfig{Provider: "pigeon"}, nil).(*LogMailer); !ok {
		t.Error("unknown provider did not fall back to LogMailer")
	}
}

func TestSendGridMailer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key").WithBaseURL(srv.URL)
	err := m.Send(context.Background(), NewEmail("noreply@x.io", []string{"a@x.io"}, WithSubject("S"), WithHTML("<p>x</p>")))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["subject"] != "S" {
		t.Fatalf("payload = %v", got)
	}
}

func TestSendGridMailerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("bad").WithBaseURL(srv.URL)
	if err := m.Send(context.Background(), NewEmail("a@x.io", []string{"b@x.io"})); err == nil {
		t.Fatal("expected error")
	}
}

type failingMailer struct{}

func (failingMailer) Send(context.Context, Email) error { return errors.New("smtp down") }

func TestNotifierTemplates(t *testing.T) {
	lm := NewLogMailer(nil)
	n := NewNotifier(lm, "log", "noreply@x.io", "Events", "https://app.example/", nil)
	ctx := context.Background()

	steps := []struct {
		send func() error
		want string
	}{
		{func() error { return n.VerificationCode(ctx, "a@x.io", "123456") }, "<strong>123456</strong>"},
		{func() error { return n.PasswordResetLink(ctx, "a@x.io", "tok") }, "https://app.example/reset-password?token=tok"},
		{func() error { return n.Welcome(ctx, "a@x.io", "Ann <script>") }, "Ann &lt;script&gt;"},
		{func() error { return n.PasswordIssued(ctx, "a@x.io", "Ann", "Secr3t!x") }, "Secr3t!x"},
		{func() error { return n.PasswordChanged(ctx, "a@x.io") }, "password was changed"},
		{func() error {
			return n.EventReminder(ctx, "a@x.io", "Ann", "Go meetup", time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
		}, "2026-03-01 18:00 UTC"},
		{func() error { return n.MatchRequest(ctx, "a@x.io", "Ann", "Bob", "Go meetup", "") }, "Bob would like to go"},
		{func() error { return n.MatchAccepted(ctx, "a@x.io", "Ann", "Bob", "Go meetup") }, "Bob accepted"},
	}
	for i, s := range steps {
		if err := s.send(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		sent := lm.Sent()
		if body := sent[len(sent)-1].HTML; !strings.Contains(body, s.want) {
			t.Errorf("step %d body lacks %q:\n%s", i, s.want, body)
		}
	}
	if len(lm.Sent()) != len(steps) {
		t.Fatalf("sent %d messages", len(lm.Sent()))
	}
}

func TestNotifierReturnsMailerError(t *testing.T) {
	n := NewNotifier(failingMailer{}, "smtp", "noreply@x.io", "", "http://x", nil)
	if err := n.Welcome(context.Background(), "a@x.io", "Ann"); err == nil {
		t.Fatal("expected error")
	}
}
