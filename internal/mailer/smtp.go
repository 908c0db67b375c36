package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"
)

type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	UseAuth   bool
	TLSConfig *tls.Config
	Timeout   time.Duration
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.TLSConfig != nil {
		return m.TLSConfig
	}
	if m.Host == "localhost" {
		return &tls.Config{InsecureSkipVerify: true, ServerName: m.Host}
	}
	return &tls.Config{ServerName: m.Host}
}

// buildMessage renders headers in a stable order followed by the body.  HTML
// wins over text when both are set.
func buildMessage(e Email) []byte {
	from := e.From
	if e.FromName != "" {
		from = fmt.Sprintf("%q <%s>", e.FromName, e.From)
	}
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(e.To, ", "),
		"Subject":      e.Subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/plain; charset="UTF-8"`,
	}
	if e.HTML != "" {
		headers["Content-Type"] = `text/html; charset="UTF-8"`
	}
	for k, v := range e.Headers {
		headers[k] = v
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}
	msg.WriteString("\r\n")
	if e.HTML != "" {
		msg.WriteString(e.HTML)
	} else {
		msg.WriteString(e.Text)
	}
	return []byte(msg.String())
}

// Send delivers e over SMTP.  Port 465 uses implicit TLS; other ports use
// smtp.SendMail, which upgrades with STARTTLS when the server offers it.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := buildMessage(e)

	var auth smtp.Auth
	if m.UseAuth {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	if m.Port != 465 {
		return smtp.SendMail(addr, auth, e.From, e.To, msg)
	}

	timeout := m.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: timeout}, Config: m.tlsConfig()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(e.From); err != nil {
		return err
	}
	for _, rcpt := range e.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
