package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"trackerwatch/internal/config"
	"trackerwatch/internal/model"
)

// Email sends transition events over SMTP as an HTML message.
type Email struct {
	cfg config.EmailConfig
}

// NewEmail creates an SMTP channel.
func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg}
}

// Name implements Notifier.
func (e *Email) Name() string { return "email" }

func (e *Email) useTLS() bool {
	if e.cfg.UseTLS == nil {
		return true
	}
	return *e.cfg.UseTLS
}

// Send implements Notifier.
func (e *Email) Send(ctx context.Context, event model.TransitionEvent) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)

	conn, err := (&net.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	c, err := smtp.NewClient(conn, e.cfg.SMTPServer)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if e.useTLS() {
		if err := c.StartTLS(&tls.Config{ServerName: e.cfg.SMTPServer}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if e.cfg.Username != "" && e.cfg.Password != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPServer)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(e.cfg.FromAddress); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(e.cfg.ToAddress); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(buildEmail(e.cfg.FromAddress, e.cfg.ToAddress, event))); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return c.Quit()
}

// buildEmail renders the full RFC 5322 message with an HTML body.
func buildEmail(from, to string, event model.TransitionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s - Signup Open!\r\n", event.TrackerName)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("<html><body>\r\n")
	fmt.Fprintf(&b, "<h2>%s - Signup Open!</h2>\r\n", event.TrackerName)
	fmt.Fprintf(&b, "<p>%s</p>\r\n", event.Message)
	fmt.Fprintf(&b, "<p><a href=%q>Click here to signup</a></p>\r\n", event.Link())
	b.WriteString("<hr>\r\n")
	fmt.Fprintf(&b, "<p><small>Tracker Monitor - %s</small></p>\r\n",
		event.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("</body></html>\r\n")
	return b.String()
}
