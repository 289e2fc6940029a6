// Package mailer dispatches out-of-band notifications for the auth flow.
// The only message today is the password reset link. Delivery goes over
// SMTP when configured; in development the link is logged instead so the
// flow stays testable without a mail server.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/parleychat/parley/internal/config"
)

// Mailer is the contract the auth service uses to dispatch reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// New returns an SMTP-backed mailer when a host is configured, otherwise
// a development mailer that logs the link.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		slog.Warn("SMTP_HOST not set, password reset links will be logged instead of mailed")
		return &logMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

// --- SMTP delivery ---

// smtpMailer sends mail over STARTTLS (port 587 typical).
type smtpMailer struct {
	cfg config.SMTPConfig
}

// SendPasswordReset sends the reset link to a single recipient.
func (m *smtpMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	from := mail.Address{Name: "Parley", Address: m.cfg.From}

	body := "A password reset was requested for your Parley account.\r\n\r\n" +
		"Open this link within 15 minutes to choose a new password:\r\n\r\n" +
		link + "\r\n\r\n" +
		"If you did not request a reset, you can ignore this message."

	// Build RFC 2822 message.
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString("Subject: Reset your Parley password\r\n")
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	return m.sendStartTLS(addr, m.cfg.Host, from.Address, to, msg.String())
}

// sendStartTLS connects, upgrades to TLS, authenticates if credentials
// are configured, and sends the message.
func (m *smtpMailer) sendStartTLS(addr, host, from, to, msg string) error {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if m.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// --- Development fallback ---

// logMailer logs reset links instead of delivering them.
type logMailer struct{}

func (l *logMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	slog.Info("password reset link (mail disabled)",
		slog.String("to", to),
		slog.String("link", link),
	)
	return nil
}
