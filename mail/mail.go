// Package mail provides outbound email delivery for the authentication
// flows: an SMTP sender for real deployments and a log-only sender for
// development.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the transport settings for [SMTPSender].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail over SMTP. Safe for concurrent use.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender validates cfg and returns an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("smtp host and port required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address required")
	}
	return &SMTPSender{config: cfg}, nil
}

// Send delivers a single plain-text message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	msg := strings.Join([]string{
		"From: " + s.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Intended for
// development and tests.
type LogSender struct {
	Log *slog.Logger
}

// Send records the message in the log and always succeeds.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("outbound email", "to", to, "subject", subject, "body", body)
	return nil
}
