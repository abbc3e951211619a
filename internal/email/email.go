// Package email sends transactional mail. The only implementation talks
// plain SMTP, which is all the verification flow needs.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Sender delivers a single message to one recipient.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMTPSender sends mail through a relay using AUTH PLAIN.
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTP constructs a sender for the given relay.
func NewSMTP(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("recipient is required")
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// VerificationBody renders the body of a verification code message.
func VerificationBody(code int) string {
	return fmt.Sprintf("Your verification code is %06d.\r\n\r\nIf you did not request this code, you can ignore this message.", code)
}

// LoginAlertBody renders the body of a new-login notification.
func LoginAlertBody(username, hostname, platform string, at time.Time) string {
	if hostname == "" {
		hostname = "an unknown device"
	}
	return fmt.Sprintf("Hi %s,\r\n\r\nYour account was signed in from %s (%s) at %s.\r\n\r\nIf this was not you, change your password.",
		username, hostname, platform, at.Format(time.RFC1123))
}
