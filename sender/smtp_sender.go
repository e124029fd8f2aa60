package sender

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig holds the SMTP relay settings. FromName is the display name on
// the From header; the address is always Username.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	messageID := uuid.NewString()
	msg := s.buildMessage(to, subject, body, messageID)

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := s.send(addr, auth, s.cfg.Username, []string{to}, msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}

	return SendResult{MessageID: messageID, SentAt: time.Now()}, nil
}

func (s *SMTPSender) buildMessage(to, subject, body, messageID string) []byte {
	from := (&mail.Address{Name: s.cfg.FromName, Address: s.cfg.Username}).String()

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	// subjects are Arabic, so they must be RFC 2047 encoded
	b.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", subject) + "\r\n")
	b.WriteString("Message-ID: <" + messageID + "@" + s.cfg.Host + ">\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
