package sender

import (
	"context"
	"errors"
	"mime"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() SMTPConfig {
	return SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "store@example.com", Password: "secret", FromName: "NUMBER 6 Store"}
}

func TestNewSMTPSender_MissingSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""
	_, err := NewSMTPSender(cfg)
	assert.EqualError(t, err, "SMTP_PASS not set")

	cfg = testConfig()
	cfg.Host = ""
	_, err = NewSMTPSender(cfg)
	assert.EqualError(t, err, "SMTP_HOST not set")
}

func TestSendEmail_BuildsMessage(t *testing.T) {
	s, err := NewSMTPSender(testConfig())
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	res, err := s.SendEmail(context.Background(), "admin@example.com", "طلب جديد #42", "<p>hi</p>")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "store@example.com", gotFrom)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, `From: "NUMBER 6 Store" <store@example.com>`)
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))

	var subject string
	for _, line := range strings.Split(msg, "\r\n") {
		if strings.HasPrefix(line, "Subject: ") {
			subject = strings.TrimPrefix(line, "Subject: ")
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "طلب جديد #42", decoded)
}

func TestSendEmail_TransportError(t *testing.T) {
	s, err := NewSMTPSender(testConfig())
	require.NoError(t, err)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	_, err = s.SendEmail(context.Background(), "admin@example.com", "x", "y")
	assert.ErrorContains(t, err, "smtp send failed")
}

func TestSendEmail_CancelledContext(t *testing.T) {
	s, err := NewSMTPSender(testConfig())
	require.NoError(t, err)
	called := false
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SendEmail(ctx, "admin@example.com", "x", "y")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
