package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "shop", Password: "secret", From: "shop@example.com",
	})

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  string
	)
	mailer.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		assert.Equal(t, "shop@example.com", from)
		return nil
	}

	err := mailer.Send(context.Background(), Mail{To: "jane@example.com", Subject: "Hello", Body: "line one\nline two"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hello\r\n")
	assert.Contains(t, gotMsg, "To: jane@example.com\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nline one\r\nline two")
}

func TestSMTPMailer_NoAuthWithoutUsername(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "shop@example.com"})
	mailer.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Nil(t, a)
		return errors.New("connection refused")
	}

	err := mailer.Send(context.Background(), Mail{To: "jane@example.com"})
	require.ErrorContains(t, err, "connection refused")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25})
	mailer.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send should not be attempted")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, mailer.Send(ctx, Mail{To: "x@example.com"}), context.Canceled)
}
