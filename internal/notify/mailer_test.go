package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newCapturingMailer(err error) (*SMTPMailer, *captured) {
	c := &captured{}
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Username: "me@example.com", Password: "pw"})
	m.logger = zap.NewNop()
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
		return err
	}
	return m, c
}

func TestSMTPMailer_Send(t *testing.T) {
	m, c := newCapturingMailer(nil)

	err := m.Send(context.Background(), ContactMessage("owner@example.com", "Jane", "jane@example.com", "Hi\nthere"))
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, "me@example.com", c.from)
	assert.Equal(t, []string{"owner@example.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Contact Form Submission from Jane\r\n")
	assert.True(t, strings.HasSuffix(c.msg, "\r\n\r\nName: Jane\r\nEmail: jane@example.com\r\nMessage: Hi\r\nthere"))
}

func TestSMTPMailer_Errors(t *testing.T) {
	m, _ := newCapturingMailer(errors.New("550 rejected"))

	err := m.Send(context.Background(), ReferenceConfirmation("Sam", "sam@example.com"))
	assert.ErrorContains(t, err, "550 rejected")

	err = m.Send(context.Background(), Message{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSMTPMailer_ContextCancel(t *testing.T) {
	m, _ := newCapturingMailer(nil)
	block := make(chan struct{})
	defer close(block)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.co"}), context.DeadlineExceeded)
}

func TestComposeStripsHeaderInjection(t *testing.T) {
	msg := compose("from@example.com", Message{To: "to@example.com", Subject: "Hi\r\nBcc: evil@example.com", Body: "b"}, time.Unix(0, 0).UTC())
	assert.NotContains(t, string(msg), "\r\nBcc:")
}

func TestReferenceConfirmation(t *testing.T) {
	msg := ReferenceConfirmation("Sam", "sam@example.com")
	assert.Equal(t, "sam@example.com", msg.To)
	assert.Equal(t, "Reference Submission Confirmation", msg.Subject)
	assert.Equal(t, "Thank you, Sam, for submitting your reference. Your reference has been recorded successfully!", msg.Body)
}

func TestNopMailer(t *testing.T) {
	assert.NoError(t, NopMailer{Logger: zap.NewNop()}.Send(context.Background(), Message{Subject: "x"}))
}
