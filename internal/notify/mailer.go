package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/pkg/logger"
)

var ErrNoRecipient = errors.New("message has no recipient")

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain-text mail with PLAIN auth.
type SMTPMailer struct {
	cfg    SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: logger.GetLogger().With(zap.String("component", "mailer")),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.From, []string{msg.To}, compose(m.cfg.From, msg, time.Now()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		m.logger.Info("Mail sent", zap.String("subject", msg.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func compose(from string, msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + sanitizeHeader(msg.To) + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// NopMailer logs and drops messages when SMTP is not configured.
type NopMailer struct {
	Logger *zap.Logger
}

func (n NopMailer) Send(_ context.Context, msg Message) error {
	log := n.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log.Info("Mail not configured, dropping message", zap.String("subject", msg.Subject))
	return nil
}

// ContactMessage is the notification sent to the site owner for a contact
// form submission.
func ContactMessage(owner, name, email, body string) Message {
	return Message{
		To:      owner,
		Subject: "Contact Form Submission from " + name,
		Body:    fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", name, email, body),
	}
}

// ReferenceConfirmation thanks a reference submitter.
func ReferenceConfirmation(name, email string) Message {
	return Message{
		To:      email,
		Subject: "Reference Submission Confirmation",
		Body:    fmt.Sprintf("Thank you, %s, for submitting your reference. Your reference has been recorded successfully!", name),
	}
}
