package mailer

import (
	"context"
	"io"
	"os"
	"strconv"

	"backend/pkg/apperr"
	"backend/pkg/logger"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is the transport-agnostic email shape accepted by the adapter.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer dispatches transactional email. Implementations report failures as
// apperr.Delivery errors so callers can apply the ordered-effects policy.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ConfigFromEnv reads SMTP settings from the environment with dev fallbacks.
func ConfigFromEnv() Config {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil || port == 0 {
		port = 587
	}
	cfg := Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.From == "" {
		cfg.From = "no-reply@localhost"
	}
	return cfg
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

// NewSMTPMailer returns a Mailer backed by an SMTP dialer.
func NewSMTPMailer(cfg Config) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    logger.WithComponent("mailer"),
	}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		gm.Attach(att.Filename, settings...)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		m.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("email dispatch failed")
		return apperr.Wrap(apperr.Delivery, err, "failed to send email")
	}

	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}
