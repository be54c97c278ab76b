package mailer

import (
	"context"
	"fmt"

	"github.com/mvlbulankin/yamdb-final/internal/config"
)

// Sender delivers a single plain-text email. Delivery is best effort.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is one delivered email as recorded in the outbox.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// New builds the sender selected by cfg.MailBackend, wrapped in a rate limiter.
func New(cfg *config.Config) (Sender, error) {
	var base Sender
	switch cfg.MailBackend {
	case "smtp":
		base = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	case "file":
		fs, err := NewFileSender(cfg.MailOutboxPath, cfg.MailFrom)
		if err != nil {
			return nil, fmt.Errorf("open mail outbox: %w", err)
		}
		base = fs
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.MailBackend)
	}
	return NewThrottled(base, cfg.MailRatePerSecond, cfg.MailBurst), nil
}
