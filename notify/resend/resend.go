// Package resend delivers authgate email codes through the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"time"

	resendsdk "github.com/resend/resend-go/v3"
)

// emailSender is the slice of the Resend client this package calls.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resendsdk.SendEmailRequest) (*resendsdk.SendEmailResponse, error)
}

// Config selects the sender and message shape. With TemplateID set the
// message is rendered by a Resend template receiving the variables "code"
// and "ttl_minutes"; otherwise a plain-text body is sent with Subject.
type Config struct {
	APIKey     string
	From       string
	TemplateID string
	Subject    string
}

// Notifier implements authgate.Notifier.
type Notifier struct {
	emails     emailSender
	from       string
	templateID string
	subject    string
}

// New builds a Notifier from cfg.
func New(cfg Config) (*Notifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend: api key required")
	}
	client := resendsdk.NewClient(cfg.APIKey)
	return newNotifier(client.Emails, cfg)
}

func newNotifier(emails emailSender, cfg Config) (*Notifier, error) {
	if cfg.From == "" {
		return nil, errors.New("resend: from address required")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "Your sign-in code"
	}
	return &Notifier{
		emails:     emails,
		from:       cfg.From,
		templateID: cfg.TemplateID,
		subject:    subject,
	}, nil
}

// SendCode sends one message carrying code.
func (n *Notifier) SendCode(ctx context.Context, address, code string, ttl time.Duration) error {
	if address == "" {
		return errors.New("resend: empty recipient")
	}

	minutes := int(ttl.Round(time.Minute) / time.Minute)
	params := &resendsdk.SendEmailRequest{
		From: n.from,
		To:   []string{address},
	}
	if n.templateID != "" {
		params.Template = &resendsdk.EmailTemplate{
			Id: n.templateID,
			Variables: map[string]any{
				"code":        code,
				"ttl_minutes": minutes,
			},
		}
	} else {
		params.Subject = n.subject
		params.Text = fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.", code, minutes)
	}

	if _, err := n.emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: send: %w", err)
	}
	return nil
}
