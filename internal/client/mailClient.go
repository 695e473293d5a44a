package client

import (
	"context"
	"coursecart/internal/config"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

var ErrMailNotConfigured = errors.New("resend api key not configured")

type Email struct {
	To      string
	Subject string
	HTML    string
}

type MailClient interface {
	// Send dispatches one message and returns the provider message id.
	Send(ctx context.Context, email *Email) (string, error)
}

type resendClientImpl struct {
	client *resend.Client
	from   string
}

func NewResendClient(cfg *config.Resend) MailClient {
	impl := &resendClientImpl{from: cfg.FromEmail}
	if cfg.APIKey != "" {
		impl.client = resend.NewClient(cfg.APIKey)
	}
	return impl
}

func (c *resendClientImpl) Send(ctx context.Context, email *Email) (string, error) {
	if c.client == nil {
		return "", ErrMailNotConfigured
	}

	sent, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend send email: %w", err)
	}

	return sent.Id, nil
}
