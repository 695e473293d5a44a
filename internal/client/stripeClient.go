package client

import (
	"context"
	"coursecart/internal/config"
	"coursecart/internal/model"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

var (
	ErrWebhookNotConfigured = errors.New("stripe webhook secret not configured")
	ErrInvalidSignature     = errors.New("invalid stripe signature")
)

type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error)
	// VerifyWebhookSignature checks the Stripe-Signature header against the
	// raw payload and returns the decoded envelope.
	VerifyWebhookSignature(payload []byte, signatureHeader string) (*model.StripeEvent, error)
}

type LineItem struct {
	PriceID  string
	Quantity int64
}

type CheckoutSessionRequest struct {
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
}

type CheckoutSessionResult struct {
	SessionID string
	URL       string
}

type stripeClientImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) PaymentClient {
	api := &stripeclient.API{}
	api.Init(cfg.SecretKey, nil)

	return &stripeClientImpl{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.ClientReferenceID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceID),
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}

	return &CheckoutSessionResult{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (c *stripeClientImpl) VerifyWebhookSignature(payload []byte, signatureHeader string) (*model.StripeEvent, error) {
	if c.webhookSecret == "" {
		return nil, ErrWebhookNotConfigured
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	stripeEvent := &model.StripeEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Data != nil {
		stripeEvent.Object = event.Data.Raw
	}
	return stripeEvent, nil
}
