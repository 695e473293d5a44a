package service

import (
	"context"
	"coursecart/internal/client"
	"coursecart/internal/metrics"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type CheckoutService interface {
	// CreateCheckoutSession opens a Stripe-hosted session for the caller's
	// active cart and locks the cart before returning the redirect URL.
	CreateCheckoutSession(ctx context.Context, userID, email string) (*CheckoutSession, error)
}

type checkoutServiceImpl struct {
	paymentClient client.PaymentClient
	cartRepo      repository.CartRepository
	appURL        string
	log           *slog.Logger
	metrics       *metrics.Metrics
}

func NewCheckoutService(
	paymentClient client.PaymentClient,
	cartRepo repository.CartRepository,
	appURL string,
	log *slog.Logger,
	m *metrics.Metrics,
) CheckoutService {
	return &checkoutServiceImpl{
		paymentClient: paymentClient,
		cartRepo:      cartRepo,
		appURL:        strings.TrimRight(appURL, "/"),
		log:           log,
		metrics:       m,
	}
}

func (s *checkoutServiceImpl) CreateCheckoutSession(ctx context.Context, userID, email string) (*CheckoutSession, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cart, err := s.cartRepo.FindActiveByUser(ctx, nil, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("find active cart: %w", err)
	}

	items, err := s.cartRepo.ListItems(ctx, nil, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lineItems := make([]client.LineItem, 0, len(items))
	for _, item := range items {
		if item.Course == nil || item.Course.StripePriceID == nil || *item.Course.StripePriceID == "" {
			s.metrics.CheckoutSessions.WithLabelValues("missing_price").Inc()
			return nil, fmt.Errorf("%w: course %s", ErrMissingPriceConfiguration, item.CourseID)
		}
		lineItems = append(lineItems, client.LineItem{
			PriceID:  *item.Course.StripePriceID,
			Quantity: int64(item.Quantity),
		})
	}

	session, err := s.paymentClient.CreateCheckoutSession(ctx, &client.CheckoutSessionRequest{
		CustomerEmail:     email,
		ClientReferenceID: userID,
		Metadata: map[string]string{
			model.MetadataCartID: cart.ID,
			model.MetadataUserID: userID,
		},
		LineItems:  lineItems,
		SuccessURL: s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.appURL + "/cart?cancelled=1",
	})
	if err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamProvider, err)
	}

	err = s.cartRepo.Transition(ctx, nil, cart.ID, model.CartStatusActive, model.CartStatusLocked, session.SessionID)
	if errors.Is(err, repository.ErrCartNotActive) {
		s.log.WarnContext(ctx, "cart changed state while opening checkout session",
			"cart_id", cart.ID, "session_id", session.SessionID)
		s.metrics.CheckoutSessions.WithLabelValues("cart_not_active").Inc()
		return nil, ErrCartNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	s.metrics.CheckoutSessions.WithLabelValues("created").Inc()
	s.log.InfoContext(ctx, "checkout session created",
		"cart_id", cart.ID, "session_id", session.SessionID, "items", len(lineItems))

	return &CheckoutSession{
		SessionID: session.SessionID,
		URL:       session.URL,
	}, nil
}
