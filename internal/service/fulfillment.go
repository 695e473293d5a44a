package service

import (
	"context"
	"coursecart/internal/client"
	"coursecart/internal/metrics"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

const defaultCurrency = "USD"

type FulfillmentOutcome string

const (
	OutcomeFulfilled        FulfillmentOutcome = "fulfilled"
	OutcomeAlreadyProcessed FulfillmentOutcome = "already_processed"
	OutcomeSkipped          FulfillmentOutcome = "skipped"
	OutcomeIgnored          FulfillmentOutcome = "ignored"
)

type FulfillmentResult struct {
	Outcome FulfillmentOutcome
	Order   *model.Order
	// Reason explains a skipped session.
	Reason string
}

type FulfillmentService interface {
	// HandleWebhook verifies the Stripe signature and dispatches on the event type.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*FulfillmentResult, error)
	FulfillCheckoutSession(ctx context.Context, session *model.CheckoutSession) (*FulfillmentResult, error)
}

type fulfillmentServiceImpl struct {
	db               *gorm.DB
	paymentClient    client.PaymentClient
	receiptService   ReceiptService
	cartRepo         repository.CartRepository
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	appURL           string
	log              *slog.Logger
	metrics          *metrics.Metrics
}

func NewFulfillmentService(
	db *gorm.DB,
	paymentClient client.PaymentClient,
	receiptService ReceiptService,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	appURL string,
	log *slog.Logger,
	m *metrics.Metrics,
) FulfillmentService {
	return &fulfillmentServiceImpl{
		db:               db,
		paymentClient:    paymentClient,
		receiptService:   receiptService,
		cartRepo:         cartRepo,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		appURL:           strings.TrimRight(appURL, "/"),
		log:              log,
		metrics:          m,
	}
}

func (s *fulfillmentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (*FulfillmentResult, error) {
	event, err := s.paymentClient.VerifyWebhookSignature(payload, signature)
	if errors.Is(err, client.ErrWebhookNotConfigured) {
		return nil, err
	}
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		s.log.WarnContext(ctx, "look up webhook event", "event_id", event.ID, "error", err)
	}
	if seen {
		s.log.DebugContext(ctx, "stripe event already handled", "event_id", event.ID, "type", event.Type)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, string(OutcomeAlreadyProcessed)).Inc()
		return &FulfillmentResult{Outcome: OutcomeAlreadyProcessed}, nil
	}

	var result *FulfillmentResult
	switch event.Type {
	case model.EventCheckoutSessionCompleted:
		var session model.CheckoutSession
		if err := json.Unmarshal(event.Object, &session); err != nil {
			s.metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
			return nil, fmt.Errorf("%w: decode checkout session: %v", ErrValidation, err)
		}

		result, err = s.FulfillCheckoutSession(ctx, &session)
		if err != nil {
			s.metrics.WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
			s.log.ErrorContext(ctx, "fulfillment failed",
				"event_id", event.ID, "session_id", session.ID, "error", err)
			return nil, err
		}
	default:
		s.log.DebugContext(ctx, "ignoring stripe event", "event_id", event.ID, "type", event.Type)
		result = &FulfillmentResult{Outcome: OutcomeIgnored}
	}

	s.metrics.WebhookEvents.WithLabelValues(event.Type, string(result.Outcome)).Inc()
	if err := s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		s.log.WarnContext(ctx, "record webhook event", "event_id", event.ID, "error", err)
	}

	return result, nil
}

func (s *fulfillmentServiceImpl) FulfillCheckoutSession(ctx context.Context, session *model.CheckoutSession) (*FulfillmentResult, error) {
	if session.ID == "" {
		return nil, fmt.Errorf("%w: checkout session without id", ErrValidation)
	}
	log := s.log.With("session_id", session.ID)

	existing, err := s.orderRepo.FindBySessionID(ctx, nil, session.ID)
	if err == nil {
		return s.alreadyProcessed(ctx, existing)
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("find order by session: %w", err)
	}

	cartID := session.CartID()
	if cartID == "" {
		log.WarnContext(ctx, "checkout session has no cart_id")
		return skipped("missing cart_id"), nil
	}

	cart, err := s.cartRepo.FindByID(ctx, nil, cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		log.ErrorContext(ctx, "cart not found for checkout session", "cart_id", cartID)
		return skipped("cart not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	items, err := s.cartRepo.ListItems(ctx, nil, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		log.WarnContext(ctx, "cart has no items", "cart_id", cart.ID)
		return skipped("empty cart"), nil
	}

	email := session.BuyerEmail()
	if email == "" {
		log.WarnContext(ctx, "checkout session has no buyer email")
		return skipped("missing email"), nil
	}

	var subtotal int64
	for _, item := range items {
		subtotal += int64(item.Quantity) * item.UnitPrice()
	}

	total := subtotal
	if session.AmountTotal != nil {
		total = *session.AmountTotal
		if total != subtotal-session.DiscountCents() {
			log.WarnContext(ctx, "settled amount differs from cart subtotal",
				"amount_total", total, "subtotal", subtotal, "discount", session.DiscountCents())
		}
	}

	userID := session.UserID()
	if userID == "" {
		userID = cart.UserID
	}

	order := &model.Order{
		UserID:                  &userID,
		Email:                   email,
		Status:                  model.OrderStatusPaid,
		TotalCents:              total,
		Currency:                resolveCurrency(session, items),
		StripeCheckoutSessionID: session.ID,
		StripePaymentIntentID:   session.PaymentIntentID(),
		ReceiptURL:              session.ReceiptURL(),
	}

	orderItems := make([]*model.OrderItem, 0, len(items))
	for _, item := range items {
		orderItem := &model.OrderItem{
			CourseID:       item.CourseID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPrice(),
			UnitCurrency:   item.Currency(),
		}
		if orderItem.UnitCurrency == "" {
			orderItem.UnitCurrency = order.Currency
		}
		if item.Course != nil {
			orderItem.CourseName = item.Course.Name
			orderItem.DeliveryURL = item.Course.DeliveryURL
		}
		orderItems = append(orderItems, orderItem)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return err
		}

		for _, item := range orderItems {
			item.OrderID = order.ID
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("store order items: %w", err)
		}

		if err := s.convertCart(ctx, tx, cart, session.ID); err != nil {
			return err
		}

		if err := s.cartRepo.ClearItems(ctx, tx, cart.ID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		return nil
	})

	if errors.Is(err, repository.ErrDuplicateSession) {
		// a concurrent delivery of the same event committed first
		existing, findErr := s.orderRepo.FindBySessionID(ctx, nil, session.ID)
		if findErr != nil {
			return nil, fmt.Errorf("find order after duplicate insert: %w", findErr)
		}
		return s.alreadyProcessed(ctx, existing)
	}
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	order.Items = make([]model.OrderItem, len(orderItems))
	for i, item := range orderItems {
		order.Items[i] = *item
	}
	log.InfoContext(ctx, "order created",
		"order_id", order.ID, "cart_id", cart.ID, "total_cents", order.TotalCents, "currency", order.Currency)

	s.sendReceipt(ctx, order, session, items, subtotal)

	return &FulfillmentResult{Outcome: OutcomeFulfilled, Order: order}, nil
}

func (s *fulfillmentServiceImpl) alreadyProcessed(ctx context.Context, order *model.Order) (*FulfillmentResult, error) {
	items, err := s.orderRepo.GetOrderItems(ctx, nil, order.ID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	order.Items = make([]model.OrderItem, len(items))
	for i, item := range items {
		order.Items[i] = *item
	}
	return &FulfillmentResult{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
}

// convertCart moves the cart to converted. A cart that was never locked is
// locked first so the transition table is honored.
func (s *fulfillmentServiceImpl) convertCart(ctx context.Context, tx *gorm.DB, cart *model.Cart, sessionID string) error {
	from := cart.Status
	if from == model.CartStatusActive {
		s.log.WarnContext(ctx, "fulfilling a cart that was never locked", "cart_id", cart.ID)
		if err := s.cartRepo.Transition(ctx, tx, cart.ID, model.CartStatusActive, model.CartStatusLocked, sessionID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		from = model.CartStatusLocked
	}

	if err := s.cartRepo.Transition(ctx, tx, cart.ID, from, model.CartStatusConverted, sessionID); err != nil {
		return fmt.Errorf("convert cart: %w", err)
	}
	return nil
}

// sendReceipt never fails fulfillment. A delivered receipt moves the order to fulfilled.
func (s *fulfillmentServiceImpl) sendReceipt(ctx context.Context, order *model.Order, session *model.CheckoutSession, items []*model.CartItem, subtotal int64) {
	receipt := &Receipt{
		OrderID:       order.ID,
		To:            order.Email,
		BuyerName:     session.BuyerName(),
		Currency:      order.Currency,
		SubtotalCents: subtotal,
		DiscountCents: session.DiscountCents(),
		TotalCents:    order.TotalCents,
	}
	for _, item := range items {
		line := ReceiptItem{
			Name:           "Curso",
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPrice(),
		}
		if item.Course != nil {
			line.Name = item.Course.Name
			if item.Course.Description != nil {
				line.Description = *item.Course.Description
			}
			if item.Course.DeliveryURL != nil {
				line.AccessURL = s.absoluteURL(*item.Course.DeliveryURL)
			}
		}
		receipt.Items = append(receipt.Items, line)
	}

	if err := s.receiptService.Send(ctx, receipt); err != nil {
		s.log.ErrorContext(ctx, "send receipt", "order_id", order.ID, "error", err)
		return
	}

	if err := s.orderRepo.Transition(ctx, nil, order.ID, model.OrderStatusPaid, model.OrderStatusFulfilled); err != nil {
		s.log.WarnContext(ctx, "mark order fulfilled", "order_id", order.ID, "error", err)
		return
	}
	order.Status = model.OrderStatusFulfilled
}

func (s *fulfillmentServiceImpl) absoluteURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.appURL + path
	}
	return path
}

// resolveCurrency prefers the settled currency, then the first snapshot, then the course.
func resolveCurrency(session *model.CheckoutSession, items []*model.CartItem) string {
	if c := session.UpperCurrency(); c != "" {
		return c
	}
	if len(items) > 0 {
		if c := items[0].Currency(); c != "" {
			return strings.ToUpper(c)
		}
	}
	return defaultCurrency
}

func skipped(reason string) *FulfillmentResult {
	return &FulfillmentResult{Outcome: OutcomeSkipped, Reason: reason}
}
