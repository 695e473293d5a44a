package service

import (
	"context"
	"coursecart/internal/client"
	"coursecart/internal/logger"
	"coursecart/internal/metrics"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// lockedCart fills user-1's cart with A x2 (5000) and B x1 (3000) and checks it out.
func lockedCart(t *testing.T, env *testEnv) (cartID, sessionID string) {
	t.Helper()
	ctx := context.Background()
	a := createCourse(t, env.db, "course-a", 5000)
	b := createCourse(t, env.db, "course-b", 3000)

	added, err := env.cart.AddItem(ctx, "user-1", a.ID, 2)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, "user-1", b.ID, 1)
	require.NoError(t, err)

	session, err := env.checkout.CreateCheckoutSession(ctx, "user-1", "ana@example.com")
	require.NoError(t, err)
	return *added.CartID, session.SessionID
}

func completedSession(sessionID, cartID string, amountTotal *int64) *model.CheckoutSession {
	return &model.CheckoutSession{
		ID:       sessionID,
		Metadata: map[string]string{model.MetadataCartID: cartID, model.MetadataUserID: "user-1"},
		CustomerDetails: &model.CustomerDetails{
			Email: ptr("ana@example.com"),
			Name:  ptr("Ana"),
		},
		AmountTotal:   amountTotal,
		Currency:      ptr("usd"),
		PaymentIntent: &model.PaymentIntentRef{ID: "pi_1"},
	}
}

func TestFulfillment_SettledAmountWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(12000))))
	require.NoError(t, err)
	require.Equal(t, OutcomeFulfilled, result.Outcome)

	order := result.Order
	assert.Equal(t, int64(12000), order.TotalCents)
	assert.Equal(t, int64(13000), order.SubtotalCents())
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "ana@example.com", order.Email)
	assert.Equal(t, "user-1", *order.UserID)
	assert.Equal(t, "pi_1", *order.StripePaymentIntentID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int32(2), order.Items[0].Quantity)
	assert.Equal(t, int64(5000), order.Items[0].UnitPriceCents)
	assert.Equal(t, "Course course-a", order.Items[0].CourseName)
	assert.Equal(t, "/courses/course-a/content", *order.Items[0].DeliveryURL)
}

func TestFulfillment_FallsBackToSubtotal(t *testing.T) {
	env := newTestEnv(t)
	cartID, sessionID := lockedCart(t, env)

	session := completedSession(sessionID, cartID, nil)
	session.Currency = nil

	result, err := env.fulfillment.FulfillCheckoutSession(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), result.Order.TotalCents)
	assert.Equal(t, "USD", result.Order.Currency)
}

func TestFulfillment_ConvertsCartAndNextAddCreatesNewCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	_, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(13000))))
	require.NoError(t, err)

	cart, err := env.cartRepo.FindByID(ctx, nil, cartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, cart.Status)
	assert.Equal(t, sessionID, *cart.StripeCheckoutSessionID)

	items, err := env.cartRepo.ListItems(ctx, nil, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)

	course := createCourse(t, env.db, "course-c", 1000)
	added, err := env.cart.AddItem(ctx, "user-1", course.ID, 1)
	require.NoError(t, err)
	assert.NotEqual(t, cartID, *added.CartID)
	assert.Equal(t, int64(1), added.ItemCount)
}

func TestFulfillment_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)
	session := completedSession(sessionID, cartID, ptr(int64(13000)))

	first, err := env.fulfillment.FulfillCheckoutSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, first.Outcome)

	second, err := env.fulfillment.FulfillCheckoutSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.Len(t, second.Order.Items, 2, "already processed orders come back with their items")

	orders, items := env.countOrders(t, sessionID)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, int64(2), items)
	assert.Len(t, env.mail.sent, 1, "receipt is sent once")
}

// racingOrderRepo hides an order committed by a concurrent delivery from the pre-check.
type racingOrderRepo struct {
	repository.OrderRepository
	misses int
}

func (r *racingOrderRepo) FindBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error) {
	if r.misses > 0 {
		r.misses--
		return nil, repository.ErrOrderNotFound
	}
	return r.OrderRepository.FindBySessionID(ctx, tx, sessionID)
}

func TestFulfillment_UniqueSessionClosesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	// the other delivery already committed its order
	winner := &model.Order{
		UserID:                  ptr("user-1"),
		Email:                   "ana@example.com",
		Status:                  model.OrderStatusPaid,
		TotalCents:              13000,
		Currency:                "USD",
		StripeCheckoutSessionID: sessionID,
	}
	require.NoError(t, env.orderRepo.Create(ctx, nil, winner))

	fulfillment := newFulfillment(env, &racingOrderRepo{OrderRepository: env.orderRepo, misses: 1})
	result, err := fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(13000))))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
	assert.Equal(t, winner.ID, result.Order.ID)

	orders, items := env.countOrders(t, sessionID)
	assert.Equal(t, int64(1), orders)
	assert.Zero(t, items, "the losing transaction left no order items")

	cart, err := env.cartRepo.FindByID(ctx, nil, cartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusLocked, cart.Status, "the losing transaction rolled back")
	assert.Empty(t, env.mail.sent)
}

func TestFulfillment_ReceiptFailureDoesNotFailFulfillment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)
	env.mail.err = errors.New("resend: 503")

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(13000))))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)

	stored, err := env.orderRepo.FindBySessionID(ctx, nil, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, stored.Status)

	cart, err := env.cartRepo.FindByID(ctx, nil, cartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, cart.Status)
}

func TestFulfillment_ReceiptMarksOrderFulfilled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(12000))))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFulfilled, result.Order.Status)

	require.Len(t, env.mail.sent, 1)
	email := env.mail.sent[0]
	assert.Equal(t, "ana@example.com", email.To)
	assert.Equal(t, "Tu recibo #"+result.Order.ID, email.Subject)
	assert.Contains(t, email.HTML, "Hola Ana,")
	assert.Contains(t, email.HTML, "https://jwfitness.co/courses/course-a/content")
	assert.Contains(t, email.HTML, "$130.00")
	assert.Contains(t, email.HTML, "$120.00")
}

func TestFulfillment_AnomaliesAreAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	tests := []struct {
		name    string
		session *model.CheckoutSession
		reason  string
	}{
		{
			name:    "missing cart id",
			session: completedSession(sessionID, "", nil),
			reason:  "missing cart_id",
		},
		{
			name:    "unknown cart",
			session: completedSession(sessionID, "no-such-cart", nil),
			reason:  "cart not found",
		},
		{
			name: "no buyer email",
			session: &model.CheckoutSession{
				ID:       sessionID,
				Metadata: map[string]string{model.MetadataCartID: cartID},
			},
			reason: "missing email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.fulfillment.FulfillCheckoutSession(ctx, tt.session)
			require.NoError(t, err)
			assert.Equal(t, OutcomeSkipped, result.Outcome)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}

	orders, _ := env.countOrders(t, sessionID)
	assert.Zero(t, orders)
}

func TestFulfillment_EmptyCartIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cart, err := env.cart.GetOrCreateActiveCart(ctx, "user-1")
	require.NoError(t, err)

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession("cs_empty", cart.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, "empty cart", result.Reason)
}

func TestFulfillment_UnlockedCartIsStillConverted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := createCourse(t, env.db, "course-a", 5000)

	added, err := env.cart.AddItem(ctx, "user-1", course.ID, 1)
	require.NoError(t, err)

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession("cs_direct", *added.CartID, ptr(int64(5000))))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)

	cart, err := env.cartRepo.FindByID(ctx, nil, *added.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, cart.Status)
}

func TestHandleWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	t.Run("invalid signature", func(t *testing.T) {
		env.payments.verifyErr = client.ErrInvalidSignature
		defer func() { env.payments.verifyErr = nil }()

		_, err := env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=bad")
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("webhook secret missing", func(t *testing.T) {
		env.payments.verifyErr = client.ErrWebhookNotConfigured
		defer func() { env.payments.verifyErr = nil }()

		_, err := env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=bad")
		assert.ErrorIs(t, err, client.ErrWebhookNotConfigured)
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		env.payments.event = &model.StripeEvent{ID: "evt_ignored", Type: "payment_intent.created", Object: json.RawMessage(`{}`)}

		result, err := env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=ok")
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, result.Outcome)
	})

	t.Run("checkout completed fulfills", func(t *testing.T) {
		object, err := json.Marshal(map[string]any{
			"id":               sessionID,
			"metadata":         map[string]string{"cart_id": cartID, "user_id": "user-1"},
			"customer_details": map[string]any{"email": "ana@example.com"},
			"amount_total":     12000,
			"currency":         "usd",
			"payment_intent":   "pi_9",
		})
		require.NoError(t, err)
		env.payments.event = &model.StripeEvent{ID: "evt_1", Type: model.EventCheckoutSessionCompleted, Object: object}

		result, err := env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=ok")
		require.NoError(t, err)
		assert.Equal(t, OutcomeFulfilled, result.Outcome)
		assert.Equal(t, "pi_9", *result.Order.StripePaymentIntentID)

		recorded, err := env.eventRepo.Exists(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, recorded)

		// redelivery is a no-op
		result, err = env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=ok")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
		assert.Nil(t, result.Order, "recorded events short-circuit before the session lookup")
		assert.Len(t, env.mail.sent, 1)

		// a fresh event for the same session falls back to the order lookup
		env.payments.event = &model.StripeEvent{ID: "evt_2", Type: model.EventCheckoutSessionCompleted, Object: object}
		result, err = env.fulfillment.HandleWebhook(ctx, []byte(`{}`), "t=1,v1=ok")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
		require.NotNil(t, result.Order)
		assert.Len(t, result.Order.Items, 2)
	})
}

func TestFulfillment_OrderItemsKeepPurchaseSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cartID, sessionID := lockedCart(t, env)

	result, err := env.fulfillment.FulfillCheckoutSession(ctx, completedSession(sessionID, cartID, ptr(int64(13000))))
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.Course{}).Where("slug = ?", "course-a").Updates(map[string]any{
		"name":         "Renamed",
		"price_cents":  9900,
		"delivery_url": "/courses/course-a/v2",
	}).Error)

	items, err := env.orderRepo.GetOrderItems(ctx, nil, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	var edited *model.OrderItem
	for _, item := range items {
		if item.CourseName == "Course course-a" {
			edited = item
		}
	}
	require.NotNil(t, edited)
	assert.Equal(t, int64(5000), edited.UnitPriceCents)
	assert.Equal(t, "/courses/course-a/content", *edited.DeliveryURL)

	orders, err := env.orderRepo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(13000), orders[0].TotalCents)
	for _, item := range orders[0].Items {
		assert.NotEqual(t, "Renamed", item.CourseName)
	}
}

// failingItemsRepo fails every order item insert.
type failingItemsRepo struct {
	repository.OrderRepository
}

func (failingItemsRepo) CreateOrderItems(context.Context, *gorm.DB, []*model.OrderItem) error {
	return errors.New("disk full")
}

// failingConvertRepo refuses the final cart transition.
type failingConvertRepo struct {
	repository.CartRepository
}

func (r failingConvertRepo) Transition(ctx context.Context, tx *gorm.DB, cartID string, from, to model.CartStatus, sessionID string) error {
	if to == model.CartStatusConverted {
		return errors.New("connection reset")
	}
	return r.CartRepository.Transition(ctx, tx, cartID, from, to, sessionID)
}

func TestFulfillment_FailureRollsBackOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func(env *testEnv) FulfillmentService
	}{
		{
			name: "order items insert fails",
			build: func(env *testEnv) FulfillmentService {
				return newFulfillment(env, failingItemsRepo{OrderRepository: env.orderRepo})
			},
		},
		{
			name: "cart conversion fails",
			build: func(env *testEnv) FulfillmentService {
				return NewFulfillmentService(env.db, env.payments, env.receipts,
					failingConvertRepo{CartRepository: env.cartRepo}, env.orderRepo, env.eventRepo,
					"https://jwfitness.co", logger.Discard(), metrics.NewNop())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			cartID, sessionID := lockedCart(t, env)
			session := completedSession(sessionID, cartID, ptr(int64(13000)))

			_, err := tt.build(env).FulfillCheckoutSession(ctx, session)
			require.Error(t, err)

			orders, items := env.countOrders(t, sessionID)
			assert.Zero(t, orders)
			assert.Zero(t, items)

			cart, err := env.cartRepo.FindByID(ctx, nil, cartID)
			require.NoError(t, err)
			assert.Equal(t, model.CartStatusLocked, cart.Status)
			cartItems, err := env.cartRepo.ListItems(ctx, nil, cartID)
			require.NoError(t, err)
			assert.Len(t, cartItems, 2)
			assert.Empty(t, env.mail.sent)

			// the redelivery succeeds against the untouched cart
			result, err := env.fulfillment.FulfillCheckoutSession(ctx, session)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFulfilled, result.Outcome)
			orders, items = env.countOrders(t, sessionID)
			assert.Equal(t, int64(1), orders)
			assert.Equal(t, int64(2), items)
		})
	}
}
