package service

import (
	"context"
	"coursecart/internal/client"
	"coursecart/internal/logger"
	"coursecart/internal/metrics"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := client.OpenDatabase("sqlite", dsn, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type courseOpt func(*model.Course)

func withoutPrice() courseOpt {
	return func(c *model.Course) { c.StripePriceID = nil }
}

func inactive() courseOpt {
	return func(c *model.Course) { c.IsActive = false }
}

func createCourse(t *testing.T, db *gorm.DB, slug string, priceCents int64, opts ...courseOpt) *model.Course {
	t.Helper()
	priceID := "price_" + slug
	description := "Programa " + slug
	delivery := "/courses/" + slug + "/content"
	course := &model.Course{
		Slug:          slug,
		Name:          "Course " + slug,
		Description:   &description,
		PriceCents:    priceCents,
		Currency:      "USD",
		IsActive:      true,
		DeliveryURL:   &delivery,
		StripePriceID: &priceID,
	}
	for _, opt := range opts {
		opt(course)
	}
	require.NoError(t, db.Create(course).Error)
	if !course.IsActive {
		// gorm skips zero values that have a column default
		require.NoError(t, db.Model(course).Update("is_active", false).Error)
	}
	return course
}

type fakePaymentClient struct {
	mu        sync.Mutex
	requests  []*client.CheckoutSessionRequest
	createErr error

	event     *model.StripeEvent
	verifyErr error
}

func (f *fakePaymentClient) CreateCheckoutSession(_ context.Context, req *client.CheckoutSessionRequest) (*client.CheckoutSessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	return &client.CheckoutSessionResult{
		SessionID: id,
		URL:       "https://checkout.stripe.com/c/pay/" + id,
	}, nil
}

func (f *fakePaymentClient) VerifyWebhookSignature(_ []byte, _ string) (*model.StripeEvent, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

type fakeMailClient struct {
	mu   sync.Mutex
	sent []*client.Email
	err  error
}

func (f *fakeMailClient) Send(_ context.Context, email *client.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return fmt.Sprintf("email_%d", len(f.sent)), nil
}

// testEnv wires the real repositories over a fresh database.
type testEnv struct {
	db          *gorm.DB
	payments    *fakePaymentClient
	mail        *fakeMailClient
	courseRepo  repository.CourseRepository
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	eventRepo   repository.WebhookEventRepository
	cart        CartService
	checkout    CheckoutService
	receipts    ReceiptService
	fulfillment FulfillmentService
	access      AccessService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	m := metrics.NewNop()
	log := logger.Discard()

	env := &testEnv{
		db:         db,
		payments:   &fakePaymentClient{},
		mail:       &fakeMailClient{},
		courseRepo: repository.NewCourseRepository(db),
		cartRepo:   repository.NewCartRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
		eventRepo:  repository.NewWebhookEventRepository(db),
	}
	env.cart = NewCartService(db, env.cartRepo, env.courseRepo)
	env.checkout = NewCheckoutService(env.payments, env.cartRepo, "https://jwfitness.co/", log, m)
	env.receipts = NewReceiptService(env.mail, "support@jwfitness.co", "", m)
	env.fulfillment = newFulfillment(env, env.orderRepo)
	env.access = NewAccessService(env.courseRepo, env.orderRepo)
	return env
}

func newFulfillment(env *testEnv, orderRepo repository.OrderRepository) FulfillmentService {
	return NewFulfillmentService(
		env.db,
		env.payments,
		env.receipts,
		env.cartRepo,
		orderRepo,
		env.eventRepo,
		"https://jwfitness.co",
		logger.Discard(),
		metrics.NewNop(),
	)
}

func (env *testEnv) countOrders(t *testing.T, sessionID string) (orders, items int64) {
	t.Helper()
	require.NoError(t, env.db.Model(&model.Order{}).Where("stripe_checkout_session_id = ?", sessionID).Count(&orders).Error)
	require.NoError(t, env.db.Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.stripe_checkout_session_id = ?", sessionID).
		Count(&items).Error)
	return orders, items
}

func ptr[T any](v T) *T {
	return &v
}
