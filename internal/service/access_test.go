package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCourseAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := createCourse(t, env.db, "course-a", 5000)

	added, err := env.cart.AddItem(ctx, "user-1", a.ID, 1)
	require.NoError(t, err)

	ok, err := env.access.HasCourseAccess(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a cart item does not grant access")

	session, err := env.checkout.CreateCheckoutSession(ctx, "user-1", "ana@example.com")
	require.NoError(t, err)

	ok, err = env.access.HasCourseAccess(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a locked cart does not grant access")

	_, err = env.fulfillment.FulfillCheckoutSession(ctx, completedSession(session.SessionID, *added.CartID, nil))
	require.NoError(t, err)

	ok, err = env.access.HasCourseAccess(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.access.HasCourseAccess(ctx, "user-2", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.access.HasCourseAccess(ctx, "", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.access.HasCourseAccess(ctx, "user-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasCourseAccess_PaidOrderWithoutReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mail.err = assert.AnError
	a := createCourse(t, env.db, "course-a", 5000)

	added, err := env.cart.AddItem(ctx, "user-1", a.ID, 1)
	require.NoError(t, err)
	session, err := env.checkout.CreateCheckoutSession(ctx, "user-1", "ana@example.com")
	require.NoError(t, err)

	_, err = env.fulfillment.FulfillCheckoutSession(ctx, completedSession(session.SessionID, *added.CartID, nil))
	require.NoError(t, err)

	ok, err := env.access.HasCourseAccess(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.True(t, ok, "paid orders grant access before the receipt goes out")
}

func TestPurchasedContent_SurvivesDeactivation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := createCourse(t, env.db, "course-a", 5000)

	added, err := env.cart.AddItem(ctx, "user-1", a.ID, 1)
	require.NoError(t, err)
	session, err := env.checkout.CreateCheckoutSession(ctx, "user-1", "ana@example.com")
	require.NoError(t, err)
	_, err = env.fulfillment.FulfillCheckoutSession(ctx, completedSession(session.SessionID, *added.CartID, nil))
	require.NoError(t, err)

	require.NoError(t, env.db.Model(a).Updates(map[string]any{
		"is_active":    false,
		"delivery_url": "/courses/course-a/v2",
	}).Error)

	content, err := env.access.PurchasedContent(ctx, "user-1", "course-a")
	require.NoError(t, err)
	assert.Equal(t, a.ID, content.Course.ID)
	assert.False(t, content.Course.IsActive)
	assert.Equal(t, "/courses/course-a/content", *content.DeliveryURL, "purchase-time reference is served")

	_, err = env.access.PurchasedContent(ctx, "user-2", "course-a")
	assert.ErrorIs(t, err, ErrNotPurchased)

	_, err = env.access.PurchasedContent(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = env.access.PurchasedContent(ctx, "", "course-a")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPurchasedContent_CartDoesNotUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := createCourse(t, env.db, "course-a", 5000)

	_, err := env.cart.AddItem(ctx, "user-1", a.ID, 1)
	require.NoError(t, err)

	_, err = env.access.PurchasedContent(ctx, "user-1", "course-a")
	assert.ErrorIs(t, err, ErrNotPurchased)
}
