package client

import (
	"coursecart/internal/config"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func testEventPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "metadata": {"cart_id": "cart-1", "user_id": "user-1"}}}
	}`)
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	c := NewStripeClient(&config.Stripe{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	payload := testEventPayload()

	event, err := c.VerifyWebhookSignature(payload, signedPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)

	var obj struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(event.Object, &obj))
	assert.Equal(t, "cs_test_1", obj.ID)
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	c := NewStripeClient(&config.Stripe{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	payload := testEventPayload()

	_, err := c.VerifyWebhookSignature(payload, signedPayload(t, payload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_TamperedBody(t *testing.T) {
	c := NewStripeClient(&config.Stripe{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	payload := testEventPayload()
	header := signedPayload(t, payload, testWebhookSecret)

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	_, err := c.VerifyWebhookSignature(tampered, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_MissingHeader(t *testing.T) {
	c := NewStripeClient(&config.Stripe{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	_, err := c.VerifyWebhookSignature(testEventPayload(), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature_NotConfigured(t *testing.T) {
	c := NewStripeClient(&config.Stripe{SecretKey: "sk_test"})
	_, err := c.VerifyWebhookSignature(testEventPayload(), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}
