package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan-p/storefront/internal/config"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/repository"
)

const testWebhookSecret = "whsec_test"

func newTestGateway(baseURL string) *StripeGateway {
	gw := NewStripeGateway(config.Payment{
		BaseUrl:       baseURL,
		ApiKey:        "sk_test",
		WebhookSecret: testWebhookSecret,
		WebsiteUrl:    "https://store.example.com",
		Timeout:       5,
	})
	return gw
}

func signPayload(t *testing.T, payload []byte, at time.Time) string {
	t.Helper()
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestCreateCheckoutSession(t *testing.T) {
	orderID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, orderID.String(), r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, "espresso beans", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1250", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.test/pay/cs_test_1"}`)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	order := repository.Order{ID: orderID, Status: repository.OrderStatusPending}
	items := []repository.OrderItem{{
		ProductName: "espresso beans",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("12.50"),
	}}

	session, err := gw.CreateCheckoutSession(context.Background(), order, items)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/pay/cs_test_1", session.URL)
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"card declined"}}`)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	_, err := gw.CreateCheckoutSession(
		context.Background(),
		repository.Order{ID: uuid.New()},
		nil,
	)
	assert.ErrorIs(t, err, inErrors.ErrPayment)
}

func webhookPayload(eventType string, orderID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(
		`{"type":%q,"data":{"object":{"metadata":{"order_id":%q}}}}`,
		eventType, orderID.String(),
	))
}

func TestParseWebhookSucceeded(t *testing.T) {
	gw := newTestGateway("")
	orderID := uuid.New()
	payload := webhookPayload("payment_intent.succeeded", orderID)

	result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, orderID, result.OrderID)
	assert.Equal(t, repository.OrderStatusPaid, result.Status)
}

func TestParseWebhookFailedVariants(t *testing.T) {
	gw := newTestGateway("")
	orderID := uuid.New()

	for _, eventType := range []string{"payment_intent.failed", "payment_intent.payment_failed"} {
		payload := webhookPayload(eventType, orderID)
		result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
		require.NoError(t, err, eventType)
		require.NotNil(t, result, eventType)
		assert.Equal(t, repository.OrderStatusFailed, result.Status, eventType)
	}
}

func TestParseWebhookIgnoresUnknownEvents(t *testing.T) {
	gw := newTestGateway("")
	payload := webhookPayload("charge.refunded", uuid.New())

	result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseWebhookFallsBackToClientReferenceID(t *testing.T) {
	gw := newTestGateway("")
	orderID := uuid.New()
	payload := []byte(fmt.Sprintf(
		`{"type":"payment_intent.succeeded","data":{"object":{"client_reference_id":%q}}}`,
		orderID.String(),
	))

	result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, orderID, result.OrderID)
}

func TestParseWebhookWithoutReferenceIsIgnored(t *testing.T) {
	gw := newTestGateway("")
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{}}}`)

	result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseWebhookIgnoresForeignReference(t *testing.T) {
	gw := newTestGateway("")
	payload := []byte(
		`{"type":"payment_intent.succeeded","data":{"object":{"metadata":{"order_id":"pi_3OabcDEF"}}}}`,
	)

	result, err := gw.ParseWebhook(payload, signPayload(t, payload, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	gw := newTestGateway("")
	payload := webhookPayload("payment_intent.succeeded", uuid.New())

	_, err := gw.ParseWebhook(payload, "t=123,v1=deadbeef")
	assert.ErrorIs(t, err, inErrors.ErrInvalidSignature)

	_, err = gw.ParseWebhook(payload, "garbage")
	assert.ErrorIs(t, err, inErrors.ErrInvalidSignature)
}

func TestParseWebhookRejectsTamperedPayload(t *testing.T) {
	gw := newTestGateway("")
	payload := webhookPayload("payment_intent.succeeded", uuid.New())
	signature := signPayload(t, payload, time.Now())

	tampered := webhookPayload("payment_intent.succeeded", uuid.New())
	_, err := gw.ParseWebhook(tampered, signature)
	assert.ErrorIs(t, err, inErrors.ErrInvalidSignature)
}

func TestParseWebhookRejectsStaleTimestamp(t *testing.T) {
	gw := newTestGateway("")
	payload := webhookPayload("payment_intent.succeeded", uuid.New())
	signature := signPayload(t, payload, time.Now().Add(-time.Hour))

	_, err := gw.ParseWebhook(payload, signature)
	assert.ErrorIs(t, err, inErrors.ErrInvalidSignature)
}
