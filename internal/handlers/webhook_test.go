package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
)

func webhookBody(event, orderID, paymentID string) []byte {
	return []byte(`{"entity":"event","event":"` + event + `","payload":{"payment":{"entity":{"id":"` +
		paymentID + `","order_id":"` + orderID + `","status":"captured","amount":400,"currency":"INR"}}}}`)
}

func (ts *testServer) saveBooking(t *testing.T) string {
	t.Helper()
	rec := ts.post(t, "/save-booking", bookingPayload(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["bookingId"].(string)
}

func TestWebhook_CapturesBooking(t *testing.T) {
	ts := newTestServer(t)
	id := ts.saveBooking(t)
	body := webhookBody(models.EventPaymentCaptured, "order_1", "pay_1")

	rec := ts.post(t, "/webhook", body, map[string]string{
		"x-razorpay-signature": ts.verifier.WebhookSignature(body),
		"x-razorpay-event-id":  "evt_1",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCaptured, stored.Status)
}

func TestWebhook_TamperedSignature(t *testing.T) {
	ts := newTestServer(t)
	id := ts.saveBooking(t)
	signed := webhookBody(models.EventPaymentCaptured, "order_1", "pay_1")
	tampered := webhookBody(models.EventPaymentFailed, "order_1", "pay_1")

	rec := ts.post(t, "/webhook", tampered, map[string]string{
		"x-razorpay-signature": ts.verifier.WebhookSignature(signed),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
}

func TestWebhook_MissingSignature(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody(models.EventPaymentCaptured, "order_1", "pay_1")

	rec := ts.post(t, "/webhook", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_PaymentSecretDoesNotSignWebhooks(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody(models.EventPaymentCaptured, "order_1", "pay_1")
	wrong := ts.verifier.PaymentSignature("order_1", "pay_1")

	rec := ts.post(t, "/webhook", body, map[string]string{"x-razorpay-signature": wrong})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_UnknownEventIsAcknowledged(t *testing.T) {
	ts := newTestServer(t)
	id := ts.saveBooking(t)
	body := webhookBody("refund.created", "order_1", "pay_1")

	rec := ts.post(t, "/webhook", body, map[string]string{
		"x-razorpay-signature": ts.verifier.WebhookSignature(body),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ignored"])
	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
}

func TestWebhook_ReplayIsHarmless(t *testing.T) {
	ts := newTestServer(t)
	id := ts.saveBooking(t)
	body := webhookBody(models.EventPaymentCaptured, "order_1", "pay_1")
	headers := map[string]string{"x-razorpay-signature": ts.verifier.WebhookSignature(body)}

	for i := 0; i < 3; i++ {
		rec := ts.post(t, "/webhook", body, headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	stored, err := ts.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCaptured, stored.Status)
	assert.Equal(t, 1, ts.store.Count())
}

func TestWebhook_MalformedSignedBody(t *testing.T) {
	ts := newTestServer(t)
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	rec := ts.post(t, "/webhook", body, map[string]string{
		"x-razorpay-signature": ts.verifier.WebhookSignature(body),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
