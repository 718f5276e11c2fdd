package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRequest_Validate(t *testing.T) {
	amount := decimal.NewFromInt(4)
	req := OrderRequest{Amount: &amount, Currency: "INR", Receipt: "receipt_1"}
	assert.NoError(t, req.Validate())

	req = OrderRequest{Currency: "INR"}
	err := req.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"amount", "receipt"}, ve.Fields)
}

func TestPaymentConfirmation_Validate(t *testing.T) {
	conf := PaymentConfirmation{PaymentID: "pay_1", OrderID: "order_1", Signature: "abc"}
	assert.NoError(t, conf.Validate())

	conf.Signature = " "
	assert.ErrorIs(t, conf.Validate(), ErrMalformedConfirmation)
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"entity": "event",
		"account_id": "acc_1",
		"event": "payment.captured",
		"contains": ["payment"],
		"payload": {"payment": {"entity": {"id": "pay_1", "order_id": "order_1", "status": "captured", "amount": 400}}},
		"created_at": 1700000000
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)

	payment := event.Payment()
	require.NotNil(t, payment)
	assert.Equal(t, "pay_1", payment.ID)
	assert.Equal(t, "order_1", payment.OrderID)

	status, ok := event.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, BookingCaptured, status)
}

func TestParseWebhookEvent_Malformed(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrMalformedWebhook)

	_, err = ParseWebhookEvent([]byte(`{"entity":"event"}`))
	assert.ErrorIs(t, err, ErrMalformedWebhook)
}

func TestWebhookEvent_TargetStatus(t *testing.T) {
	failed := &WebhookEvent{Event: EventPaymentFailed}
	status, ok := failed.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, BookingFailed, status)

	other := &WebhookEvent{Event: "refund.created"}
	_, ok = other.TargetStatus()
	assert.False(t, ok)
	assert.Nil(t, other.Payment())
}
