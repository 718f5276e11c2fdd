package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderRequest is the payload accepted by the order endpoint.
type OrderRequest struct {
	Amount   *decimal.Decimal  `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Validate checks presence of every field; the amount sign is checked by the
// order service when converting to minor units.
func (r *OrderRequest) Validate() error {
	var missing []string
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(r.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(r.Receipt) == "" {
		missing = append(missing, "receipt")
	}
	return NewValidationError("amount, currency, and receipt are required", missing...)
}

// PaymentOrder is the gateway's order record. Amount is in minor units.
type PaymentOrder struct {
	ID         string `json:"id"`
	Entity     string `json:"entity,omitempty"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	CreatedAt  int64  `json:"created_at"`
}

// PaymentConfirmation is the untrusted triple returned to the browser after
// the gateway captures a payment.
type PaymentConfirmation struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// Validate reports whether all three fields are present.
func (c *PaymentConfirmation) Validate() error {
	if strings.TrimSpace(c.PaymentID) == "" ||
		strings.TrimSpace(c.OrderID) == "" ||
		strings.TrimSpace(c.Signature) == "" {
		return ErrMalformedConfirmation
	}
	return nil
}

// Webhook event names handled by the reconciler.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the envelope the gateway posts for asynchronous events.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type WebhookPayload struct {
	Payment *WebhookPaymentWrapper `json:"payment,omitempty"`
}

type WebhookPaymentWrapper struct {
	Entity WebhookPayment `json:"entity"`
}

// WebhookPayment is the subset of the payment entity the reconciler reads.
type WebhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method,omitempty"`
	Email            string `json:"email,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ParseWebhookEvent decodes a raw webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedWebhook)
	}
	return &event, nil
}

// Payment returns the payment entity, or nil when the event carries none.
func (e *WebhookEvent) Payment() *WebhookPayment {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

// TargetStatus maps the event to the booking status it implies. The second
// result is false for event types the reconciler ignores.
func (e *WebhookEvent) TargetStatus() (BookingStatus, bool) {
	switch e.Event {
	case EventPaymentCaptured:
		return BookingCaptured, true
	case EventPaymentFailed:
		return BookingFailed, true
	default:
		return "", false
	}
}
