package services

import (
	"event-checkout/internal/models"
	"event-checkout/internal/utils"
)

// SignatureVerifier checks payment confirmation and webhook signatures.
// The two secrets are distinct and both come from configuration.
type SignatureVerifier struct {
	keySecret     []byte
	webhookSecret []byte
}

// NewSignatureVerifier creates a verifier for the given secrets
func NewSignatureVerifier(keySecret, webhookSecret string) *SignatureVerifier {
	return &SignatureVerifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// PaymentSignature returns the expected signature for a confirmation.
func (v *SignatureVerifier) PaymentSignature(orderID, paymentID string) string {
	return utils.HMACSHA256Hex(v.keySecret, []byte(orderID+"|"+paymentID))
}

// VerifyPayment reports whether the confirmation was signed by the gateway.
// A confirmation with an empty field is rejected before any HMAC is computed.
func (v *SignatureVerifier) VerifyPayment(conf *models.PaymentConfirmation) (bool, error) {
	if err := conf.Validate(); err != nil {
		return false, err
	}
	return utils.VerifyHMACSHA256Hex(v.keySecret, []byte(conf.OrderID+"|"+conf.PaymentID), conf.Signature), nil
}

// WebhookSignature returns the expected signature for a raw webhook body.
func (v *SignatureVerifier) WebhookSignature(body []byte) string {
	return utils.HMACSHA256Hex(v.webhookSecret, body)
}

// VerifyWebhook checks the signature header against the raw request body.
func (v *SignatureVerifier) VerifyWebhook(body []byte, signature string) bool {
	if len(v.webhookSecret) == 0 {
		return false
	}
	return utils.VerifyHMACSHA256Hex(v.webhookSecret, body, signature)
}
