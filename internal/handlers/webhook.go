package handlers

import (
	"io"
	"net/http"

	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

// WebhookHandler receives gateway webhooks
type WebhookHandler struct {
	service services.WebhookServiceInterface
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service services.WebhookServiceInterface) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Handle verifies and applies a webhook. The signature covers the raw
// body, so it is read before any decoding.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeServiceError(w, r, &models.ValidationError{Message: "unreadable webhook body"})
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader), r.Header.Get(eventIDHeader))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{"success": true}
	if result.Ignored {
		resp["ignored"] = true
	}
	if result.Duplicate {
		resp["duplicate"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}
