package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
)

// WebhookResult describes what a webhook delivery changed.
type WebhookResult struct {
	Event     string
	Ignored   bool
	Duplicate bool
	Applied   bool
	Deferred  bool
}

// WebhookService reconciles booking status with gateway webhooks.
type WebhookService struct {
	store    BookingStore
	verifier PaymentVerifier
	dedup    EventDeduplicator
	log      logrus.FieldLogger
}

// NewWebhookService creates a webhook reconciler. dedup may be nil.
func NewWebhookService(store BookingStore, verifier PaymentVerifier, dedup EventDeduplicator, log logrus.FieldLogger) *WebhookService {
	if dedup == nil {
		dedup = NoopDeduplicator{}
	}
	return &WebhookService{
		store:    store,
		verifier: verifier,
		dedup:    dedup,
		log:      log.WithField("component", "webhook"),
	}
}

// HandleWebhook verifies the raw body against its signature and applies
// the payment status it reports. Unknown event types are accepted and
// ignored. Redeliveries leave the booking unchanged.
func (s *WebhookService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error) {
	log := s.log.WithField("event_id", eventID)

	if !s.verifier.VerifyWebhook(body, signature) {
		log.Warn("webhook rejected: signature mismatch")
		return nil, models.ErrInvalidWebhookSignature
	}

	if eventID != "" {
		claimed, err := s.dedup.Claim(ctx, eventID)
		if err != nil {
			log.WithError(err).Warn("event dedup unavailable, processing anyway")
		} else if !claimed {
			log.Info("duplicate webhook delivery skipped")
			return &WebhookResult{Duplicate: true}, nil
		}
	}

	result, err := s.apply(ctx, log, body)
	if err != nil && eventID != "" {
		if rerr := s.dedup.Release(ctx, eventID); rerr != nil {
			log.WithError(rerr).Warn("failed to release webhook event")
		}
	}
	return result, err
}

func (s *WebhookService) apply(ctx context.Context, log logrus.FieldLogger, body []byte) (*WebhookResult, error) {
	event, err := models.ParseWebhookEvent(body)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{Event: event.Event}

	status, ok := event.TargetStatus()
	if !ok {
		log.WithField("event", event.Event).Info("webhook event ignored")
		result.Ignored = true
		return result, nil
	}

	payment := event.Payment()
	if payment == nil || payment.ID == "" || payment.OrderID == "" {
		return nil, fmt.Errorf("%w: %s without payment entity", models.ErrMalformedWebhook, event.Event)
	}

	log = log.WithFields(logrus.Fields{
		"event":      event.Event,
		"order_id":   payment.OrderID,
		"payment_id": payment.ID,
	})

	update, err := s.store.UpdateStatus(ctx, payment.OrderID, payment.ID, status)
	if err != nil {
		log.WithError(err).Error("failed to apply webhook status")
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	result.Applied = update.Applied
	result.Deferred = update.Deferred
	log.WithFields(logrus.Fields{
		"status":   status,
		"applied":  update.Applied,
		"deferred": update.Deferred,
	}).Info("webhook processed")
	return result, nil
}
