package services

import (
	"context"

	"event-checkout/internal/models"
)

// BookingStore defines the persistence operations the checkout flow needs
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error)
	UpdateStatus(ctx context.Context, orderID, paymentID string, status models.BookingStatus) (*models.StatusUpdateResult, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByOrderID(ctx context.Context, orderID string) ([]models.Booking, error)
	Ping(ctx context.Context) error
}

// PaymentGateway creates orders with the payment provider
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*models.PaymentOrder, error)
}

// OrderServiceInterface defines the interface for order creation
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.PaymentOrder, error)
}

// PaymentVerifier checks gateway signatures
type PaymentVerifier interface {
	VerifyPayment(conf *models.PaymentConfirmation) (bool, error)
	VerifyWebhook(body []byte, signature string) bool
}

// BookingServiceInterface defines the interface for saving bookings
type BookingServiceInterface interface {
	SaveBooking(ctx context.Context, req *models.BookingCreateRequest) (*BookingResult, error)
}

// WebhookServiceInterface defines the interface for webhook reconciliation
type WebhookServiceInterface interface {
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error)
}

// EmailSender delivers a single message
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// Notifier delivers the confirmation for a saved booking
type Notifier interface {
	Notify(ctx context.Context, booking *models.Booking) error
}

// NotificationDispatcher schedules a notification without blocking the caller
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, booking *models.Booking) error
	Close(ctx context.Context) error
}

// EventDeduplicator remembers webhook event ids that were already processed
type EventDeduplicator interface {
	// Claim returns false when the id was claimed before.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets the id so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
}
