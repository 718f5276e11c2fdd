package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
)

// BookingResult is the outcome of SaveBooking. Created is false when the
// same payment had already been recorded.
type BookingResult struct {
	Booking *models.Booking
	Created bool
	QRCode  string
}

// BookingService records verified bookings and schedules their notification.
type BookingService struct {
	store      BookingStore
	verifier   PaymentVerifier
	renderer   *TicketRenderer
	dispatcher NotificationDispatcher
	retry      RetryPolicy
	log        logrus.FieldLogger
}

// NewBookingService creates a new booking service
func NewBookingService(store BookingStore, verifier PaymentVerifier, renderer *TicketRenderer, dispatcher NotificationDispatcher, retry RetryPolicy, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		store:      store,
		verifier:   verifier,
		renderer:   renderer,
		dispatcher: dispatcher,
		retry:      retry,
		log:        log.WithField("component", "booking"),
	}
}

// SaveBooking validates and persists the booking exactly once per
// (paymentId, orderId). Only the first save triggers a notification.
func (s *BookingService) SaveBooking(ctx context.Context, req *models.BookingCreateRequest) (*BookingResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"order_id":   req.OrderID,
		"payment_id": req.PaymentID,
	})

	if req.Signature != "" {
		ok, err := s.verifier.VerifyPayment(&models.PaymentConfirmation{
			OrderID:   req.OrderID,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Warn("booking rejected: payment signature mismatch")
			return nil, models.ErrSignatureMismatch
		}
	}

	var (
		booking *models.Booking
		created bool
	)
	err := s.retry.Do(ctx, log, "save_booking", isRetryableStoreError, func() error {
		var opErr error
		booking, created, opErr = s.store.Create(ctx, req.ToBooking())
		return opErr
	})
	if err != nil {
		log.WithError(err).Error("failed to persist booking")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	qr, err := s.renderer.QRCodeDataURL(booking)
	if err != nil {
		// The booking is stored; the QR can be regenerated from it.
		log.WithError(err).Error("failed to render QR code")
	}

	if created {
		log.WithField("booking_id", booking.ID).Info("booking saved")
		if err := s.dispatcher.Dispatch(ctx, booking); err != nil {
			log.WithError(err).WithField("booking_id", booking.ID).Error("failed to schedule booking notification")
		}
	} else {
		log.WithField("booking_id", booking.ID).Info("booking already recorded")
	}

	return &BookingResult{Booking: booking, Created: created, QRCode: qr}, nil
}

// transientPQClasses are the Postgres SQLSTATE classes worth retrying:
// connection exceptions, transaction rollbacks (serialization failures and
// deadlocks), insufficient resources and operator intervention.
var transientPQClasses = map[pq.ErrorClass]bool{
	"08": true,
	"40": true,
	"53": true,
	"57": true,
}

func isRetryableStoreError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if models.IsValidationError(err) || errors.Is(err, models.ErrInvalidStatus) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPQClasses[pqErr.Code.Class()]
	}
	return true
}
