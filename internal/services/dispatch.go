package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
	"event-checkout/internal/queue"
)

// InlineDispatcher runs notifications on background goroutines inside the
// API process. Close waits for the ones still running.
type InlineDispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInlineDispatcher creates a dispatcher that gives each notification
// up to timeout to complete.
func NewInlineDispatcher(notifier Notifier, timeout time.Duration, log logrus.FieldLogger) *InlineDispatcher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &InlineDispatcher{
		notifier: notifier,
		timeout:  timeout,
		log:      log.WithField("component", "inline_dispatcher"),
	}
}

// Dispatch starts the notification and returns immediately. The request
// context is not inherited so the notification outlives the request.
func (d *InlineDispatcher) Dispatch(ctx context.Context, booking *models.Booking) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher closed")
	}
	d.wg.Add(1)
	d.mu.Unlock()

	b := *booking
	go func() {
		defer d.wg.Done()

		nctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(nctx, &b); err != nil {
			d.log.WithError(err).WithField("booking_id", b.ID).Error("booking notification failed")
		}
	}()
	return nil
}

// Close stops accepting work and waits for running notifications or ctx.
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notifications: %w", ctx.Err())
	}
}

// BookingEventPublisher publishes booking confirmations to a broker.
type BookingEventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
	Close() error
}

// QueueDispatcher hands notifications to the worker through the broker.
type QueueDispatcher struct {
	publisher BookingEventPublisher
	log       logrus.FieldLogger
}

// NewQueueDispatcher creates a broker backed dispatcher.
func NewQueueDispatcher(publisher BookingEventPublisher, log logrus.FieldLogger) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher, log: log.WithField("component", "queue_dispatcher")}
}

// Dispatch publishes the booking confirmation.
func (d *QueueDispatcher) Dispatch(ctx context.Context, booking *models.Booking) error {
	event := queue.BookingConfirmedEvent{
		BookingID:   booking.ID,
		OrderID:     booking.OrderID,
		PaymentID:   booking.PaymentID,
		Email:       booking.Email,
		TotalAmount: booking.TotalAmount,
		ConfirmedAt: booking.CreatedAt,
	}
	if err := d.publisher.PublishBookingConfirmed(ctx, event); err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

// Close closes the broker connection.
func (d *QueueDispatcher) Close(ctx context.Context) error {
	return d.publisher.Close()
}

// NotificationWorker turns queued confirmations back into notifications.
type NotificationWorker struct {
	store    BookingStore
	notifier Notifier
	log      logrus.FieldLogger
}

// NewNotificationWorker creates the queue handler used by the worker command.
func NewNotificationWorker(store BookingStore, notifier Notifier, log logrus.FieldLogger) *NotificationWorker {
	return &NotificationWorker{store: store, notifier: notifier, log: log.WithField("component", "notification_worker")}
}

// Handle loads the booking and notifies the attendee. A booking that no
// longer exists is acknowledged without a notification.
func (w *NotificationWorker) Handle(ctx context.Context, event queue.BookingConfirmedEvent) error {
	booking, err := w.store.GetByID(ctx, event.BookingID)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			w.log.WithField("booking_id", event.BookingID).Warn("queued booking not found, skipping")
			return nil
		}
		return fmt.Errorf("failed to load booking: %w", err)
	}
	return w.notifier.Notify(ctx, booking)
}
