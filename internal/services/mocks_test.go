package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"event-checkout/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

// MockPaymentGateway is a testify mock of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*models.PaymentOrder, error) {
	args := m.Called(ctx, req)
	if order, ok := args.Get(0).(*models.PaymentOrder); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEmailSender is a testify mock of EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg *EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// recordingDispatcher collects dispatched bookings.
type recordingDispatcher struct {
	mu       sync.Mutex
	bookings []*models.Booking
	err      error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, booking *models.Booking) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bookings = append(d.bookings, booking)
	return d.err
}

func (d *recordingDispatcher) Close(ctx context.Context) error { return nil }

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bookings)
}

// recordingNotifier counts notifications and can block until released.
type recordingNotifier struct {
	mu      sync.Mutex
	ids     []string
	err     error
	release chan struct{}
}

func (n *recordingNotifier) Notify(ctx context.Context, booking *models.Booking) error {
	if n.release != nil {
		select {
		case <-n.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, booking.ID)
	return n.err
}

func (n *recordingNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

// memoryDedup is an in-process EventDeduplicator.
type memoryDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemoryDedup() *memoryDedup {
	return &memoryDedup{seen: make(map[string]bool)}
}

func (d *memoryDedup) Claim(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

func (d *memoryDedup) Release(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, eventID)
	return nil
}
