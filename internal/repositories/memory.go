package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"event-checkout/internal/models"
)

type bookingKey struct {
	paymentID string
	orderID   string
}

// MemoryBookingRepository is an in-process booking store used when no
// database is configured and in tests. It follows the same idempotency and
// status rules as BookingRepository.
type MemoryBookingRepository struct {
	mu       sync.Mutex
	byKey    map[bookingKey]*models.Booking
	byID     map[string]*models.Booking
	parked   map[string]models.BookingStatus
	now      func() time.Time
	failNext error
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		byKey:  make(map[bookingKey]*models.Booking),
		byID:   make(map[string]*models.Booking),
		parked: make(map[string]models.BookingStatus),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FailNext makes the next write return err. Used to simulate outages.
func (r *MemoryBookingRepository) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

func (r *MemoryBookingRepository) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *MemoryBookingRepository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.takeFailure(); err != nil {
		return nil, false, fmt.Errorf("failed to create booking: %w", err)
	}

	key := bookingKey{paymentID: booking.PaymentID, orderID: booking.OrderID}
	if existing, ok := r.byKey[key]; ok {
		return clone(existing), false, nil
	}

	stored := clone(booking)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = models.BookingConfirmed
	}
	stored.CreatedAt = r.now()
	stored.UpdatedAt = stored.CreatedAt

	if parked, ok := r.parked[stored.OrderID]; ok {
		delete(r.parked, stored.OrderID)
		if stored.Status.CanTransitionTo(parked) {
			stored.Status = parked
		}
	}

	r.byKey[key] = stored
	r.byID[stored.ID] = stored
	return clone(stored), true, nil
}

func (r *MemoryBookingRepository) UpdateStatus(ctx context.Context, orderID, paymentID string, status models.BookingStatus) (*models.StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.takeFailure(); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	matches := r.forOrder(orderID)
	result := &models.StatusUpdateResult{}
	if len(matches) == 0 {
		if status.IsTerminal() {
			if _, ok := r.parked[orderID]; !ok {
				r.parked[orderID] = status
			}
			result.Deferred = true
		}
		return result, nil
	}

	for _, b := range matches {
		if b.Status.CanTransitionTo(status) {
			b.Status = status
			b.UpdatedAt = r.now()
			if !result.Applied {
				result.Booking = clone(b)
			}
			result.Applied = true
		}
	}
	if result.Booking == nil {
		result.Booking = clone(matches[0])
	}
	return result, nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	return clone(b), nil
}

func (r *MemoryBookingRepository) GetByOrderID(ctx context.Context, orderID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := r.forOrder(orderID)
	out := make([]models.Booking, 0, len(matches))
	for _, b := range matches {
		out = append(out, *clone(b))
	}
	return out, nil
}

func (r *MemoryBookingRepository) Ping(ctx context.Context) error {
	return nil
}

// Count returns the number of stored bookings.
func (r *MemoryBookingRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *MemoryBookingRepository) forOrder(orderID string) []*models.Booking {
	var out []*models.Booking
	for _, b := range r.byID {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func clone(b *models.Booking) *models.Booking {
	c := *b
	c.Tickets = append(models.TicketLines(nil), b.Tickets...)
	return &c
}
