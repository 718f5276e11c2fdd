package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"event-checkout/internal/models"
)

const bookingColumns = `id, first_name, second_name, phone_number, email, payment_id, order_id,
	tickets, total_amount, status, created_at, updated_at`

// BookingRepository stores bookings in PostgreSQL. Writes for one order id
// are serialized with a transaction scoped advisory lock so a webhook and
// the booking save cannot interleave.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking unless one already exists for the same
// (payment_id, order_id). The stored record is returned either way and
// created reports whether this call inserted it. A status parked by an
// earlier webhook for the order is applied before commit.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOrder(ctx, tx, booking.OrderID); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	id := booking.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := booking.Status
	if status == "" {
		status = models.BookingConfirmed
	}

	query := `
		INSERT INTO bookings (id, first_name, second_name, phone_number, email, payment_id, order_id,
			tickets, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (payment_id, order_id) DO NOTHING
		RETURNING ` + bookingColumns

	stored := &models.Booking{}
	err = tx.QueryRowxContext(ctx, query,
		id,
		booking.FirstName,
		booking.SecondName,
		booking.PhoneNumber,
		booking.Email,
		booking.PaymentID,
		booking.OrderID,
		booking.Tickets,
		booking.TotalAmount,
		status,
		now,
	).StructScan(stored)

	if errors.Is(err, sql.ErrNoRows) {
		existing := &models.Booking{}
		err = tx.GetContext(ctx, existing,
			`SELECT `+bookingColumns+` FROM bookings WHERE payment_id = $1 AND order_id = $2`,
			booking.PaymentID, booking.OrderID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load existing booking: %w", err)
		}
		return existing, false, tx.Commit()
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := r.applyParkedStatus(ctx, tx, stored); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit booking creation: %w", err)
	}

	return stored, true, nil
}

func (r *BookingRepository) applyParkedStatus(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	var parked models.BookingStatus
	err := tx.GetContext(ctx, &parked,
		`DELETE FROM payment_status_updates WHERE order_id = $1 RETURNING status`, booking.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read parked status: %w", err)
	}
	if !booking.Status.CanTransitionTo(parked) {
		return nil
	}

	err = tx.QueryRowxContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+bookingColumns,
		booking.ID, parked,
	).StructScan(booking)
	if err != nil {
		return fmt.Errorf("failed to apply parked status: %w", err)
	}
	return nil
}

// UpdateStatus moves every booking of the order to status when the
// transition is allowed. Terminal bookings are left untouched. When no
// booking exists yet the status is parked for Create to pick up.
func (r *BookingRepository) UpdateStatus(ctx context.Context, orderID, paymentID string, status models.BookingStatus) (*models.StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}

	predecessors := make([]string, 0, 2)
	for _, s := range status.Predecessors() {
		predecessors = append(predecessors, string(s))
	}

	var updated []models.Booking
	err = tx.SelectContext(ctx, &updated, `
		UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE order_id = $1 AND status = ANY($3)
		RETURNING `+bookingColumns,
		orderID, status, pq.Array(predecessors))
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	result := &models.StatusUpdateResult{}
	if len(updated) > 0 {
		result.Booking = &updated[0]
		result.Applied = true
	} else {
		existing := &models.Booking{}
		err = tx.GetContext(ctx, existing,
			`SELECT `+bookingColumns+` FROM bookings WHERE order_id = $1 ORDER BY created_at LIMIT 1`, orderID)
		switch {
		case err == nil:
			result.Booking = existing
		case errors.Is(err, sql.ErrNoRows):
			if status.IsTerminal() {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO payment_status_updates (order_id, payment_id, status)
					VALUES ($1, $2, $3)
					ON CONFLICT (order_id) DO NOTHING`,
					orderID, paymentID, status); err != nil {
					return nil, fmt.Errorf("failed to park status: %w", err)
				}
				result.Deferred = true
			}
		default:
			return nil, fmt.Errorf("failed to load booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return result, nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.GetContext(ctx, booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetByOrderID returns the bookings recorded against a gateway order.
func (r *BookingRepository) GetByOrderID(ctx context.Context, orderID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.db.SelectContext(ctx, &bookings,
		`SELECT `+bookingColumns+` FROM bookings WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for order: %w", err)
	}
	return bookings, nil
}

// Ping checks database connectivity for health checks.
func (r *BookingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func lockOrder(ctx context.Context, tx *sqlx.Tx, orderID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, orderID); err != nil {
		return fmt.Errorf("failed to lock order %s: %w", orderID, err)
	}
	return nil
}
