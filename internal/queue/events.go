// Package queue carries booking confirmations from the API to the
// notification worker over RabbitMQ.
package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingConfirmedQueue is the default queue name for confirmations.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per newly saved booking. The
// worker reloads the booking by id, so the payload only identifies it.
type BookingConfirmedEvent struct {
	BookingID   string          `json:"booking_id"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}
