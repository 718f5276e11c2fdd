package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// BookingStatus represents where a booking is in the payment lifecycle
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCaptured  BookingStatus = "captured"
	BookingFailed    BookingStatus = "failed"
)

// IsValid reports whether s is a known status.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCaptured, BookingFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCaptured || s == BookingFailed
}

// CanTransitionTo reports whether a booking in status s may move to next.
// Status only moves forward: pending -> confirmed -> captured | failed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCaptured || next == BookingFailed
	case BookingConfirmed:
		return next == BookingCaptured || next == BookingFailed
	default:
		return false
	}
}

// Predecessors lists the statuses from which s can be reached.
func (s BookingStatus) Predecessors() []BookingStatus {
	var out []BookingStatus
	for _, prev := range []BookingStatus{BookingPending, BookingConfirmed, BookingCaptured, BookingFailed} {
		if prev.CanTransitionTo(s) {
			out = append(out, prev)
		}
	}
	return out
}

// TicketLine is a purchased quantity of one ticket type as stored on a booking.
type TicketLine struct {
	Type     TicketType `json:"type"`
	Quantity int        `json:"quantity"`
}

// TicketLines is stored as a JSONB column.
type TicketLines []TicketLine

// Total returns the number of individual tickets.
func (t TicketLines) Total() int {
	total := 0
	for _, line := range t {
		total += line.Quantity
	}
	return total
}

// Value encodes as a string so the driver sends JSON text rather than bytea.
func (t TicketLines) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TicketLines) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = TicketLines{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TicketLines", src)
	}
	return json.Unmarshal(data, t)
}

// Booking is a persisted, verified ticket purchase.
type Booking struct {
	ID          string          `json:"id" db:"id"`
	FirstName   string          `json:"firstName" db:"first_name"`
	SecondName  string          `json:"secondName" db:"second_name"`
	PhoneNumber string          `json:"phoneNumber" db:"phone_number"`
	Email       string          `json:"email" db:"email"`
	PaymentID   string          `json:"paymentId" db:"payment_id"`
	OrderID     string          `json:"orderId" db:"order_id"`
	Tickets     TicketLines     `json:"tickets" db:"tickets"`
	TotalAmount decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Status      BookingStatus   `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and second name the way tickets print it.
func (b *Booking) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.SecondName)
}

// BookingCreateRequest is the payload accepted by the save-booking endpoint.
// Signature is optional; when present it is verified before persisting.
type BookingCreateRequest struct {
	FirstName   string           `json:"firstName"`
	SecondName  string           `json:"secondName"`
	PhoneNumber string           `json:"phoneNumber"`
	Email       string           `json:"email"`
	PaymentID   string           `json:"paymentId"`
	OrderID     string           `json:"orderId"`
	Signature   string           `json:"signature,omitempty"`
	Tickets     TicketLines      `json:"tickets"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

// Column widths of the bookings table.
const (
	maxNameLength  = 100
	maxPhoneLength = 32
	maxEmailLength = 255
	maxIDLength    = 64
)

// maxTotalAmount is the largest value NUMERIC(12, 2) stores.
var maxTotalAmount = decimal.RequireFromString("9999999999.99")

// Normalize trims surrounding whitespace from the text fields.
func (r *BookingCreateRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.SecondName = strings.TrimSpace(r.SecondName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Email = strings.TrimSpace(r.Email)
	r.PaymentID = strings.TrimSpace(r.PaymentID)
	r.OrderID = strings.TrimSpace(r.OrderID)
}

// Validate returns a *ValidationError naming every missing field, or an
// error describing the first malformed one.
func (r *BookingCreateRequest) Validate() error {
	var missing []string
	if r.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if r.SecondName == "" {
		missing = append(missing, "secondName")
	}
	if r.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.PaymentID == "" {
		missing = append(missing, "paymentId")
	}
	if r.OrderID == "" {
		missing = append(missing, "orderId")
	}
	if len(r.Tickets) == 0 {
		missing = append(missing, "tickets")
	}
	if r.TotalAmount == nil {
		missing = append(missing, "totalAmount")
	}
	if err := NewValidationError("missing required fields", missing...); err != nil {
		return err
	}

	if err := r.validateLengths(); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ValidationError{Message: "invalid email address", Fields: []string{"email"}}
	}
	for _, line := range r.Tickets {
		if line.Type == "" || line.Quantity < 0 {
			return &ValidationError{Message: "invalid ticket line", Fields: []string{"tickets"}}
		}
	}
	if r.Tickets.Total() == 0 {
		return &ValidationError{Message: "at least one ticket is required", Fields: []string{"tickets"}}
	}
	if r.TotalAmount.IsNegative() {
		return &ValidationError{Message: "total amount cannot be negative", Fields: []string{"totalAmount"}}
	}
	if r.TotalAmount.Round(2).GreaterThan(maxTotalAmount) {
		return &ValidationError{Message: "total amount is too large", Fields: []string{"totalAmount"}}
	}
	return nil
}

func (r *BookingCreateRequest) validateLengths() error {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"firstName", r.FirstName, maxNameLength},
		{"secondName", r.SecondName, maxNameLength},
		{"phoneNumber", r.PhoneNumber, maxPhoneLength},
		{"email", r.Email, maxEmailLength},
		{"paymentId", r.PaymentID, maxIDLength},
		{"orderId", r.OrderID, maxIDLength},
	}

	var tooLong []string
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			tooLong = append(tooLong, l.field)
		}
	}
	return NewValidationError("fields too long", tooLong...)
}

// ToBooking builds the record to persist with the initial confirmed status.
func (r *BookingCreateRequest) ToBooking() *Booking {
	return &Booking{
		FirstName:   r.FirstName,
		SecondName:  r.SecondName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		PaymentID:   r.PaymentID,
		OrderID:     r.OrderID,
		Tickets:     r.Tickets,
		TotalAmount: r.TotalAmount.Round(2),
		Status:      BookingConfirmed,
	}
}

// ParseBookingStatus validates a raw status string.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", errors.Join(ErrInvalidStatus, fmt.Errorf("unknown status %q", raw))
	}
	return s, nil
}

// StatusUpdateResult describes the outcome of a status transition request.
type StatusUpdateResult struct {
	// Booking is the current record, nil when the booking is not saved yet.
	Booking *Booking
	// Applied is true when the stored status changed.
	Applied bool
	// Deferred is true when the status was parked until the booking is saved.
	Deferred bool
}
