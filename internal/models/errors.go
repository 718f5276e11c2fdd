package models

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used throughout the application
var (
	ErrBookingNotFound         = errors.New("booking not found")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidTicketSelection  = errors.New("invalid ticket selection")
	ErrEmptyCart               = errors.New("at least one ticket is required")
	ErrMalformedConfirmation   = errors.New("missing payment validation fields")
	ErrSignatureMismatch       = errors.New("invalid payment signature")
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhook        = errors.New("malformed webhook payload")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrPersistence             = errors.New("failed to persist booking")
	ErrInvalidStatus           = errors.New("invalid booking status")
)

// ValidationError lists the request fields that were missing or invalid.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError returns nil when no fields are given, so callers can
// build the field list and return the result directly.
func NewValidationError(message string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Message: message, Fields: fields}
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTicketSelection) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMalformedConfirmation) ||
		errors.Is(err, ErrMalformedWebhook)
}
