package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode"
	"unicode/utf8"

	"event-checkout/internal/middleware"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

const maxBodyBytes = 1 << 20

// writeJSON writes data as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &models.ValidationError{Message: "request body is required"}
		}
		return &models.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// writeServiceError maps an error from the service layer to a response.
// It is the only place errors are classified into HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := middleware.LoggerFromContext(r.Context()).WithError(err)

	var ve *models.ValidationError
	var gwErr *services.GatewayError
	switch {
	case errors.As(err, &ve):
		middleware.WriteJSONError(w, http.StatusBadRequest, middleware.ErrorResponse{
			Message: capitalize(ve.Message),
			Fields:  ve.Fields,
		})

	case models.IsValidationError(err):
		middleware.WriteJSONError(w, http.StatusBadRequest, middleware.ErrorResponse{Message: capitalize(rootMessage(err))})

	case errors.Is(err, models.ErrSignatureMismatch), errors.Is(err, models.ErrInvalidWebhookSignature):
		middleware.WriteJSONError(w, http.StatusBadRequest, middleware.ErrorResponse{Message: capitalize(rootMessage(err))})

	case errors.Is(err, models.ErrGatewayUnavailable):
		log.Error("payment gateway error")
		resp := middleware.ErrorResponse{Message: "Failed to create Razorpay order"}
		if errors.As(err, &gwErr) {
			resp.Details = gwErr.Description
		}
		middleware.WriteJSONError(w, http.StatusBadGateway, resp)

	case errors.Is(err, models.ErrPersistence):
		log.Error("persistence error")
		middleware.WriteJSONError(w, http.StatusInternalServerError, middleware.ErrorResponse{Message: "Error saving booking"})

	case errors.Is(err, models.ErrBookingNotFound):
		middleware.WriteJSONError(w, http.StatusNotFound, middleware.ErrorResponse{Message: "Booking not found"})

	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out")
		middleware.WriteJSONError(w, http.StatusGatewayTimeout, middleware.ErrorResponse{Message: "Request timed out"})

	default:
		log.Error("unhandled error")
		middleware.WriteJSONError(w, http.StatusInternalServerError, middleware.ErrorResponse{Message: "Internal server error"})
	}
}

// rootMessage returns the message of the sentinel error err matches.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		models.ErrInvalidAmount,
		models.ErrEmptyCart,
		models.ErrInvalidTicketSelection,
		models.ErrMalformedConfirmation,
		models.ErrMalformedWebhook,
		models.ErrSignatureMismatch,
		models.ErrInvalidWebhookSignature,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
