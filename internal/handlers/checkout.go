package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/middleware"
	"event-checkout/internal/models"
	"event-checkout/internal/services"
)

// LivenessMessage is the plain text body of GET /.
const LivenessMessage = "Razorpay backend is running."

// CheckoutHandler serves the checkout endpoints
type CheckoutHandler struct {
	prices   models.PriceTable
	currency string
	orders   services.OrderServiceInterface
	verifier services.PaymentVerifier
	bookings services.BookingServiceInterface
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(prices models.PriceTable, currency string, orders services.OrderServiceInterface, verifier services.PaymentVerifier, bookings services.BookingServiceInterface) *CheckoutHandler {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &CheckoutHandler{
		prices:   prices,
		currency: currency,
		orders:   orders,
		verifier: verifier,
		bookings: bookings,
	}
}

// Root answers the liveness check
func (h *CheckoutHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessMessage))
}

type quoteRequest struct {
	Tickets []models.TicketSelection `json:"tickets"`
}

// Quote prices a ticket selection
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	quote, err := h.prices.Quote(req.Tickets)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	quote.Currency = h.currency

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"quote":   quote,
	})
}

// CreateOrder creates a gateway order for the checkout amount
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

// ValidatePayment verifies the signature of a payment confirmation
func (h *CheckoutHandler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	var conf models.PaymentConfirmation
	if err := decodeJSON(w, r, &conf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	ok, err := h.verifier.VerifyPayment(&conf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !ok {
		middleware.LoggerFromContext(r.Context()).WithFields(logrus.Fields{
			"order_id":   conf.OrderID,
			"payment_id": conf.PaymentID,
		}).Warn("payment signature mismatch")
		writeServiceError(w, r, models.ErrSignatureMismatch)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type saveBookingResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	BookingID string               `json:"bookingId"`
	QRCode    string               `json:"qrCode,omitempty"`
	Status    models.BookingStatus `json:"status"`
}

// SaveBooking records a paid booking and answers 201. A replay of an
// already saved payment answers 200 with the original booking, so clients
// can tell the replay apart from the first save.
func (h *CheckoutHandler) SaveBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.bookings.SaveBooking(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	message := "Booking saved successfully"
	if !result.Created {
		status = http.StatusOK
		message = "Booking already saved"
	}

	writeJSON(w, status, saveBookingResponse{
		Success:   true,
		Message:   message,
		BookingID: result.Booking.ID,
		QRCode:    result.QRCode,
		Status:    result.Booking.Status,
	})
}
