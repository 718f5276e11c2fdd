package services

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"

	"event-checkout/internal/models"
)

// EventDetails is the event metadata printed on every ticket.
type EventDetails struct {
	Name         string
	Venue        string
	Date         string
	Time         string
	SupportEmail string
}

// TicketRenderer produces the QR code, ticket document and ticket image for
// a booking. It holds no per-booking state and is safe for concurrent use.
type TicketRenderer struct {
	event  EventDetails
	banner image.Image
	qrSize int
	now    func() time.Time
}

// NewTicketRenderer creates a renderer. bannerPath optionally points to a
// static ticket image the QR code is composited onto.
func NewTicketRenderer(event EventDetails, bannerPath string) (*TicketRenderer, error) {
	r := &TicketRenderer{
		event:  event,
		qrSize: 256,
		now:    time.Now,
	}

	if bannerPath != "" {
		banner, err := imaging.Open(bannerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ticket image %s: %w", bannerPath, err)
		}
		r.banner = banner
	}

	return r, nil
}

// HasBanner reports whether a static ticket image was configured.
func (r *TicketRenderer) HasBanner() bool {
	return r.banner != nil
}

// Event returns the metadata the renderer prints.
func (r *TicketRenderer) Event() EventDetails {
	return r.event
}

// qrPayload fixes the key order of the encoded QR content.
type qrPayload struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	PhoneNumber string             `json:"phoneNumber"`
	Tickets     models.TicketLines `json:"tickets"`
	PaymentID   string             `json:"paymentId"`
	OrderID     string             `json:"orderId"`
}

// QRPayload returns the canonical JSON encoded in the ticket QR code. The
// same booking always yields the same bytes.
func (r *TicketRenderer) QRPayload(b *models.Booking) ([]byte, error) {
	tickets := b.Tickets
	if tickets == nil {
		tickets = models.TicketLines{}
	}
	return json.Marshal(qrPayload{
		Name:        b.FullName(),
		Email:       b.Email,
		PhoneNumber: b.PhoneNumber,
		Tickets:     tickets,
		PaymentID:   b.PaymentID,
		OrderID:     b.OrderID,
	})
}

func (r *TicketRenderer) qrCode(b *models.Booking) (*qrcode.QRCode, error) {
	payload, err := r.QRPayload(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}
	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return qr, nil
}

// QRCodePNG renders the booking QR code as a PNG image.
func (r *TicketRenderer) QRCodePNG(b *models.Booking) ([]byte, error) {
	qr, err := r.qrCode(b)
	if err != nil {
		return nil, err
	}
	return qr.PNG(r.qrSize)
}

// QRCodeDataURL returns the QR code PNG as a data URL for inline display.
func (r *TicketRenderer) QRCodeDataURL(b *models.Booking) (string, error) {
	png, err := r.QRCodePNG(b)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// DocumentName is the download file name of the ticket document.
func (r *TicketRenderer) DocumentName(b *models.Booking) string {
	prefix := strings.Trim(unsafeFileChars.ReplaceAllString(r.event.Name, "_"), "_")
	if prefix == "" {
		prefix = "Event"
	}
	return fmt.Sprintf("%s_Ticket_%s.pdf", prefix, unsafeFileChars.ReplaceAllString(b.OrderID, "_"))
}
