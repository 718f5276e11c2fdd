package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
)

const (
	qrCodeCID          = "qrcode.png"
	ticketLinkValidity = 7 * 24 * time.Hour
)

// NotificationError reports which step of a confirmation delivery failed.
// It never changes the outcome of the request that triggered it.
type NotificationError struct {
	BookingID string
	Step      string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification for booking %s failed at %s: %v", e.BookingID, e.Step, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// NotificationService renders the ticket, stores it and emails the attendee.
type NotificationService struct {
	renderer *TicketRenderer
	email    EmailSender
	storage  StorageService
	log      logrus.FieldLogger
}

// NewNotificationService creates a notifier. storage may be nil, in which
// case the ticket is only attached to the email.
func NewNotificationService(renderer *TicketRenderer, email EmailSender, storage StorageService, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{
		renderer: renderer,
		email:    email,
		storage:  storage,
		log:      log.WithField("component", "notifier"),
	}
}

// Notify delivers the booking confirmation email with the ticket attached.
func (s *NotificationService) Notify(ctx context.Context, booking *models.Booking) error {
	log := s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"order_id":   booking.OrderID,
	})

	qrPNG, err := s.renderer.QRCodePNG(booking)
	if err != nil {
		return &NotificationError{BookingID: booking.ID, Step: "qr", Err: err}
	}

	pdf, err := s.renderer.RenderPDF(booking)
	if err != nil {
		return &NotificationError{BookingID: booking.ID, Step: "document", Err: err}
	}

	ticketURL := s.storeTicket(ctx, log, booking, pdf)

	msg, err := s.buildMessage(booking, ticketURL, qrPNG, pdf)
	if err != nil {
		return &NotificationError{BookingID: booking.ID, Step: "template", Err: err}
	}

	if s.renderer.HasBanner() {
		img, err := s.renderer.RenderTicketImage(booking)
		if err != nil {
			log.WithError(err).Warn("failed to render ticket image")
		} else {
			msg.Attachments = append(msg.Attachments, EmailAttachment{
				Filename:    strings.TrimSuffix(s.renderer.DocumentName(booking), ".pdf") + ".png",
				ContentType: "image/png",
				Content:     img,
			})
		}
	}

	if err := s.email.Send(ctx, msg); err != nil {
		return &NotificationError{BookingID: booking.ID, Step: "email", Err: err}
	}

	log.WithField("to", booking.Email).Info("booking confirmation sent")
	return nil
}

// storeTicket uploads the document and returns a download link. Storage
// failures only lose the link; the document is still attached.
func (s *NotificationService) storeTicket(ctx context.Context, log logrus.FieldLogger, booking *models.Booking, pdf []byte) string {
	if s.storage == nil {
		return ""
	}

	key := TicketStorageKey(booking)
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(pdf), "application/pdf", int64(len(pdf))); err != nil {
		log.WithError(err).Warn("failed to store ticket document")
		return ""
	}

	url, err := s.storage.GeneratePresignedURL(ctx, key, ticketLinkValidity)
	if err != nil {
		log.WithError(err).Warn("failed to sign ticket link")
		return s.storage.GetURL(key)
	}
	return url
}

func (s *NotificationService) buildMessage(booking *models.Booking, ticketURL string, qrPNG, pdf []byte) (*EmailMessage, error) {
	lines := make([]ConfirmationLine, 0, len(booking.Tickets))
	for _, line := range booking.Tickets {
		if line.Quantity == 0 {
			continue
		}
		lines = append(lines, ConfirmationLine{Label: line.Type.Label(), Quantity: line.Quantity})
	}

	html, text, err := RenderConfirmationEmail(&ConfirmationEmailData{
		Event:       s.renderer.Event(),
		Booking:     booking,
		Lines:       lines,
		TicketURL:   ticketURL,
		QRCodeCID:   qrCodeCID,
		AmountPaid:  booking.TotalAmount.StringFixed(2),
		TicketCount: booking.Tickets.Total(),
	})
	if err != nil {
		return nil, err
	}

	return &EmailMessage{
		To:      booking.Email,
		Subject: "Booking Confirmation",
		HTML:    html,
		Text:    text,
		Tags: map[string]string{
			"type":     "booking_confirmation",
			"order_id": booking.OrderID,
		},
		Attachments: []EmailAttachment{
			{Filename: qrCodeCID, ContentType: "image/png", Content: qrPNG, Inline: true},
			{Filename: s.renderer.DocumentName(booking), ContentType: "application/pdf", Content: pdf},
		},
	}, nil
}

// TicketStorageKey is where a booking's ticket document is stored. The name
// is derived from the booking so a redelivery overwrites the same object.
func TicketStorageKey(booking *models.Booking) string {
	return fmt.Sprintf("tickets/%s/%s.pdf", booking.OrderID, uuid.NewSHA1(uuid.NameSpaceURL, []byte(booking.ID+"|"+booking.PaymentID)).String())
}
