package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"event-checkout/internal/models"
)

const (
	ticketImageWidth  = 900
	ticketImageHeight = 360
	ticketImageMargin = 24
)

// RenderTicketImage composites the booking QR code onto the ticket image.
// Without a configured banner the QR code is placed on a plain card.
func (r *TicketRenderer) RenderTicketImage(b *models.Booking) ([]byte, error) {
	qr, err := r.qrCode(b)
	if err != nil {
		return nil, err
	}

	var canvas *image.NRGBA
	if r.banner != nil {
		canvas = imaging.Fit(r.banner, ticketImageWidth, ticketImageHeight, imaging.Lanczos)
	} else {
		canvas = imaging.New(ticketImageWidth, ticketImageHeight, color.White)
	}

	bounds := canvas.Bounds()
	side := bounds.Dy() - 2*ticketImageMargin
	if side <= 0 {
		return nil, fmt.Errorf("ticket image too small: %dx%d", bounds.Dx(), bounds.Dy())
	}
	code := imaging.Resize(qr.Image(side), side, side, imaging.NearestNeighbor)

	pos := image.Pt(bounds.Max.X-side-ticketImageMargin, bounds.Min.Y+ticketImageMargin)
	out := imaging.Overlay(canvas, code, pos, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode ticket image: %w", err)
	}
	return buf.Bytes(), nil
}
