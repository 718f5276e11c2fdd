package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"event-checkout/internal/models"
)

// RenderPDF generates the one page ticket document with the embedded QR code.
func (r *TicketRenderer) RenderPDF(b *models.Booking) ([]byte, error) {
	qrPNG, err := r.QRCodePNG(b)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.event.Name+" Ticket", true)
	pdf.SetCreator("event-checkout", true)
	pdf.SetCreationDate(r.now())
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Header band
	pdf.SetFillColor(17, 24, 39)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 16, tr(r.event.Name), "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}

	section("ATTENDEE")
	row("Name", b.FullName())
	row("Email", b.Email)
	row("Phone", b.PhoneNumber)
	pdf.Ln(4)

	section("EVENT")
	row("Venue", r.event.Venue)
	row("Date", r.event.Date)
	row("Time", r.event.Time)
	pdf.Ln(4)

	section("ORDER SUMMARY")
	for _, line := range b.Tickets {
		if line.Quantity == 0 {
			continue
		}
		row(line.Type.Label(), fmt.Sprintf("x %d", line.Quantity))
	}
	row("Total tickets", fmt.Sprintf("%d", b.Tickets.Total()))
	row("Amount paid", fmt.Sprintf("%s %s", models.DefaultCurrency, b.TotalAmount.StringFixed(2)))
	row("Order ID", b.OrderID)
	row("Payment ID", b.PaymentID)
	pdf.Ln(6)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	x := (210.0 - 60.0) / 2
	pdf.ImageOptions("qr", x, pdf.GetY(), 60, 60, true, opts, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Present this QR code at the venue entrance. Each ticket is valid for one person only and is non-transferable.", "", "C", false)
	if r.event.SupportEmail != "" {
		pdf.MultiCell(0, 5, tr("For support, contact "+r.event.SupportEmail+" with your order ID."), "", "C", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket document: %w", err)
	}
	return buf.Bytes(), nil
}
