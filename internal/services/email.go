package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"event-checkout/internal/models"
)

// EmailAttachment is a file sent with a message. Inline attachments are
// referenced from the HTML body as cid:<Filename>.
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Inline      bool
}

// EmailMessage is a single outgoing email
type EmailMessage struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Tags        map[string]string
	Attachments []EmailAttachment
}

// EmailConfig represents SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	Timeout      time.Duration
}

// SMTPEmailService sends email through an SMTP relay
type SMTPEmailService struct {
	config EmailConfig
	log    logrus.FieldLogger
}

// NewSMTPEmailService creates a new SMTP email sender
func NewSMTPEmailService(config EmailConfig, log logrus.FieldLogger) *SMTPEmailService {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPEmailService{config: config, log: log.WithField("component", "smtp")}
}

// BuildMessage converts an EmailMessage into a MIME message
func (s *SMTPEmailService) BuildMessage(msg *EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.config.FromName, s.config.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, a := range msg.Attachments {
		opt := mail.WithFileContentType(mail.ContentType(a.ContentType))
		if a.Inline {
			m.EmbedReadSeeker(a.Filename, bytes.NewReader(a.Content), opt)
		} else {
			m.AttachReadSeeker(a.Filename, bytes.NewReader(a.Content), opt)
		}
	}
	return m, nil
}

// Send delivers the message
func (s *SMTPEmailService) Send(ctx context.Context, msg *EmailMessage) error {
	m, err := s.BuildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.SMTPHost,
		mail.WithPort(s.config.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.SMTPUsername),
		mail.WithPassword(s.config.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(s.config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.WithField("to", msg.To).Info("email sent")
	return nil
}

// LogEmailService logs messages instead of sending them. It is used when no
// email provider is configured.
type LogEmailService struct {
	log logrus.FieldLogger
}

func NewLogEmailService(log logrus.FieldLogger) *LogEmailService {
	return &LogEmailService{log: log.WithField("component", "email")}
}

func (s *LogEmailService) Send(ctx context.Context, msg *EmailMessage) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	s.log.WithFields(logrus.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"attachments": names,
	}).Info("email delivery disabled, message logged")
	return nil
}

// ConfirmationEmailData is the template input for booking confirmations
type ConfirmationEmailData struct {
	Event       EventDetails
	Booking     *models.Booking
	Lines       []ConfirmationLine
	TicketURL   string
	QRCodeCID   string
	AmountPaid  string
	TicketCount int
}

// ConfirmationLine is one ticket tier in the confirmation email
type ConfirmationLine struct {
	Label    string
	Quantity int
}

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Booking Confirmation</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #111827; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .qr { text-align: center; margin: 20px 0; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Booking Confirmation</h1>
        </div>
        <div class="content">
            <p>Dear {{.Booking.FullName}},</p>
            <p>Thank you for your booking for <strong>{{.Event.Name}}</strong>.</p>
            <p><strong>Venue:</strong> {{.Event.Venue}}<br>
               <strong>Date:</strong> {{.Event.Date}}<br>
               <strong>Time:</strong> {{.Event.Time}}</p>
            <h3>Order Summary</h3>
            <ul>
            {{range .Lines}}<li>{{.Label}} x {{.Quantity}}</li>
            {{end}}</ul>
            <p><strong>Total tickets:</strong> {{.TicketCount}}<br>
               <strong>Amount paid:</strong> {{.AmountPaid}}<br>
               <strong>Order ID:</strong> {{.Booking.OrderID}}<br>
               <strong>Payment ID:</strong> {{.Booking.PaymentID}}</p>
            <div class="qr">
                <p>Your ticket QR code:</p>
                <img src="cid:{{.QRCodeCID}}" alt="Ticket QR code" width="200" height="200">
            </div>
            {{if .TicketURL}}<p>You can also <a href="{{.TicketURL}}">download your ticket</a>.</p>{{end}}
            <p>Your ticket is attached to this email. Please present it at the entrance.</p>
        </div>
        <div class="footer">
            <p>{{.Event.Name}}{{if .Event.SupportEmail}} | {{.Event.SupportEmail}}{{end}}</p>
        </div>
    </div>
</body>
</html>`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(`Booking Confirmation

Dear {{.Booking.FullName}},

Thank you for your booking for {{.Event.Name}}.

Venue: {{.Event.Venue}}
Date: {{.Event.Date}}
Time: {{.Event.Time}}

Order Summary
{{range .Lines}}- {{.Label}} x {{.Quantity}}
{{end}}
Total tickets: {{.TicketCount}}
Amount paid: {{.AmountPaid}}
Order ID: {{.Booking.OrderID}}
Payment ID: {{.Booking.PaymentID}}
{{if .TicketURL}}
Download your ticket: {{.TicketURL}}
{{end}}
Your ticket is attached to this email. Please present it at the entrance.
`))

// RenderConfirmationEmail renders the HTML and text bodies
func RenderConfirmationEmail(data *ConfirmationEmailData) (html, text string, err error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := confirmationHTML.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := confirmationText.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render text template: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
