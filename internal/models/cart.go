package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// TicketType identifies a purchasable ticket tier.
type TicketType string

const (
	TicketEarlyBird      TicketType = "earlyBird"
	TicketGoldDelegate   TicketType = "goldDelegate"
	TicketPlatinumAccess TicketType = "platinumAccess"
)

// DefaultCurrency is the only currency the checkout quotes in.
const DefaultCurrency = "INR"

// PriceTable maps each ticket type to its unit price in major units.
type PriceTable map[TicketType]decimal.Decimal

// DefaultPriceTable is the price list shown on the booking page.
var DefaultPriceTable = PriceTable{
	TicketEarlyBird:      decimal.NewFromInt(2),
	TicketGoldDelegate:   decimal.NewFromInt(1),
	TicketPlatinumAccess: decimal.NewFromInt(1),
}

// ticketOrder fixes the line item order of a quote.
var ticketOrder = []TicketType{TicketEarlyBird, TicketGoldDelegate, TicketPlatinumAccess}

// Label returns the human readable tier name used on tickets.
func (t TicketType) Label() string {
	switch t {
	case TicketEarlyBird:
		return "Early Bird"
	case TicketGoldDelegate:
		return "Gold Delegate"
	case TicketPlatinumAccess:
		return "Platinum Access"
	default:
		return string(t)
	}
}

// TicketSelection is a requested quantity of one ticket type.
type TicketSelection struct {
	Type     TicketType `json:"type"`
	Quantity int        `json:"quantity"`
}

// QuoteLine is one priced row of a quote.
type QuoteLine struct {
	Type      TicketType      `json:"type"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PriceQuote is derived from a cart and never persisted.
type PriceQuote struct {
	LineItems    []QuoteLine     `json:"lineItems"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	TotalTickets int             `json:"totalTickets"`
	Currency     string          `json:"currency"`
}

// Quote prices the selections against the table. Zero quantities are dropped,
// repeated types are merged, and an empty cart is rejected.
func (p PriceTable) Quote(selections []TicketSelection) (*PriceQuote, error) {
	quantities := make(map[TicketType]int)
	for _, s := range selections {
		if _, ok := p[s.Type]; !ok {
			return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidTicketSelection, s.Type)
		}
		if s.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidTicketSelection, s.Type)
		}
		quantities[s.Type] += s.Quantity
	}

	quote := &PriceQuote{TotalAmount: decimal.Zero, Currency: DefaultCurrency}
	for _, t := range p.orderedTypes() {
		qty := quantities[t]
		if qty == 0 {
			continue
		}
		unit := p[t]
		subtotal := unit.Mul(decimal.NewFromInt(int64(qty)))
		quote.LineItems = append(quote.LineItems, QuoteLine{
			Type:      t,
			Quantity:  qty,
			UnitPrice: unit,
			Subtotal:  subtotal,
		})
		quote.TotalAmount = quote.TotalAmount.Add(subtotal)
		quote.TotalTickets += qty
	}

	if len(quote.LineItems) == 0 {
		return nil, ErrEmptyCart
	}
	quote.TotalAmount = quote.TotalAmount.Round(2)
	return quote, nil
}

// Tickets converts the quote into the lines stored on a booking.
func (q *PriceQuote) Tickets() TicketLines {
	lines := make(TicketLines, 0, len(q.LineItems))
	for _, item := range q.LineItems {
		lines = append(lines, TicketLine{Type: item.Type, Quantity: item.Quantity})
	}
	return lines
}

func (p PriceTable) orderedTypes() []TicketType {
	types := make([]TicketType, 0, len(p))
	seen := make(map[TicketType]bool, len(p))
	for _, t := range ticketOrder {
		if _, ok := p[t]; ok {
			types = append(types, t)
			seen[t] = true
		}
	}
	var extra []TicketType
	for t := range p {
		if !seen[t] {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(types, extra...)
}
