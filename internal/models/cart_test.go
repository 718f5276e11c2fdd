package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceTable_Quote(t *testing.T) {
	tests := []struct {
		name        string
		selections  []TicketSelection
		wantTotal   string
		wantTickets int
		wantLines   int
		wantErr     error
	}{
		{
			name:        "two early bird",
			selections:  []TicketSelection{{Type: TicketEarlyBird, Quantity: 2}},
			wantTotal:   "4",
			wantTickets: 2,
			wantLines:   1,
		},
		{
			name: "mixed cart drops zero quantities",
			selections: []TicketSelection{
				{Type: TicketEarlyBird, Quantity: 1},
				{Type: TicketGoldDelegate, Quantity: 0},
				{Type: TicketPlatinumAccess, Quantity: 3},
			},
			wantTotal:   "5",
			wantTickets: 4,
			wantLines:   2,
		},
		{
			name: "repeated type is merged",
			selections: []TicketSelection{
				{Type: TicketGoldDelegate, Quantity: 1},
				{Type: TicketGoldDelegate, Quantity: 2},
			},
			wantTotal:   "3",
			wantTickets: 3,
			wantLines:   1,
		},
		{
			name:       "empty cart",
			selections: []TicketSelection{{Type: TicketEarlyBird, Quantity: 0}},
			wantErr:    ErrEmptyCart,
		},
		{
			name:       "unknown type",
			selections: []TicketSelection{{Type: "backstage", Quantity: 1}},
			wantErr:    ErrInvalidTicketSelection,
		},
		{
			name:       "negative quantity",
			selections: []TicketSelection{{Type: TicketEarlyBird, Quantity: -1}},
			wantErr:    ErrInvalidTicketSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := DefaultPriceTable.Quote(tt.selections)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, quote)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(quote.TotalAmount), "total %s", quote.TotalAmount)
			assert.Equal(t, tt.wantTickets, quote.TotalTickets)
			assert.Len(t, quote.LineItems, tt.wantLines)
			assert.Equal(t, DefaultCurrency, quote.Currency)
		})
	}
}

func TestPriceTable_QuoteIsDeterministic(t *testing.T) {
	selections := []TicketSelection{
		{Type: TicketPlatinumAccess, Quantity: 1},
		{Type: TicketEarlyBird, Quantity: 2},
	}

	first, err := DefaultPriceTable.Quote(selections)
	require.NoError(t, err)
	second, err := DefaultPriceTable.Quote(selections)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, TicketEarlyBird, first.LineItems[0].Type)
	assert.Equal(t, TicketPlatinumAccess, first.LineItems[1].Type)
}

func TestPriceQuote_Tickets(t *testing.T) {
	quote, err := DefaultPriceTable.Quote([]TicketSelection{
		{Type: TicketEarlyBird, Quantity: 2},
		{Type: TicketGoldDelegate, Quantity: 1},
	})
	require.NoError(t, err)

	lines := quote.Tickets()
	assert.Equal(t, TicketLines{
		{Type: TicketEarlyBird, Quantity: 2},
		{Type: TicketGoldDelegate, Quantity: 1},
	}, lines)
	assert.Equal(t, 3, lines.Total())
}
