package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr error
	}{
		{amount: "4", want: 400},
		{amount: "2.50", want: 250},
		{amount: "1.005", want: 101},
		{amount: "19.999", want: 2000},
		{amount: "0.005", want: 1},
		{amount: "0.004", wantErr: models.ErrInvalidAmount},
		{amount: "0", wantErr: models.ErrInvalidAmount},
		{amount: "-3", wantErr: models.ErrInvalidAmount},
		{amount: "9999999999.99", want: 999_999_999_999},
		{amount: "10000000000", wantErr: models.ErrInvalidAmount},
		{amount: "92233720368547758.08", wantErr: models.ErrInvalidAmount},
		{amount: "184467440737095516.20", wantErr: models.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits_MatchesHalfUpRounding(t *testing.T) {
	for cents := int64(1); cents <= 2000; cents += 7 {
		for _, frac := range []string{"0", "4", "5", "9"} {
			amount := decimal.New(cents, -2).Add(decimal.RequireFromString("0.00" + frac))
			got, err := ToMinorUnits(amount)
			require.NoError(t, err)

			want := cents
			if frac >= "5" {
				want++
			}
			assert.Equal(t, want, got, "amount %s", amount)
		}
	}
}

func newOrderRequest(amount string) *models.OrderRequest {
	a := decimal.RequireFromString(amount)
	return &models.OrderRequest{Amount: &a, Currency: "inr", Receipt: "receipt_1"}
}

func TestOrderService_CreateOrder(t *testing.T) {
	gateway := new(MockPaymentGateway)
	order := &models.PaymentOrder{ID: "order_1", Amount: 400, Currency: "INR", Receipt: "receipt_1", Status: "created"}
	gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *GatewayOrderRequest) bool {
		return req.Amount == 400 && req.Currency == "INR" && req.Receipt == "receipt_1"
	})).Return(order, nil).Once()

	svc := NewOrderService(gateway, fastRetry(), quietLogger())
	got, err := svc.CreateOrder(context.Background(), newOrderRequest("4"))

	require.NoError(t, err)
	assert.Equal(t, "order_1", got.ID)
	assert.Equal(t, int64(400), got.Amount)
	gateway.AssertExpectations(t)
}

func TestOrderService_RetriesTransientFailures(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &GatewayError{StatusCode: 503, Description: "unavailable"}).Once()
	gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&models.PaymentOrder{ID: "order_2", Amount: 250}, nil).Once()

	svc := NewOrderService(gateway, fastRetry(), quietLogger())
	got, err := svc.CreateOrder(context.Background(), newOrderRequest("2.50"))

	require.NoError(t, err)
	assert.Equal(t, "order_2", got.ID)
	gateway.AssertNumberOfCalls(t, "CreateOrder", 2)
}

func TestOrderService_GivesUpAfterMaxAttempts(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &GatewayError{Err: errors.New("connection reset")})

	svc := NewOrderService(gateway, fastRetry(), quietLogger())
	_, err := svc.CreateOrder(context.Background(), newOrderRequest("1"))

	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)
	gateway.AssertNumberOfCalls(t, "CreateOrder", 3)
}

func TestOrderService_DoesNotRetryClientErrors(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &GatewayError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "invalid currency"})

	svc := NewOrderService(gateway, fastRetry(), quietLogger())
	_, err := svc.CreateOrder(context.Background(), newOrderRequest("1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 400, gwErr.StatusCode)
	gateway.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrderService_ValidationFailuresSkipGateway(t *testing.T) {
	tests := []struct {
		name    string
		req     *models.OrderRequest
		wantErr error
	}{
		{name: "missing amount", req: &models.OrderRequest{Currency: "INR", Receipt: "r"}},
		{name: "missing receipt", req: &models.OrderRequest{Amount: newOrderRequest("4").Amount, Currency: "INR"}},
		{name: "zero amount", req: newOrderRequest("0"), wantErr: models.ErrInvalidAmount},
		{name: "negative amount", req: newOrderRequest("-10"), wantErr: models.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockPaymentGateway)
			svc := NewOrderService(gateway, fastRetry(), quietLogger())

			_, err := svc.CreateOrder(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, models.IsValidationError(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CanceledRequestIsNotAGatewayError(t *testing.T) {
	gateway := new(MockPaymentGateway)
	gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &GatewayError{Err: context.Canceled})

	svc := NewOrderService(gateway, fastRetry(), quietLogger())
	_, err := svc.CreateOrder(context.Background(), newOrderRequest("1"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, models.ErrGatewayUnavailable)
	gateway.AssertNumberOfCalls(t, "CreateOrder", 1)
}
