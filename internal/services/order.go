package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)

	// maxMinorUnits is the largest amount the bookings table can hold,
	// NUMERIC(12, 2) expressed in minor units.
	maxMinorUnits = decimal.NewFromInt(999_999_999_999)
)

// ToMinorUnits converts a major-unit amount to the gateway's integer minor
// units, rounding half up. Non-positive results and amounts above
// maxMinorUnits are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).Round(0)
	if !minor.IsPositive() || minor.GreaterThan(maxMinorUnits) {
		return 0, models.ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// OrderService creates gateway orders for a checkout. It keeps no local
// state; the order only exists at the gateway.
type OrderService struct {
	gateway PaymentGateway
	retry   RetryPolicy
	log     logrus.FieldLogger
}

// NewOrderService creates a new order service
func NewOrderService(gateway PaymentGateway, retry RetryPolicy, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		gateway: gateway,
		retry:   retry,
		log:     log.WithField("component", "order"),
	}
}

// CreateOrder validates the request, converts the amount and asks the
// gateway for an order. Transient gateway failures are retried with the
// same receipt.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.PaymentOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	minor, err := ToMinorUnits(*req.Amount)
	if err != nil {
		return nil, err
	}

	gwReq := &GatewayOrderRequest{
		Amount:   minor,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Receipt:  strings.TrimSpace(req.Receipt),
		Notes:    req.Notes,
	}

	var order *models.PaymentOrder
	err = s.retry.Do(ctx, s.log, "create_order", IsTransient, func() error {
		var opErr error
		order, opErr = s.gateway.CreateOrder(ctx, gwReq)
		return opErr
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"receipt": gwReq.Receipt}).WithError(err).Error("failed to create order")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrGatewayUnavailable, err)
	}

	return order, nil
}
