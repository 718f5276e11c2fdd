package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/models"
)

// RazorpayConfig represents Razorpay gateway configuration
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// RazorpayService creates orders via the Razorpay REST API
type RazorpayService struct {
	config  RazorpayConfig
	client  *http.Client
	baseURL string
	log     logrus.FieldLogger
}

// NewRazorpayService creates a new Razorpay gateway client. The HTTP client
// is shared by all requests.
func NewRazorpayService(config RazorpayConfig, log logrus.FieldLogger) *RazorpayService {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &RazorpayService{
		config:  config,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     log.WithField("component", "razorpay"),
	}
}

// GatewayOrderRequest is the body of an order creation call. Amount is in
// minor units.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// razorpayErrorBody is the error envelope returned by the API
type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field,omitempty"`
	} `json:"error"`
}

// GatewayError is a failed call to the payment gateway. StatusCode is zero
// when no response was received.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("razorpay request failed: %v", e.Err)
	case e.Code != "":
		return fmt.Sprintf("razorpay error (status %d, %s): %s", e.StatusCode, e.Code, e.Description)
	default:
		return fmt.Sprintf("razorpay error (status %d): %s", e.StatusCode, e.Description)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying: transport errors,
// rate limiting and server errors are; other client errors are not.
func (e *GatewayError) Temporary() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CreateOrder registers an order with the gateway
func (s *RazorpayService) CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*models.PaymentOrder, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/orders", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}
	httpReq.SetBasicAuth(s.config.KeyID, s.config.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log := s.log.WithFields(logrus.Fields{
		"receipt":  req.Receipt,
		"amount":   req.Amount,
		"currency": req.Currency,
	})
	log.Debug("creating gateway order")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.WithError(err).Warn("gateway request timed out")
		}
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := s.handleAPIError(resp.StatusCode, bodyBytes)
		log.WithField("status", resp.StatusCode).WithError(apiErr).Warn("gateway rejected order")
		return nil, apiErr
	}

	var order models.PaymentOrder
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode order response: %w", err)}
	}
	if order.ID == "" {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Description: "order response missing id"}
	}

	log.WithField("order_id", order.ID).Info("gateway order created")
	return &order, nil
}

// handleAPIError converts a non-2xx response into a GatewayError
func (s *RazorpayService) handleAPIError(statusCode int, body []byte) error {
	gwErr := &GatewayError{StatusCode: statusCode}

	var apiErr razorpayErrorBody
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Description == "" {
		gwErr.Description = strings.TrimSpace(string(body))
		if gwErr.Description == "" {
			gwErr.Description = http.StatusText(statusCode)
		}
		return gwErr
	}

	gwErr.Code = apiErr.Error.Code
	gwErr.Description = apiErr.Error.Description
	if statusCode == http.StatusUnauthorized {
		gwErr.Description = "unauthorized: check API keys - " + gwErr.Description
	}
	return gwErr
}
