// Package payment creates Razorpay orders for online donations. Provider
// failures are collapsed into a single generic error so internal details
// never reach the donor.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"monthlyaid/internal/core"
)

const ordersURL = "https://api.razorpay.com/v1/orders"

type Client struct {
	keyID      string
	keySecret  string
	httpClient *http.Client
	now        func() time.Time
}

// Order is the subset of the provider's order response that callers need.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// NewFromEnv reads RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET.
func NewFromEnv() (*Client, error) {
	keyID := strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID"))
	keySecret := strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET"))
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("missing RAZORPAY_KEY_ID or RAZORPAY_KEY_SECRET")
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}, nil
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder creates an INR order for the given amount in paise.
func (c *Client) CreateOrder(ctx context.Context, amount core.Money) (Order, error) {
	if err := amount.Validate(); err != nil {
		return Order{}, err
	}

	body, err := json.Marshal(orderRequest{
		Amount:   amount.Paise,
		Currency: "INR",
		Receipt:  fmt.Sprintf("receipt_order_%d", c.now().UnixMilli()),
	})
	if err != nil {
		return Order{}, c.genericFailure(ctx, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ordersURL, bytes.NewReader(body))
	if err != nil {
		return Order{}, c.genericFailure(ctx, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, c.genericFailure(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Order{}, c.genericFailure(ctx, fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Order{}, c.genericFailure(ctx, err)
	}

	slog.InfoContext(ctx, "Payment order created",
		"order_id", order.ID, "amount_paise", amount.Paise)
	return order, nil
}

func (c *Client) genericFailure(ctx context.Context, err error) error {
	slog.ErrorContext(ctx, "Payment order creation failed", "error", err)
	return core.ExternalServicef(nil, "could not initiate payment")
}
