// Package customers calls the external customer service to resolve customer
// labels. Only the audit path consumes it, so its availability never gates a
// sale command.
package customers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"
)

// ErrUnknownCustomer is returned when the customer service has no record for
// the given ID.
var ErrUnknownCustomer = errors.New("customer not found")

// Client looks customers up over HTTP.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a client against the customer service base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)

	return &Client{
		http:   c,
		logger: logger,
	}
}

// Close releases the underlying transport.
func (c *Client) Close() {
	_ = c.http.Close()
}

// GetName resolves the display name for a customer ID.
func (c *Client) GetName(ctx context.Context, customerID string) (string, error) {
	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/customers/" + customerID)
	if err != nil {
		return "", fmt.Errorf("error calling customer service: %w", err)
	}

	switch {
	case res.StatusCode() == http.StatusNotFound:
		return "", ErrUnknownCustomer
	case !res.IsSuccess():
		c.logger.Warn("customer service returned unexpected status",
			zap.String("customer_id", customerID),
			zap.Int("status", res.StatusCode()),
		)
		return "", fmt.Errorf("customer service returned status %d", res.StatusCode())
	}

	return out.Name, nil
}
