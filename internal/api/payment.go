package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// CreatePayment asks the backend for a wallet payment covering ticketIDs.
// A success=false answer is reported as a *ValidationError with the
// backend's message.
func (c *Client) CreatePayment(ctx context.Context, req model.CreatePaymentRequest) (model.CreatePaymentResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.CreatePaymentResponse{}, err
	}
	var out model.CreatePaymentResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/payments/create", body: req, out: &out, auth: true}); err != nil {
		return model.CreatePaymentResponse{}, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "payment could not be created"
		}
		return model.CreatePaymentResponse{}, &ValidationError{Status: http.StatusOK, Message: msg}
	}
	if out.OrderID == "" || out.PaymentURL == "" {
		return model.CreatePaymentResponse{}, ErrMalformedResponse
	}
	return out, nil
}

// PaymentStatus reads the authoritative status of an order.
func (c *Client) PaymentStatus(ctx context.Context, orderID string) (model.PaymentStatusResponse, error) {
	var out model.PaymentStatusResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/payments/status/" + url.PathEscape(orderID),
		out:    &out,
		auth:   true,
	})
	return out, err
}

// TestCallback posts a provider-shaped notification to the backend's
// test-mode endpoint, which settles the order without a signature check.
func (c *Client) TestCallback(ctx context.Context, p model.CallbackPayload) error {
	if err := c.Validate(p); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/api/payments/test-callback", body: p})
}
