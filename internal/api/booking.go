package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// BookTickets submits one atomic booking.  The result's totals are the
// backend's and are returned untouched.  A body with success=false is a
// rejection even when the status is 2xx.
func (c *Client) BookTickets(ctx context.Context, req model.BookingRequest) (model.BookingResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/tickets/book", body: req, out: &raw, auth: true}); err != nil {
		return model.BookingResult{}, err
	}
	var out model.BookingResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.BookingResult{}, fmt.Errorf("%w: /api/tickets/book: %v", ErrMalformedResponse, err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "booking was rejected"
		}
		return model.BookingResult{}, &ValidationError{Status: http.StatusOK, Message: msg}
	}
	if err := c.check(&out); err != nil {
		return model.BookingResult{}, fmt.Errorf("%w: /api/tickets/book: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// MyTickets lists the signed-in user's tickets.
func (c *Client) MyTickets(ctx context.Context) ([]model.Ticket, error) {
	var out []model.Ticket
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/tickets/my-tickets", out: &out, auth: true})
	return out, err
}
