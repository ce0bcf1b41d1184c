package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/me", out: &out, auth: true})
	return out, err
}

// UpdateMe changes the signed-in user's name or email.
func (c *Client) UpdateMe(ctx context.Context, req model.UpdateProfileRequest) (model.User, error) {
	if err := c.Validate(req); err != nil {
		return model.User{}, err
	}
	var out model.User
	err := c.do(ctx, call{method: http.MethodPut, path: "/api/users/me", body: req, out: &out, auth: true})
	return out, err
}

// ChangePassword replaces the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) (model.MessageResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.MessageResponse{}, err
	}
	var out model.MessageResponse
	err := c.do(ctx, call{method: http.MethodPut, path: "/api/users/change-password", body: req, out: &out, auth: true})
	return out, err
}

// TicketHistory lists every ticket the signed-in user has booked.  Backends
// without the /me route are read through /api/tickets/my-tickets.
func (c *Client) TicketHistory(ctx context.Context) ([]model.Ticket, error) {
	var out []model.Ticket
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/me/tickets", out: &out, auth: true})
	if errors.Is(err, ErrNotFound) {
		c.log.Debug("ticket history: /api/users/me/tickets missing, using /api/tickets/my-tickets")
		return c.MyTickets(ctx)
	}
	return out, err
}

// PaymentHistory lists the signed-in user's payments, falling back to
// /api/payments/my-payments like TicketHistory does.
func (c *Client) PaymentHistory(ctx context.Context) ([]model.Payment, error) {
	var out []model.Payment
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/me/payments", out: &out, auth: true})
	if errors.Is(err, ErrNotFound) {
		c.log.Debug("payment history: /api/users/me/payments missing, using /api/payments/my-payments")
		out = nil
		err = c.do(ctx, call{method: http.MethodGet, path: "/api/payments/my-payments", out: &out, auth: true})
	}
	return out, err
}
