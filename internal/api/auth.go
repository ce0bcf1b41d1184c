package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Login exchanges credentials for a token.  The backend answers a failed
// login with an empty 400, which is reported with a readable message.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.AuthResponse{}, err
	}
	var out model.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/login", body: req, out: &out})
	if ve, ok := IsValidation(err); ok && ve.Message == http.StatusText(ve.Status) {
		return model.AuthResponse{}, &ValidationError{Status: ve.Status, Message: "Invalid email or password"}
	}
	if errors.Is(err, ErrUnauthenticated) {
		return model.AuthResponse{}, &ValidationError{Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return out, err
}

// Register starts a registration; the account exists only after VerifyOTP.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.MessageResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.MessageResponse{}, err
	}
	var out model.MessageResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/register", body: req, out: &out})
	return out, err
}

// VerifyOTP completes a registration and signs the user in.
func (c *Client) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (model.AuthResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.AuthResponse{}, err
	}
	var out model.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/verify-otp", body: req, out: &out})
	return out, err
}

// ResendOTP mails a fresh registration code.
func (c *Client) ResendOTP(ctx context.Context, email string) (model.MessageResponse, error) {
	return c.emailCall(ctx, "/api/auth/resend-otp", email)
}

// ForgotPassword mails a reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) (model.MessageResponse, error) {
	return c.emailCall(ctx, "/api/auth/forgot-password", email)
}

// ResetPassword sets a new password using the mailed code.
func (c *Client) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) (model.MessageResponse, error) {
	if err := c.Validate(req); err != nil {
		return model.MessageResponse{}, err
	}
	var out model.MessageResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/reset-password", body: req, out: &out})
	return out, err
}

func (c *Client) emailCall(ctx context.Context, path, email string) (model.MessageResponse, error) {
	req := model.EmailRequest{Email: email}
	if err := c.Validate(req); err != nil {
		return model.MessageResponse{}, err
	}
	var out model.MessageResponse
	err := c.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}
