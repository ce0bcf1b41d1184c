package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Errors returned by the client.  Callers classify with errors.Is; backend
// rejections of input arrive as *ValidationError.
var (
	// ErrUnauthenticated is returned when no token is stored or the backend
	// answered 401/403.  The caller must send the user to login.
	ErrUnauthenticated = errors.New("api: not authenticated")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("api: not found")
	// ErrNetwork covers transport failures and 5xx responses once retries
	// are exhausted.
	ErrNetwork = errors.New("api: network error")
	// ErrMalformedResponse is returned when a 2xx body does not decode into
	// the expected schema or fails validation.
	ErrMalformedResponse = errors.New("api: malformed response")
)

// ValidationError is a 4xx rejection carrying the backend's message, which
// is shown to the user verbatim.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a backend validation error and
// returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// errorBody covers the two error shapes the backend produces:
// {success:false, message} and {error}.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusError maps a non-2xx response to the client's error taxonomy.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthenticated
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return &ValidationError{Status: status, Message: backendMessage(status, body)}
	default:
		return fmt.Errorf("%w: backend returned %d", ErrNetwork, status)
	}
}

// backendMessage extracts the human-readable reason from an error body.
// Plain-text bodies are used as-is; an empty body falls back to the status
// text.
func backendMessage(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return http.StatusText(status)
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
		return http.StatusText(status)
	}
	if len(trimmed) > 300 {
		trimmed = trimmed[:300]
	}
	return trimmed
}

// retryable reports whether err may succeed on a second attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
