// Package api is a typed client for the cinema backend's REST API.  Every
// response is decoded into an explicit schema from package model and
// validated before it reaches a caller; anything that does not fit is
// reported as ErrMalformedResponse instead of leaking into view state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
)

// TokenSource yields the bearer token of the signed-in user, or "" when
// nobody is signed in.  session.Session implements it.
type TokenSource interface {
	Token() string
}

// Client talks to one backend.  It is safe for concurrent use.
type Client struct {
	base      string
	http      *http.Client
	tokens    TokenSource
	validate  *validator.Validate
	log       *logrus.Entry
	retryMax  int
	retryBase time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. with the catalog cache.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// WithHTTPClient replaces the whole HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for cfg.BaseURL.
func New(cfg config.APIConfig, tokens TokenSource, log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		base:      cfg.BaseURL,
		http:      &http.Client{Timeout: cfg.Timeout},
		tokens:    tokens,
		validate:  validator.New(),
		log:       log.WithField("component", "api"),
		retryMax:  cfg.RetryMax,
		retryBase: cfg.RetryBase,
		sleep:     sleepCtx,
	}
	if c.retryMax < 0 {
		c.retryMax = 0
	}
	if c.retryBase <= 0 {
		c.retryBase = 200 * time.Millisecond
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address the client was built for.
func (c *Client) BaseURL() string { return c.base }

// call describes one request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// auth requires a stored token; without one the call fails with
	// ErrUnauthenticated before touching the network.
	auth bool
}

// do executes cl, retrying idempotent reads on network errors with
// exponential backoff.  Writes are attempted exactly once.
func (c *Client) do(ctx context.Context, cl call) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if cl.auth && token == "" {
		return ErrUnauthenticated
	}

	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		payload = b
	}

	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.retryMax
	}
	backoff := c.retryBase
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.log.WithFields(logrus.Fields{"path": cl.path, "attempt": i + 1, "backoff": backoff}).
				Warnf("retrying after: %v", err)
			if serr := c.sleep(ctx, backoff); serr != nil {
				return fmt.Errorf("%w: %v", ErrNetwork, serr)
			}
			backoff *= 2
		}
		err = c.once(ctx, cl, token, payload)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, cl call, token string, payload []byte) error {
	u := c.base + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, cl.method, cl.path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrNetwork, cl.path, err)
	}
	c.log.WithFields(logrus.Fields{
		"method":  cl.method,
		"path":    cl.path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, respBody)
	}
	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, cl.path, err)
	}
	if err := c.check(cl.out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, cl.path, err)
	}
	return nil
}

// check validates a decoded body.  Structs are validated directly; slices
// are validated element by element.
func (c *Client) check(out any) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Interface())
	case reflect.Slice:
		if k := v.Type().Elem().Kind(); k != reflect.Struct && k != reflect.Pointer {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			el := v.Index(i)
			if el.Kind() == reflect.Pointer {
				if el.IsNil() {
					return fmt.Errorf("element %d is null", i)
				}
				el = el.Elem()
			}
			if el.Kind() != reflect.Struct {
				continue
			}
			if err := c.validate.Struct(el.Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

// Validate runs the struct validator on a request body before it is sent.
func (c *Client) Validate(v any) error {
	if err := c.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Status: http.StatusBadRequest, Message: fieldMessage(verrs[0])}
		}
		return err
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
