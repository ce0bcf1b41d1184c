package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
)

const secret = "relay-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func protected() *echo.Echo {
	e := echo.New()
	e.POST("/notify", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"subject": c.Get(SubjectKey), "role": c.Get(RoleKey)})
	}, JWTAuth(secret), RequireRole(RelayRole))
	return e
}

func post(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAcceptsRelayToken(t *testing.T) {
	tok, err := NewRelayToken(secret, "backend", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)
	rec := post(protected(), tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"backend"`)
}

func TestJWTAuthRejects(t *testing.T) {
	cases := map[string]string{
		"missing":    "",
		"bad secret": sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"role": RelayRole}),
		"expired":    sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": RelayRole, "exp": time.Now().Add(-time.Minute).Unix()}),
		"wrong alg":  sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"role": RelayRole}),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, post(protected(), tok).Code)
		})
	}
}

func TestJWTAuthEmptySecretRejectsEverything(t *testing.T) {
	e := echo.New()
	e.POST("/notify", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTAuth(""))
	tok := sign(t, jwt.SigningMethodHS256, []byte("anything"), jwt.MapClaims{"role": RelayRole})
	assert.Equal(t, http.StatusUnauthorized, post(e, tok).Code)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "42", "role": "CUSTOMER"})
	assert.Equal(t, http.StatusForbidden, post(protected(), tok).Code)
}

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
}

func TestMemoryLimiterRefills(t *testing.T) {
	l := NewMemoryLimiter(testRateConfig())
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Take(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, _ := l.Take(ctx, "k")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	now = now.Add(1500 * time.Millisecond)
	d, _ = l.Take(ctx, "k")
	assert.True(t, d.Allowed)

	other, _ := l.Take(ctx, "other")
	assert.True(t, other.Allowed)
}

func TestRateLimitMiddlewareThrottles(t *testing.T) {
	cfg := testRateConfig()
	l := NewMemoryLimiter(cfg)
	e := echo.New()
	e.GET("/payment-result", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, l, logging.Discard()))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment-result", nil))
		codes = append(codes, rec.Code)
		if i == 2 {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	cfg := testRateConfig()
	cfg.Enabled = false
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, NewMemoryLimiter(cfg), logging.Discard()))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestNewRelayTokenRejectsBadInput(t *testing.T) {
	_, err := NewRelayToken("", "backend", time.Minute)
	assert.Error(t, err)
	_, err = NewRelayToken(secret, "backend", 0)
	assert.Error(t, err)
}
