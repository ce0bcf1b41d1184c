package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "Yes")
	t.Setenv("X_INT", " 42 ")
	t.Setenv("X_DUR", "750ms")
	t.Setenv("X_LIST", " /a, ,/b ")
	t.Setenv("X_BAD", "nope")

	assert.True(t, envBool("X_BOOL", false))
	assert.True(t, envBool("X_BAD", true))
	assert.Equal(t, 42, envInt("X_INT", 0))
	assert.Equal(t, 7, envInt("X_BAD", 7))
	assert.Equal(t, 750*time.Millisecond, envDur("X_DUR", time.Second))
	assert.Equal(t, time.Second, envDur("X_BAD", time.Second))
	assert.Equal(t, []string{"/a", "/b"}, envList("X_LIST", ""))
	assert.Equal(t, "def", getenv("X_UNSET_FOR_TEST", "def"))
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 10*time.Second, rl.TTL)
	assert.Equal(t, "ip_route", rl.KeyStrategy)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://backend:8080/")
	t.Setenv("CALLBACK_PUBLIC_URL", "https://kiosk.example/")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg := Load()
	assert.Equal(t, "http://backend:8080", cfg.API.BaseURL)
	assert.Equal(t, "https://kiosk.example/payment-result", cfg.ReturnURL())
	assert.Equal(t, 10*time.Second, cfg.Payment.ConfirmCountdown)
	assert.Equal(t, 5*time.Second, cfg.Payment.RedirectCountdown)
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)
	assert.Equal(t, []string{"/seats"}, LoadCacheConfig().Exclude)
}
