package httpcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Paths:        []string{"/api/movies", "/api/rooms"},
		Exclude:      []string{"/seats"},
		TTL:          time.Minute,
		Prefix:       "test:cache",
		MaxBodyBytes: 1 << 20,
	}
}

func get(t *testing.T, c *http.Client, url string) (string, string) {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b), resp.Header.Get("X-Cache")
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, hdr, []byte(`[{"movieID":1}]`))
	require.NoError(t, err)

	status, h, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, 200, status)
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, `[{"movieID":1}]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCatalogReadIsServedFromCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"movieID":1,"title":"Dune"}]`)
	}))
	defer srv.Close()

	c := &http.Client{Transport: New(testConfig(), NewMemoryBackend(), nil, logging.Discard())}
	body, state := get(t, c, srv.URL+"/api/movies")
	assert.Equal(t, "MISS", state)
	body2, state2 := get(t, c, srv.URL+"/api/movies")
	assert.Equal(t, "HIT", state2)
	assert.Equal(t, body, body2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// a different query is a different entry
	get(t, c, srv.URL+"/api/movies?page=2")
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSeatMapsAndUnlistedPathsBypassCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := &http.Client{Transport: New(testConfig(), NewMemoryBackend(), nil, logging.Discard())}
	for i := 0; i < 2; i++ {
		get(t, c, srv.URL+"/api/rooms/3/seats")
		get(t, c, srv.URL+"/api/users/me/tickets")
	}
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}

func TestErrorsAreNotCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &http.Client{Transport: New(testConfig(), NewMemoryBackend(), nil, logging.Discard())}
	get(t, c, srv.URL+"/api/movies")
	get(t, c, srv.URL+"/api/movies")
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestMemoryBackendExpires(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	require.NoError(t, b.Set(context.Background(), "k", []byte("12345678"), time.Second))

	_, ok := b.Get(context.Background(), "k")
	assert.True(t, ok)
	now = now.Add(2 * time.Second)
	_, ok = b.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestDisabledConfigReturnsNext(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	rt := New(cfg, NewMemoryBackend(), http.DefaultTransport, logging.Discard())
	assert.Equal(t, http.DefaultTransport, rt)
}
