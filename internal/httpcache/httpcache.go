// Package httpcache caches successful catalog GET responses at the HTTP
// transport level.  Entries are stored in Redis when a client is available
// so that several terminals share one warm catalog; otherwise an in-process
// map is used.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
)

// Backend stores encoded responses.  Get reports a miss with ok=false.
type Backend interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Transport wraps another RoundTripper and serves cached catalog reads.
type Transport struct {
	next  http.RoundTripper
	store Backend
	cfg   config.CacheConfig
	log   *logrus.Entry
}

// New returns a caching transport in front of next.  When cfg is disabled
// the returned RoundTripper is next itself.
func New(cfg config.CacheConfig, store Backend, next http.RoundTripper, log *logrus.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !cfg.Enabled || store == nil {
		return next
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &Transport{next: next, store: store, cfg: cfg, log: log.WithField("component", "httpcache")}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cacheable(req) {
		return t.next.RoundTrip(req)
	}
	ctx := req.Context()
	key := keyFrom(t.cfg.Prefix, req)

	if bs, ok := t.store.Get(ctx, key); ok {
		if status, hdr, body, ok := decodePayload(bs); ok {
			hdr.Set("X-Cache", "HIT")
			return &http.Response{
				Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
				StatusCode:    status,
				Proto:         "HTTP/1.1",
				ProtoMajor:    1,
				ProtoMinor:    1,
				Header:        hdr,
				Body:          io.NopCloser(bytes.NewReader(body)),
				ContentLength: int64(len(body)),
				Request:       req,
			}, nil
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}
	limit := int64(t.cfg.MaxBodyBytes)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.Header.Set("X-Cache", "MISS")

	// Oversized bodies are served but not stored.
	if limit > 0 && int64(len(body)) > limit {
		return resp, nil
	}
	hdr := resp.Header.Clone()
	hdr.Del("X-Cache")
	hdr.Del("Content-Length")
	if payload, err := encodePayload(resp.StatusCode, hdr, body); err == nil {
		if err := t.store.Set(context.Background(), key, payload, t.cfg.TTL); err != nil {
			t.log.WithField("key", key).Warnf("store failed: %v", err)
		}
	}
	return resp, nil
}

func (t *Transport) cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	path := req.URL.Path
	for _, ex := range t.cfg.Exclude {
		if strings.Contains(path, ex) {
			return false
		}
	}
	for _, p := range t.cfg.Paths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// keyFrom builds a stable key from the path and query.  The bearer token is
// left out: every cacheable path is public.
func keyFrom(prefix string, req *http.Request) string {
	tail := strings.Join([]string{"route", req.URL.Path, "q", req.URL.RawQuery}, ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// RedisBackend keeps entries in Redis with SETEX.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend wraps rdb.
func NewRedisBackend(rdb *redis.Client) *RedisBackend { return &RedisBackend{rdb: rdb} }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := b.rdb.Get(ctx, key).Bytes()
	if err != nil || len(bs) < 8 {
		return nil, false
	}
	return bs, true
}

func (b *RedisBackend) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.rdb.SetEx(ctx, key, payload, ttl).Err()
}

// MemoryBackend is a process-local backend used when Redis is absent.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	payload []byte
	expires time.Time
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memEntry), now: time.Now}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, false
	}
	if b.now().After(e.expires) {
		delete(b.entries, key)
		return nil, false
	}
	return e.payload, true
}

func (b *MemoryBackend) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memEntry{payload: payload, expires: b.now().Add(ttl)}
	return nil
}
