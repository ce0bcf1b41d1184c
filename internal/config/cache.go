package config

import "time"

// CacheConfig controls the catalog response cache in front of the API
// client.  Only GETs whose path starts with one of Paths are stored, and a
// path containing any Exclude entry is never stored, so seat maps always
// come from the backend.  Personal data is never listed in Paths.
type CacheConfig struct {
	Enabled      bool
	Paths        []string
	Exclude      []string
	TTL          time.Duration
	Prefix       string // key namespace in Redis
	MaxBodyBytes int    // larger bodies pass through uncached
}

// LoadCacheConfig reads CACHE_*.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Paths:        envList("CACHE_PATHS", "/api/movies,/api/showtimes,/api/combos,/api/rooms,/api/promotions/active"),
		Exclude:      envList("CACHE_EXCLUDE", "/seats"),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       getenv("CACHE_PREFIX", "cinema:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
