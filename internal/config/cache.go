package config

import (
	"os"
	"strconv"
	"time"
)

// BrowseCacheConfig controls the Redis response cache in front of the
// public browse endpoints.  Route lists and trip detail pages are read
// far more often than schedules change, so a short TTL takes most of
// the read load off MySQL without quoting stale prices for long.  The
// live seat map is never cached and has no knob here.
type BrowseCacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadBrowseCacheConfig reads the cache settings from the environment.
// The defaults fit the browse payloads: trip lists for one route stay
// well under the body cap.
func LoadBrowseCacheConfig() BrowseCacheConfig {
	return BrowseCacheConfig{
		Enabled:      envBool("BROWSE_CACHE_ENABLED", true),
		TTL:          durOr("BROWSE_CACHE_TTL", 30*time.Second),
		Prefix:       envStr("BROWSE_CACHE_PREFIX", "browse"),
		MaxBodyBytes: envInt("BROWSE_CACHE_MAX_BODY_BYTES", 256<<10),
	}
}

// Lenient helpers for optional knobs: a missing or malformed value
// falls back to the default instead of halting startup.

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes", "on":
		return true
	case "0", "false", "FALSE", "no", "off":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}
