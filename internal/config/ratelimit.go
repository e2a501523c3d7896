package config

import "time"

// BookingRateConfig sizes the token bucket in front of the booking and
// transfer endpoints.  The defaults give a passenger a short burst for
// legitimate retries while holding seat-grabbing scripts to a crawl:
// 8 tokens, refilled one every 2 seconds.  Browse endpoints are not
// rate limited; the response cache absorbs those.
type BookingRateConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadBookingRateConfig reads the limiter settings from the
// environment and clamps them into a sane range.  TTL governs how long
// an idle bucket lives in Redis; it must comfortably outlast a full
// refill cycle or buckets reset mid-conversation.
func LoadBookingRateConfig() BookingRateConfig {
	cfg := BookingRateConfig{
		Enabled:        envBool("BOOKING_RATE_ENABLED", true),
		Capacity:       envInt("BOOKING_RATE_CAPACITY", 8),
		RefillTokens:   envInt("BOOKING_RATE_REFILL_TOKENS", 1),
		RefillInterval: durOr("BOOKING_RATE_REFILL_INTERVAL", 2*time.Second),
		TTL:            durOr("BOOKING_RATE_TTL", 15*time.Minute),
		Prefix:         envStr("BOOKING_RATE_PREFIX", "rl:booking"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := time.Duration(cfg.Capacity) * cfg.RefillInterval * 2; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}
