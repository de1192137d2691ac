package config

import "time"

// RateLimitConfig tunes the Redis token-bucket limiter applied to the
// turnos API group.  Booking endpoints are cheap but contended; the
// limiter keeps a single client from hammering the claim path while it
// polls availability.
type RateLimitConfig struct {
	Enabled        bool          // master switch; disabled when Redis is absent
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill period
	TTL            time.Duration // idle expiry of bucket state keys
	KeyStrategy    string        // ip, user, route or combinations
	Prefix         string        // Redis key prefix
	Debug          bool          // expose bucket keys and log decisions
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables, applying defaults
// that allow a burst of 60 requests refilled at one per second.  Bad
// values are clamped instead of aborting startup.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolOrDefault("RATE_LIMIT_ENABLED", true),
		Capacity:       intOrDefault("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   intOrDefault("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durOrDefault("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            durOrDefault("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    orDefault("RATE_LIMIT_KEY_STRATEGY", "ip_user"),
		Prefix:         orDefault("RATE_LIMIT_PREFIX", "rl"),
		Debug:          boolOrDefault("RATE_LIMIT_DEBUG", false),
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
	// Bucket state must outlive several refill cycles or idle buckets
	// reset to full capacity too eagerly.
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func boolOrDefault(key string, def bool) bool {
	switch orDefault(key, "") {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func durOrDefault(key string, def time.Duration) time.Duration {
	v := orDefault(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
