package config

import "time"

// CacheConfig tunes the Redis response cache placed in front of the
// availability endpoint.  The TTL must stay short: a cached snapshot can
// lag a concurrent claim, and only the claim path itself is
// authoritative.  A few seconds absorbs polling bursts without letting
// clients act on stale slots for long.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables, applying defaults suited to
// availability polling.  A non-positive TTL falls back to the default.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      boolOrDefault("CACHE_ENABLED", true),
		TTL:          durOrDefault("CACHE_TTL", 5*time.Second),
		Prefix:       orDefault("CACHE_PREFIX", "turnos:cache"),
		MaxBodyBytes: intOrDefault("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return cfg
}
