package config

import "time"

// CacheConfig controls the Redis response cache in front of the public
// browsing endpoints.  With Enabled false the middleware is a pass-through.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig builds a CacheConfig from CACHE_* environment variables,
// falling back to defaults when unset.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDuration("CACHE_TTL", 30*time.Second),
		Prefix:  envDefault("CACHE_PREFIX", "cache"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
