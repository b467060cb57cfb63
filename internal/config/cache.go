package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the public response cache.  Only room
// listings and hostel details are cached; booking and payment routes never
// pass through it.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // route, method_route, route_query, method_route_query
	Prefix       string
	MaxBodyBytes int
}

var keyStrategies = map[string]bool{
	"route": true, "method_route": true, "route_query": true, "method_route_query": true,
}

// LoadCacheConfig reads CACHE_* variables.  An unknown key strategy falls
// back to route_query, the only one that tells ?limit= apart.
func LoadCacheConfig() CacheConfig {
	cc := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      map[string]bool{},
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
		Prefix:       envStr("CACHE_PREFIX", "hostel:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	for _, p := range strings.Split(envStr("CACHE_METHODS", "GET"), ",") {
		// only safe methods may be served from cache
		if p = strings.ToUpper(strings.TrimSpace(p)); p == "GET" || p == "HEAD" {
			cc.Methods[p] = true
		}
	}
	if !keyStrategies[cc.KeyStrategy] {
		cc.KeyStrategy = "route_query"
	}
	if cc.TTL <= 0 {
		cc.TTL = 30 * time.Second
	}
	return cc
}

// Cacheable reports whether responses to method may be cached.
func (c CacheConfig) Cacheable(method string) bool {
	return c.Methods[strings.ToUpper(method)]
}
