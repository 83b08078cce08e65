package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused client entry is kept.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadConfig loads rate limiting configuration from environment variables.
// A nil lookup reads the process environment.
func LoadConfig(lookup LookupFunc) *Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup}

	if !env.boolean("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	generateLimit := env.integer("RATE_LIMIT_GENERATE_LIMIT", 10)
	generateWindow := env.duration("RATE_LIMIT_GENERATE_WINDOW", time.Hour)

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.integer("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         time.Hour,
		Whitelist:       parseIPList(env.str("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(env.str("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: GenerateEndpointConfigs(generateLimit, generateWindow),
	}
}

// GenerateEndpointConfigs returns the limits for the generation endpoints.
// Every generation is several LLM calls, so these are the strictest.
func GenerateEndpointConfigs(limit int, window time.Duration) []EndpointConfig {
	burst := max(1, limit/5)
	return []EndpointConfig{
		{Path: "/api/generate", Method: "POST", Limit: limit, Window: window, Burst: burst},
		{Path: "/api/generate/stream", Method: "POST", Limit: limit, Window: window, Burst: burst},
		// History reads fall through to the default limit.
	}
}

type envReader struct {
	lookup LookupFunc
}

func (e envReader) str(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if n, err := strconv.Atoi(e.str(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(e.str(key, "")); err == nil {
		return b
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.str(key, "")); err == nil {
		return d
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
