package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a limiter whose clock only moves when advance is called.
func fixedClock(l *Limiter) (advance func(time.Duration)) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()
	fixedClock(limiter)

	// Should allow requests up to limit
	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", info.Limit)
		}
		if info.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, info.Remaining)
		}
	}

	// 11th request should be denied
	allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if info.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", info.Remaining)
	}
	if info.RetryAfter != 6*time.Second {
		t.Errorf("Expected retry after 6s, got %v", info.RetryAfter)
	}
	if !info.ResetTime.After(limiter.now()) {
		t.Error("Reset time should be in the future")
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  60,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()
	advance := fixedClock(limiter)

	for i := 0; i < 60; i++ {
		limiter.Allow("c1", "/test", "GET")
	}
	if allowed, _ := limiter.Allow("c1", "/test", "GET"); allowed {
		t.Fatal("Expected bucket to be empty")
	}

	// One token per second
	advance(time.Second)
	if allowed, _ := limiter.Allow("c1", "/test", "GET"); !allowed {
		t.Error("Expected request to be allowed after refill")
	}
	if allowed, _ := limiter.Allow("c1", "/test", "GET"); allowed {
		t.Error("Expected request to be denied after consuming refilled token")
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})
	defer limiter.Stop()

	// Whitelisted IP should always be allowed
	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow("127.0.0.1", "/test", "GET"); !allowed {
			t.Fatalf("Expected whitelisted request %d to be allowed", i+1)
		}
	}
	if limiter.Len() != 0 {
		t.Errorf("Expected no buckets for whitelisted client, got %d", limiter.Len())
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"10.0.0.1": true},
	})
	defer limiter.Stop()

	if allowed, _ := limiter.Allow("10.0.0.1", "/health", "GET"); allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if allowed, _ := limiter.Allow("c1", "/api/generate", "POST"); !allowed {
			t.Fatal("Expected requests to pass when disabled")
		}
	}
}

func TestLimiter_GenerateEndpointsAreStricter(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: GenerateEndpointConfigs(10, time.Hour),
	})
	defer limiter.Stop()
	fixedClock(limiter)

	// Burst is limit/5
	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c1", "/api/generate", "POST"); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	allowed, info := limiter.Allow("c1", "/api/generate", "POST")
	if allowed {
		t.Error("Expected third generate request to be denied")
	}
	if info.RetryAfter != 6*time.Minute {
		t.Errorf("Expected retry after 6m, got %v", info.RetryAfter)
	}

	// Other clients and endpoints are unaffected
	if allowed, _ := limiter.Allow("c2", "/api/generate", "POST"); !allowed {
		t.Error("Expected another client to be allowed")
	}
	if allowed, _ := limiter.Allow("c1", "/api/generate/stream", "POST"); !allowed {
		t.Error("Expected stream endpoint to have its own bucket")
	}
	if allowed, _ := limiter.Allow("c1", "/api/generations", "GET"); !allowed {
		t.Error("Expected history reads to use the default limit")
	}
}

func TestLimiter_UnlimitedPaths(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		for _, path := range []string{"/health", "/metrics"} {
			if allowed, _ := limiter.Allow("c1", path, "GET"); !allowed {
				t.Fatalf("Expected %s to be unlimited", path)
			}
		}
	}
}

func TestLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Hour,
	})
	defer limiter.Stop()
	advance := fixedClock(limiter)

	limiter.Allow("old", "/test", "GET")
	advance(2 * time.Hour)
	limiter.Allow("fresh", "/test", "GET")

	limiter.cleanupEntries()
	if limiter.Len() != 1 {
		t.Errorf("Expected 1 entry after cleanup, got %d", limiter.Len())
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  50,
		DefaultWindow: time.Hour,
	})
	defer limiter.Stop()
	fixedClock(limiter)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("c1", "/test", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Expected exactly 50 allowed requests, got %d", allowed)
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(nil)
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/generate", Method: "POST", Limit: 10},
		{Path: "/api/", Method: "GET", Limit: 100},
		{Path: "/api/generations/", Method: "GET", Limit: 50},
	}
	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{path: "/api/generate", method: "POST", wantLimit: 10},
		{path: "/api/generate", method: "GET", wantLimit: 100},
		{path: "/api/generations/abc", method: "GET", wantLimit: 50},
		{path: "/health", method: "GET", wantLimit: 0},
		{path: "/other", method: "POST", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Expected no match, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a match")
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("Expected limit %d, got %d", tt.wantLimit, got.Limit)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_GENERATE_LIMIT":  "20",
		"RATE_LIMIT_GENERATE_WINDOW": "30m",
		"RATE_LIMIT_WHITELIST":       "10.0.0.1, 10.0.0.2",
		"RATE_LIMIT_DEFAULT_LIMIT":   "not-a-number",
	}
	cfg := LoadConfig(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if !cfg.Enabled {
		t.Fatal("Expected rate limiting enabled by default")
	}
	if cfg.DefaultLimit != 600 {
		t.Errorf("Expected default limit fallback 600, got %d", cfg.DefaultLimit)
	}
	if len(cfg.Whitelist) != 2 || !cfg.Whitelist["10.0.0.2"] {
		t.Errorf("Unexpected whitelist %v", cfg.Whitelist)
	}
	if got := cfg.EndpointConfigs[0]; got.Limit != 20 || got.Window != 30*time.Minute || got.Burst != 4 {
		t.Errorf("Unexpected generate config %+v", got)
	}

	disabled := LoadConfig(func(key string) (string, bool) {
		if key == "RATE_LIMIT_ENABLED" {
			return "false", true
		}
		return "", false
	})
	if disabled.Enabled {
		t.Error("Expected RATE_LIMIT_ENABLED=false to disable limiting")
	}
}
