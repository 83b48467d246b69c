package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/larder/pkg/contextkeys"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// Name labels the limiter in metrics and storage keys
	Name string
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// Message is returned to rejected callers
	Message string
}

// LoginRateLimitConfig returns the login limiter settings: 5 attempts per 15 minutes
func LoginRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Name:              "login",
		RequestsPerWindow: 5,
		WindowDuration:    15 * time.Minute,
		Message:           "Too many login attempts, please try again after 15 minutes",
	}
}

// APIRateLimitConfig returns the general API limiter settings: 100 requests per 15 minutes
func APIRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Name:              "api",
		RequestsPerWindow: 100,
		WindowDuration:    15 * time.Minute,
		Message:           "Too many requests, please try again later",
	}
}

// Decision is the result of counting one request against a limit
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Config() *RateLimitConfig
}

// RateLimiter implements fixed-window rate limiting in process memory
type RateLimiter struct {
	config  *RateLimitConfig
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

type window struct {
	count int
	start time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = APIRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Config returns the limiter settings
func (rl *RateLimiter) Config() *RateLimitConfig {
	return rl.config
}

// Allow counts a request for key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.windows[key]
	if !exists || !now.Before(w.start.Add(rl.config.WindowDuration)) {
		w = &window{start: now}
		rl.windows[key] = w
	}
	w.count++

	remaining := rl.config.RequestsPerWindow - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   w.count <= rl.config.RequestsPerWindow,
		Limit:     rl.config.RequestsPerWindow,
		Remaining: remaining,
		ResetAt:   w.start.Add(rl.config.WindowDuration),
	}, nil
}

// Cleanup removes expired windows (should be called periodically)
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if !now.Before(w.start.Add(rl.config.WindowDuration)) {
			delete(rl.windows, key)
		}
	}
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// StartCleanup starts a background goroutine to cleanup expired windows
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// RateLimitMiddleware provides HTTP rate limiting keyed by client address
type RateLimitMiddleware struct {
	limiter    Limiter
	trustProxy bool
	metrics    *observability.Metrics
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter, trustProxy bool, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		trustProxy: trustProxy,
		metrics:    metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		config := m.limiter.Config()

		ip := contextkeys.GetClientIP(ctx)
		if ip == "" {
			ip = httputil.ClientIP(r, m.trustProxy)
		}

		decision, err := m.limiter.Allow(ctx, "ip:"+ip)
		if err != nil {
			// Fail open: a limiter outage must not take the API down
			observability.FromContext(ctx).
				WithField("limiter", config.Name).
				WithError(err).
				Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, decision)

		if !decision.Allowed {
			m.metrics.RecordRateLimited(config.Name)
			retryAfter := int(time.Until(decision.ResetAt).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w, config.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
