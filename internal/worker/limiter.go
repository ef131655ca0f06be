package worker

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one rate.Limiter per upstream host, so pacing against
// the MultiAsistencia API does not slow down a Generali enrichment call.
// Limiters are created lazily with the default rate and shared by every
// client that talks to the same host.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a per-host limiter pool with the given defaults.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 4
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// For returns the shared limiter for the host of rawURL. API clients take
// a *rate.Limiter directly; this is how they get the per-host one. An
// unparseable URL falls back to the empty-host limiter rather than
// disabling pacing.
func (l *Limiter) For(rawURL string) *rate.Limiter {
	return l.getLimiter(hostOf(rawURL))
}

// Wait blocks until a request against the URL's host is allowed.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	return l.getLimiter(hostOf(rawURL)).Wait(ctx)
}

// Allow reports whether a request against the URL's host may proceed now.
func (l *Limiter) Allow(rawURL string) bool {
	return l.getLimiter(hostOf(rawURL)).Allow()
}

// SetHostRate pins a custom rate for one host, replacing whatever limiter
// it had. Used for upstreams with documented stricter quotas.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
