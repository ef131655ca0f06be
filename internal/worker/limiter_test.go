package worker

import (
	"context"
	"testing"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 4 {
		t.Errorf("expected default burst 4 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_ForSharesPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	a := limiter.For("https://tooltoimaiberica.es/login")
	b := limiter.For("https://tooltoimaiberica.es/services")
	if a != b {
		t.Error("same host must share one limiter")
	}

	c := limiter.For("https://api.registradoresma.com/multiasistencia/1.1.0")
	if c == a {
		t.Error("different hosts must not share a limiter")
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://other.example/bar"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "https://example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1: the token is spent, Allow must refuse without blocking.
	if limiter.Allow(url) {
		t.Error("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("https://other.com") {
		t.Error("expected allow for a different host")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	host := "slow.example"

	limiter.SetHostRate(host, 0.1, 1)

	if !limiter.Allow("https://" + host) {
		t.Error("first request should pass")
	}
	if limiter.Allow("https://" + host) {
		t.Error("second request should fail")
	}
	if !limiter.Allow("https://fast.example") {
		t.Error("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://example.com/foo"); got != "example.com" {
		t.Errorf("expected example.com, got %s", got)
	}
	if got := hostOf("::invalid"); got != "" {
		t.Errorf("expected empty host for invalid URL, got %q", got)
	}
}
