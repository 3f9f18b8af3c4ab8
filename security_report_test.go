package pinreset

import (
	"testing"
	"time"
)

func TestSecurityReportReflectsPosture(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Security.EnumerationDelayMax = 5 * time.Millisecond
	})

	report := env.engine.SecurityReport()
	if report.SigningAlgorithm != "hs256" {
		t.Fatalf("expected hs256 signing algorithm in report, got %s", report.SigningAlgorithm)
	}
	if report.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m token ttl, got %s", report.TokenTTL)
	}
	if !report.RateLimitingActive || report.MaxAttempts != 3 {
		t.Fatalf("expected rate limiting active with 3 attempts, got %+v", report)
	}
	if !report.IPThrottleActive {
		t.Fatal("expected ip throttle active in report")
	}
	if !report.EnumerationDelayActive || !report.MailTimeoutBounded {
		t.Fatalf("expected delay and mail timeout flags, got %+v", report)
	}
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r.SigningAlgorithm != "" || r.RateLimitingActive {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
