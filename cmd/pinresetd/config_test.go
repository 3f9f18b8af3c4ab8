package main

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("APP_URL", "https://blind.curaj.ac.in")
	t.Setenv("MAIL_USER", "noreply@curaj.ac.in")
	t.Setenv("MAIL_PASS", "app-password")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.MailDriver != "smtp" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Engine.Token.TTL != 30*time.Minute || cfg.Engine.RateLimit.MaxAttempts != 3 {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Engine.Mail.From != "noreply@curaj.ac.in" {
		t.Fatalf("expected mail from to default to MAIL_USER, got %q", cfg.Engine.Mail.From)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RESET_MAX_ATTEMPTS", "5")
	t.Setenv("RESET_WINDOW", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://ignored.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Engine.RateLimit.MaxAttempts != 5 || cfg.Engine.RateLimit.Window != 30*time.Minute {
		t.Fatalf("rate limit overrides not applied: %+v", cfg.Engine.RateLimit)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1].String() != "192.0.2.1/32" {
		t.Fatalf("unexpected trusted proxies: %v", cfg.TrustedProxies)
	}
	if cfg.Engine.Mail.ResetURLBase != "https://blind.curaj.ac.in" {
		t.Fatalf("APP_URL should win over NEXT_PUBLIC_APP_URL, got %q", cfg.Engine.Mail.ResetURLBase)
	}
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"RESET_MAX_ATTEMPTS": "many",
		"RESET_WINDOW":       "soon",
		"DB_AUTO_MIGRATE":    "maybe",
		"MAIL_DRIVER":        "pigeon",
		"TRUSTED_PROXIES":    "proxy.internal",
		"MAIL_SEND_TIMEOUT":  "0s",
	} {
		t.Run(key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(key, value)
			if _, err := loadConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLogMailerOnlyInDevelopment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAIL_DRIVER", "log")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected log driver to be refused outside development")
	}

	t.Setenv("APP_ENV", "development")
	if _, err := loadConfig(); err != nil {
		t.Fatalf("log driver in development: %v", err)
	}
}
