package pinreset

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without secrets must not validate")
	}
	if cfg.Token.TTL != 30*time.Minute {
		t.Fatalf("expected 30m token ttl, got %v", cfg.Token.TTL)
	}
	if cfg.RateLimit.MaxAttempts != 3 || cfg.RateLimit.Window != time.Hour {
		t.Fatalf("unexpected default budget %+v", cfg.RateLimit)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no domain", func(c *Config) { c.Institution.EmailDomain = "@" }, "EmailDomain"},
		{"no key", func(c *Config) { c.Token.SigningKey = nil }, "SigningKey is required"},
		{"short key", func(c *Config) { c.Token.SigningKey = []byte("short") }, ">= 32 bytes"},
		{"bad method", func(c *Config) { c.Token.SigningMethod = "rs256" }, "SigningMethod"},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }, "Token TTL"},
		{"zero attempts", func(c *Config) { c.RateLimit.MaxAttempts = 0 }, "MaxAttempts"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "Window"},
		{"unbounded mail", func(c *Config) { c.Mail.SendTimeout = 0 }, "SendTimeout must be > 0"},
		{"negative mail timeout", func(c *Config) { c.Mail.SendTimeout = -time.Second }, "SendTimeout must be > 0"},
		{"lock shorter than mail", func(c *Config) { c.IssueLock.TTL = 5 * time.Second }, "exceed Mail SendTimeout"},
		{"relative url", func(c *Config) { c.Mail.ResetURLBase = "/reset" }, "absolute"},
		{"no url", func(c *Config) { c.Mail.ResetURLBase = "" }, "ResetURLBase is required"},
		{"short pin", func(c *Config) { c.PIN.MinDigits = 3 }, "MinDigits"},
		{"inverted pin", func(c *Config) { c.PIN.MaxDigits = 3; c.PIN.MinDigits = 4 }, "MaxDigits"},
		{"weak argon", func(c *Config) { c.PIN.Memory = 1024 }, "Memory"},
		{"ip throttle", func(c *Config) { c.Security.MaxInvalidConfirmsPerIP = 0 }, "MaxInvalidConfirmsPerIP"},
		{"delay range", func(c *Config) { c.Security.EnumerationDelayMax = -1 }, "EnumerationDelay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateAcceptsTestConfig(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.Token.SigningKey[0] = 'X'
	if cfg.Token.SigningKey[0] == 'X' {
		t.Fatal("cloneConfig must not share key bytes")
	}
}
