package main

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/pinreset"
	"github.com/MrEthical07/pinreset/mail"
	"github.com/MrEthical07/pinreset/middleware"
)

type appConfig struct {
	Env             string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string

	// TrustedProxies are the peers allowed to set X-Forwarded-For.
	TrustedProxies []netip.Prefix

	RedisAddr string
	RedisPass string
	RedisDB   int

	// DatabaseURL selects the Postgres store. Empty keeps users in memory.
	DatabaseURL string
	AutoMigrate bool

	// MailDriver is "smtp" or "log".
	MailDriver string
	SMTP       mail.SMTPConfig

	InstitutionLabel string
	Engine           pinreset.Config
}

func (c appConfig) development() bool {
	return c.Env == "development"
}

func loadConfig() (appConfig, error) {
	cfg := appConfig{
		Env:              getEnv("APP_ENV", "production"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:        getEnv("REDIS_PASS", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		MailDriver:       getEnv("MAIL_DRIVER", "smtp"),
		InstitutionLabel: getEnv("INSTITUTION_LABEL", "CURAJ"),
		SMTP: mail.SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnv("SMTP_PORT", "465"),
			Username: getEnv("MAIL_USER", ""),
			Password: getEnv("MAIL_PASS", ""),
			From:     getEnv("MAIL_FROM", ""),
			Security: mail.Security(getEnv("SMTP_SECURITY", string(mail.SecurityImplicitTLS))),
		},
	}

	var err error
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return appConfig{}, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return appConfig{}, err
	}
	if cfg.TrustedProxies, err = middleware.ParseTrustedProxies(splitList(getEnv("TRUSTED_PROXIES", ""))); err != nil {
		return appConfig{}, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return appConfig{}, err
	}
	if cfg.AutoMigrate, err = getEnvBool("DB_AUTO_MIGRATE", true); err != nil {
		return appConfig{}, err
	}

	engine := pinreset.DefaultConfig()
	engine.Institution.EmailDomain = getEnv("INSTITUTION_DOMAIN", engine.Institution.EmailDomain)
	engine.Institution.Name = getEnv("INSTITUTION_NAME", engine.Institution.Name)
	engine.Token.SigningKey = []byte(os.Getenv("JWT_SECRET"))
	engine.Token.Issuer = getEnv("JWT_ISSUER", engine.Token.Issuer)
	engine.Mail.ResetURLBase = getEnv("APP_URL", os.Getenv("NEXT_PUBLIC_APP_URL"))
	engine.Mail.From = getEnv("MAIL_FROM", cfg.SMTP.Username)
	if engine.Token.TTL, err = getEnvDuration("RESET_TOKEN_TTL", engine.Token.TTL); err != nil {
		return appConfig{}, err
	}
	if engine.RateLimit.MaxAttempts, err = getEnvInt("RESET_MAX_ATTEMPTS", engine.RateLimit.MaxAttempts); err != nil {
		return appConfig{}, err
	}
	if engine.RateLimit.Window, err = getEnvDuration("RESET_WINDOW", engine.RateLimit.Window); err != nil {
		return appConfig{}, err
	}
	if engine.Mail.SendTimeout, err = getEnvDuration("MAIL_SEND_TIMEOUT", engine.Mail.SendTimeout); err != nil {
		return appConfig{}, err
	}
	if engine.Security.EnableIPThrottle, err = getEnvBool("RESET_IP_THROTTLE", engine.Security.EnableIPThrottle); err != nil {
		return appConfig{}, err
	}
	if engine.Metrics.Enabled, err = getEnvBool("METRICS_ENABLED", true); err != nil {
		return appConfig{}, err
	}
	engine.Metrics.EnableLatencyHistograms = engine.Metrics.Enabled
	cfg.Engine = engine

	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	switch c.MailDriver {
	case "smtp":
		if c.SMTP.Username == "" || c.SMTP.Password == "" {
			return errors.New("MAIL_USER and MAIL_PASS are required for the smtp mail driver")
		}
	case "log":
		if !c.development() {
			return errors.New("the log mail driver is only allowed with APP_ENV=development")
		}
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver)
	}
	return c.Engine.Validate()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
