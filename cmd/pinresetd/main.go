// Command pinresetd serves the PIN reset API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file. See loadConfig for the variables.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/pinreset"
	"github.com/MrEthical07/pinreset/httpapi"
	"github.com/MrEthical07/pinreset/mail"
	promexport "github.com/MrEthical07/pinreset/metrics/export/prometheus"
	"github.com/MrEthical07/pinreset/store/memory"
	"github.com/MrEthical07/pinreset/store/postgres"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		// The logger depends on APP_ENV, which may be the broken part.
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Info("no .env file found, relying on process environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("pinresetd stopped", zap.Error(err))
	}
}

func newLogger(cfg appConfig) (*zap.Logger, error) {
	if cfg.development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg appConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return err
	}

	users, closeStore, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	engine, err := pinreset.New().
		WithConfig(cfg.Engine).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		WithLogger(logger.Named("engine")).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("pin reset engine ready",
		zap.String("signing_algorithm", report.SigningAlgorithm),
		zap.Duration("token_ttl", report.TokenTTL),
		zap.Int("max_attempts", report.MaxAttempts),
		zap.Duration("rate_window", report.RateWindow),
		zap.Bool("ip_throttle", report.IPThrottleActive),
	)

	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:           logger.Named("http"),
		AllowedOrigins:   cfg.AllowedOrigins,
		TrustedProxies:   cfg.TrustedProxies,
		InstitutionLabel: cfg.InstitutionLabel,
		PINMinDigits:     cfg.Engine.PIN.MinDigits,
		PINMaxDigits:     cfg.Engine.PIN.MaxDigits,
		RequestTimeout:   cfg.RequestTimeout,
		Health: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		Metrics: promexport.NewCollector(engine).Handler(),
		Now:     engine.Now,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openUserStore(ctx context.Context, cfg appConfig, logger *zap.Logger) (pinreset.UserStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory user store")
		return memory.New(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}

func newMailer(cfg appConfig, logger *zap.Logger) (pinreset.Mailer, error) {
	if cfg.MailDriver == "log" {
		return mail.NewLogMailer(logger.Named("mail")), nil
	}
	return mail.NewSMTPMailer(cfg.SMTP)
}
