package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/internal/demo"
	"github.com/MrEthical07/authgate/internal/httpapi"
	"github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/notify"
	"github.com/MrEthical07/authgate/notify/resend"
	"github.com/MrEthical07/authgate/store/memory"
	"github.com/MrEthical07/authgate/store/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authgate-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, ephemeral, err := cfg.Key()
	if err != nil {
		return err
	}
	if ephemeral {
		logger.Warn("AUTHGATE_ENCRYPTION_KEY not set; using a random key for this process")
	}
	engineCfg, err := cfg.Engine(key)
	if err != nil {
		return err
	}

	client, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	accounts, closeStore, err := openAccounts(ctx, cfg, engineCfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	engine, err := authgate.New().
		WithConfig(engineCfg).
		WithRedis(client).
		WithAccountStore(accounts).
		WithNotifier(notifier).
		WithAuditSink(authgate.NewSlogSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("engine ready",
		"max_attempts", report.MaxAttempts,
		"cooldown", report.Cooldown,
		"origin_throttle", report.OriginThrottle,
		"email_code_ttl", report.EmailCodeTTL,
		"totp_skew", report.TOTPSkewSteps,
		"totp_fallback_skew", report.TOTPFallbackSkew,
		"lint_warnings", report.LintWarningCount,
	)

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}
	e := httpapi.NewServer(engine, prometheus.NewExporter(engine).Handler(), logger, proxies)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("using redis", "addr", cfg.RedisAddr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Warn("REDIS_ADDR not set; using in-process miniredis", "addr", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func openAccounts(ctx context.Context, cfg *config.Config, engineCfg authgate.Config, logger *slog.Logger) (authgate.AccountStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres account store")
		return postgres.New(pool), pool.Close, nil
	}

	store := memory.New()
	seeder, err := demo.NewSeeder(engineCfg)
	if err != nil {
		return nil, nil, err
	}
	accounts, creds, err := seeder.Defaults()
	if err != nil {
		return nil, nil, err
	}
	for _, a := range accounts {
		if _, err := store.Put(a); err != nil {
			return nil, nil, err
		}
	}

	logger.Warn("DATABASE_URL not set; serving seeded demo accounts from memory")
	for _, c := range creds {
		fmt.Fprintf(os.Stderr, "demo account %s password=%s method=%q", c.Identifier, c.Password, c.Method)
		if c.TOTPSecret != "" {
			fmt.Fprintf(os.Stderr, " totp_secret=%s", c.TOTPSecret)
		}
		if len(c.RecoveryCodes) > 0 {
			fmt.Fprintf(os.Stderr, " recovery_code=%s", c.RecoveryCodes[0])
		}
		fmt.Fprintln(os.Stderr)
	}
	return store, func() {}, nil
}

func buildNotifier(cfg *config.Config) (authgate.Notifier, error) {
	if cfg.ResendAPIKey == "" {
		return notify.NewWriter(os.Stderr), nil
	}
	n, err := resend.New(resend.Config{
		APIKey:     cfg.ResendAPIKey,
		From:       cfg.ResendFrom,
		TemplateID: cfg.ResendTemplateID,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewPaced(n, cfg.ResendRatePerSec, cfg.ResendBurst), nil
}
