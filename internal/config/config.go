// Package config loads the demo server settings from the environment and an
// optional .env file using Viper.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/spf13/viper"
)

// Config holds the server settings.
type Config struct {
	// HTTPAddr is the listen address (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the deployment environment. "production" turns several dev
	// conveniences into startup errors.
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// TrustedProxies is a comma-separated list of CIDRs whose
	// X-Forwarded-For header is believed. Empty trusts no proxy.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// RedisAddr empty starts an in-process miniredis.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// DatabaseURL empty uses the in-memory account store with demo accounts.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// EncryptionKey is the base64-encoded 32-byte sealing key.
	EncryptionKey string `mapstructure:"AUTHGATE_ENCRYPTION_KEY"`

	// ResendAPIKey empty prints codes to stderr instead of sending mail.
	ResendAPIKey     string  `mapstructure:"RESEND_API_KEY"`
	ResendFrom       string  `mapstructure:"RESEND_FROM"`
	ResendTemplateID string  `mapstructure:"RESEND_TEMPLATE_ID"`
	ResendRatePerSec float64 `mapstructure:"RESEND_RATE_PER_SECOND"`
	ResendBurst      int     `mapstructure:"RESEND_BURST"`

	MaxAttempts          int    `mapstructure:"THROTTLE_MAX_ATTEMPTS"`
	Cooldown             string `mapstructure:"THROTTLE_COOLDOWN"`
	EnableOriginThrottle bool   `mapstructure:"THROTTLE_ORIGIN_ENABLED"`
	EmailCodeTTL         string `mapstructure:"EMAIL_CODE_TTL"`
	ChallengeTTL         string `mapstructure:"CHALLENGE_TTL"`
	TOTPFallbackSkew     uint   `mapstructure:"TOTP_FALLBACK_SKEW"`
	AuditEnabled         bool   `mapstructure:"AUDIT_ENABLED"`
}

// Load reads .env from the working directory, then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads the given env file if present, then the environment.
// Environment variables override the file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // missing file is fine
	}
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTHGATE_ENCRYPTION_KEY", "")
	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("RESEND_FROM", "")
	v.SetDefault("RESEND_TEMPLATE_ID", "")
	v.SetDefault("RESEND_RATE_PER_SECOND", 2.0)
	v.SetDefault("RESEND_BURST", 5)
	v.SetDefault("THROTTLE_MAX_ATTEMPTS", 5)
	v.SetDefault("THROTTLE_COOLDOWN", "1m")
	v.SetDefault("THROTTLE_ORIGIN_ENABLED", false)
	v.SetDefault("EMAIL_CODE_TTL", "5m")
	v.SetDefault("CHALLENGE_TTL", "10m")
	v.SetDefault("TOTP_FALLBACK_SKEW", 0)
	v.SetDefault("AUDIT_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.IsProduction() {
		if cfg.EncryptionKey == "" {
			return nil, errors.New("config: AUTHGATE_ENCRYPTION_KEY must be set when APP_ENV=production")
		}
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when APP_ENV=production")
		}
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("config: RESEND_API_KEY must be set when APP_ENV=production")
		}
	}
	if _, err := cfg.TrustedProxyNets(); err != nil {
		return nil, err
	}
	if cfg.ResendAPIKey != "" && cfg.ResendFrom == "" {
		return nil, errors.New("config: RESEND_FROM must be set with RESEND_API_KEY")
	}

	return &cfg, nil
}

// DatabaseURL reads only DATABASE_URL from .env and the environment, for
// tools that need nothing else.
func DatabaseURL() string {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetDefault("DATABASE_URL", "")
	return v.GetString("DATABASE_URL")
}

// TrustedProxyNets parses TRUSTED_PROXIES. A bare IP is taken as a
// single-host range.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, raw := range strings.Split(c.TrustedProxies, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES: invalid address %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SlogLevel maps LOG_LEVEL to a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Key decodes EncryptionKey. Outside production an empty value yields a
// random key, which makes sealed data unreadable after a restart; the
// second return reports that case.
func (c *Config) Key() ([]byte, bool, error) {
	if c.EncryptionKey == "" {
		if c.IsProduction() {
			return nil, false, errors.New("config: encryption key required")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, false, err
		}
		return key, true, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, false, fmt.Errorf("config: AUTHGATE_ENCRYPTION_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, false, fmt.Errorf("config: AUTHGATE_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, false, nil
}

// Engine builds the authgate configuration from these settings.
func (c *Config) Engine(key []byte) (authgate.Config, error) {
	cfg := authgate.DefaultConfig()
	cfg.Encryption.Key = key
	cfg.Throttle.MaxAttempts = c.MaxAttempts
	cfg.Throttle.EnableOriginThrottle = c.EnableOriginThrottle
	cfg.TOTP.FallbackSkew = c.TOTPFallbackSkew
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	var err error
	if cfg.Throttle.Cooldown, err = parseDuration("THROTTLE_COOLDOWN", c.Cooldown); err != nil {
		return authgate.Config{}, err
	}
	if cfg.EmailCode.TTL, err = parseDuration("EMAIL_CODE_TTL", c.EmailCodeTTL); err != nil {
		return authgate.Config{}, err
	}
	if cfg.Challenge.TTL, err = parseDuration("CHALLENGE_TTL", c.ChallengeTTL); err != nil {
		return authgate.Config{}, err
	}
	return cfg, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", name, value)
	}
	return d, nil
}
