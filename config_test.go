package authgate

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with key", mutate: func(c *Config) {}, wantValid: true},
		{name: "missing key", mutate: func(c *Config) { c.Encryption.Key = nil }, wantValid: false},
		{name: "short key", mutate: func(c *Config) { c.Encryption.Key = make([]byte, 31) }, wantValid: false},
		{name: "zero attempts", mutate: func(c *Config) { c.Throttle.MaxAttempts = 0 }, wantValid: false},
		{name: "zero cooldown", mutate: func(c *Config) { c.Throttle.Cooldown = 0 }, wantValid: false},
		{
			name: "origin budget below identifier budget",
			mutate: func(c *Config) {
				c.Throttle.EnableOriginThrottle = true
				c.Throttle.OriginMaxAttempts = 3
			},
			wantValid: false,
		},
		{name: "challenge shorter than code", mutate: func(c *Config) { c.Challenge.TTL = 4 * time.Minute }, wantValid: false},
		{name: "blank prefix", mutate: func(c *Config) { c.Challenge.RedisPrefix = "  " }, wantValid: false},
		{name: "totp eight digits", mutate: func(c *Config) { c.TOTP.Digits = 8 }, wantValid: true},
		{name: "totp seven digits", mutate: func(c *Config) { c.TOTP.Digits = 7 }, wantValid: false},
		{name: "totp sha256", mutate: func(c *Config) { c.TOTP.Algorithm = "sha256" }, wantValid: true},
		{name: "totp md5", mutate: func(c *Config) { c.TOTP.Algorithm = "MD5" }, wantValid: false},
		{name: "fallback wider than skew", mutate: func(c *Config) { c.TOTP.FallbackSkew = 5 }, wantValid: true},
		{name: "fallback not wider than skew", mutate: func(c *Config) { c.TOTP.FallbackSkew = 4 }, wantValid: false},
		{name: "skew too wide", mutate: func(c *Config) { c.TOTP.Skew = 11 }, wantValid: false},
		{name: "email digits too few", mutate: func(c *Config) { c.EmailCode.Digits = 4 }, wantValid: false},
		{name: "zero dispatch timeout", mutate: func(c *Config) { c.EmailCode.DispatchTimeout = 0 }, wantValid: false},
		{name: "zero swap retries", mutate: func(c *Config) { c.RecoveryCodes.MaxSwapRetries = 0 }, wantValid: false},
		{name: "argon2 memory low", mutate: func(c *Config) { c.Password.Memory = 1024 }, wantValid: false},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Throttle.MaxAttempts != 5 || cfg.Throttle.Cooldown != time.Minute {
		t.Fatalf("unexpected throttle defaults %+v", cfg.Throttle)
	}
	if cfg.EmailCode.Digits != 6 || cfg.EmailCode.TTL != 5*time.Minute {
		t.Fatalf("unexpected email code defaults %+v", cfg.EmailCode)
	}
	if cfg.TOTP.Period != 30 || cfg.TOTP.Digits != 6 || cfg.TOTP.Skew != 4 || cfg.TOTP.FallbackSkew != 0 {
		t.Fatalf("unexpected totp defaults %+v", cfg.TOTP)
	}
	if len(cfg.Encryption.Key) != 0 {
		t.Fatal("default config must not ship a key")
	}
}

func TestWithConfigCopiesKey(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.Encryption.Key[0] = 'X'

	if b.config.Encryption.Key[0] == 'X' {
		t.Fatal("builder must not alias the caller's key")
	}
}

func TestEngineConfigRedactsKey(t *testing.T) {
	h := newTestHarness(t, nil)
	if got := h.engine.Config(); got.Encryption.Key != nil {
		t.Fatal("expected key redacted")
	}
	if got := h.engine.Config(); got.Throttle.MaxAttempts != 5 {
		t.Fatalf("expected config copy, got %+v", got.Throttle)
	}
}
