package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.Cooldown != "1m" || cfg.EmailCodeTTL != "5m" {
		t.Errorf("unexpected durations %q %q", cfg.Cooldown, cfg.EmailCodeTTL)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("THROTTLE_MAX_ATTEMPTS", "3")
	t.Setenv("EMAIL_CODE_TTL", "2m")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.MaxAttempts != 3 || cfg.EmailCodeTTL != "2m" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("HTTP_ADDR=:7070\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, want :7070", cfg.HTTPAddr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}

func TestProductionRequiresInfrastructure(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected error without encryption key in production")
	}

	t.Setenv("AUTHGATE_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected error without redis in production")
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("RESEND_FROM", "auth@example.com")
	if _, err := LoadFile(""); err != nil {
		t.Fatalf("expected production config to load: %v", err)
	}
}

func TestResendRequiresFrom(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "re_test")
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected error without RESEND_FROM")
	}
}

func TestKey(t *testing.T) {
	cfg := &Config{Env: "development"}
	key, ephemeral, err := cfg.Key()
	if err != nil || len(key) != 32 || !ephemeral {
		t.Fatalf("expected ephemeral 32-byte key, got len=%d ephemeral=%v err=%v", len(key), ephemeral, err)
	}

	cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	if _, _, err := cfg.Key(); err == nil {
		t.Fatal("expected error for short key")
	}

	cfg.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	key, ephemeral, err = cfg.Key()
	if err != nil || len(key) != 32 || ephemeral {
		t.Fatalf("expected configured key, got len=%d ephemeral=%v err=%v", len(key), ephemeral, err)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	engineCfg, err := cfg.Engine(make([]byte, 32))
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if engineCfg.Throttle.Cooldown != time.Minute || engineCfg.EmailCode.TTL != 5*time.Minute {
		t.Fatalf("unexpected durations %+v", engineCfg)
	}
	if err := engineCfg.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}

	cfg.Cooldown = "soon"
	if _, err := cfg.Engine(make([]byte, 32)); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/authgate")
	if got := DatabaseURL(); got != "postgres://localhost/authgate" {
		t.Fatalf("DatabaseURL = %q", got)
	}
}

func TestTrustedProxyNets(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10 ,")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	nets, err := cfg.TrustedProxyNets()
	if err != nil {
		t.Fatalf("TrustedProxyNets: %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("got %d ranges, want 2", len(nets))
	}
	if nets[0].String() != "10.0.0.0/8" || nets[1].String() != "192.0.2.10/32" {
		t.Fatalf("unexpected ranges %v %v", nets[0], nets[1])
	}
}

func TestTrustedProxiesDefaultEmpty(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	nets, err := cfg.TrustedProxyNets()
	if err != nil || len(nets) != 0 {
		t.Fatalf("default trusted proxies = %v, %v; want none", nets, err)
	}
}

func TestTrustedProxiesRejectsGarbage(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")

	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected invalid TRUSTED_PROXIES to fail Load")
	}
}
