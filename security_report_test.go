package authgate

import (
	"testing"
	"time"
)

func TestSecurityReportReflectsConfig(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) {
		cfg.Throttle.EnableOriginThrottle = true
		cfg.TOTP.FallbackSkew = 6
	})

	r := h.engine.SecurityReport()
	if r.MaxAttempts != 5 || r.Cooldown != time.Minute {
		t.Fatalf("unexpected throttle report %+v", r)
	}
	if !r.OriginThrottle || r.MaxResends != 5 {
		t.Fatalf("expected origin throttle and a resend budget of 5, got %+v", r)
	}
	if r.EmailCodeDigits != 6 || r.EmailCodeTTL != 5*time.Minute || r.ChallengeTTL != 10*time.Minute {
		t.Fatalf("unexpected challenge report %+v", r)
	}
	if r.TOTPSkewSteps != 4 || r.TOTPFallbackSkew != 6 {
		t.Fatalf("unexpected TOTP report %+v", r)
	}
	if !r.NotifierConfigured {
		t.Fatal("expected notifier to be reported")
	}
	if r.Argon2.Memory != 8*1024 || r.Argon2.KeyLength != 32 {
		t.Fatalf("unexpected argon2 report %+v", r.Argon2)
	}
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r != (SecurityReport{}) {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
