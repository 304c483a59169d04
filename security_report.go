package authgate

import "time"

// SecurityReport summarizes the protections an engine runs with, for
// startup logs and deployment checks.
type SecurityReport struct {
	MaxAttempts        int
	Cooldown           time.Duration
	OriginThrottle     bool
	MaxResends         int
	ChallengeTTL       time.Duration
	EmailCodeDigits    int
	EmailCodeTTL       time.Duration
	TOTPSkewSteps      uint
	TOTPFallbackSkew   uint
	NotifierConfigured bool
	AuditEnabled       bool
	Argon2             PasswordConfigReport
	LintWarningCount   int
}

// PasswordConfigReport mirrors the argon2 parameters in use.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes e's effective configuration. It never includes
// key material.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		MaxAttempts:        cfg.Throttle.MaxAttempts,
		Cooldown:           cfg.Throttle.Cooldown,
		OriginThrottle:     cfg.Throttle.EnableOriginThrottle,
		MaxResends:         cfg.Throttle.MaxResends,
		ChallengeTTL:       cfg.Challenge.TTL,
		EmailCodeDigits:    cfg.EmailCode.Digits,
		EmailCodeTTL:       cfg.EmailCode.TTL,
		TOTPSkewSteps:      cfg.TOTP.Skew,
		TOTPFallbackSkew:   cfg.TOTP.FallbackSkew,
		NotifierConfigured: e.notifier != nil,
		AuditEnabled:       e.audit != nil,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		LintWarningCount: len(cfg.Lint()),
	}
}
