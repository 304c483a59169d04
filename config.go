package authgate

import (
	"errors"
	"strings"
	"time"
)

// Config holds every engine tunable. Start from DefaultConfig and override.
type Config struct {
	Throttle      ThrottleConfig
	Challenge     ChallengeConfig
	TOTP          TOTPConfig
	EmailCode     EmailCodeConfig
	RecoveryCodes RecoveryCodeConfig
	Password      PasswordConfig
	Encryption    EncryptionConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// ThrottleConfig controls attempt counting per identifier+origin key.
type ThrottleConfig struct {
	MaxAttempts int
	Cooldown    time.Duration

	// EnableOriginThrottle adds a per-origin counter across identifiers.
	EnableOriginThrottle bool
	OriginMaxAttempts    int

	// MaxResends caps delivered code resends per throttle key within the
	// cooldown window. Resends have their own counter, so they never lock
	// out code verification. Zero disables the cap.
	MaxResends int
}

// ChallengeConfig controls challenge record lifetime in Redis.
type ChallengeConfig struct {
	TTL         time.Duration
	RedisPrefix string
}

// TOTPConfig controls authenticator code validation.
//
// Skew is the accepted number of 30-second steps either side of now.
// FallbackSkew, when larger than Skew, enables one widened retry after the
// primary window fails. It is disabled by default.
type TOTPConfig struct {
	Period       uint
	Digits       int
	Algorithm    string
	Skew         uint
	FallbackSkew uint
}

// EmailCodeConfig controls emailed one-time codes.
type EmailCodeConfig struct {
	Digits          int
	TTL             time.Duration
	DispatchTimeout time.Duration
}

// RecoveryCodeConfig controls recovery-code consumption.
type RecoveryCodeConfig struct {
	MaxSwapRetries int
}

// PasswordConfig holds Argon2id parameters, used for the dummy hash that
// keeps unknown-identifier logins as slow as real ones.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// EncryptionConfig holds the key that seals TOTP secrets and recovery codes.
type EncryptionConfig struct {
	Key []byte
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Encryption.Key must
// still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Throttle: ThrottleConfig{
			MaxAttempts:          5,
			Cooldown:             time.Minute,
			EnableOriginThrottle: false,
			OriginMaxAttempts:    50,
			MaxResends:           5,
		},
		Challenge: ChallengeConfig{
			TTL:         10 * time.Minute,
			RedisPrefix: "agc",
		},
		TOTP: TOTPConfig{
			Period:       30,
			Digits:       6,
			Algorithm:    "SHA1",
			Skew:         4,
			FallbackSkew: 0,
		},
		EmailCode: EmailCodeConfig{
			Digits:          6,
			TTL:             5 * time.Minute,
			DispatchTimeout: 10 * time.Second,
		},
		RecoveryCodes: RecoveryCodeConfig{
			MaxSwapRetries: 4,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Encryption.Key = cloneBytes(cfg.Encryption.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	// Throttle
	if c.Throttle.MaxAttempts <= 0 {
		return errors.New("Throttle MaxAttempts must be > 0")
	}
	if c.Throttle.Cooldown <= 0 {
		return errors.New("Throttle Cooldown must be > 0")
	}
	if c.Throttle.MaxResends < 0 {
		return errors.New("Throttle MaxResends must be >= 0")
	}
	if c.Throttle.EnableOriginThrottle && c.Throttle.OriginMaxAttempts < c.Throttle.MaxAttempts {
		return errors.New("Throttle OriginMaxAttempts must be >= MaxAttempts")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if strings.TrimSpace(c.Challenge.RedisPrefix) == "" {
		return errors.New("Challenge RedisPrefix must not be empty")
	}
	if c.Challenge.TTL < c.EmailCode.TTL {
		return errors.New("Challenge TTL must be >= EmailCode TTL")
	}

	// TOTP
	if c.TOTP.Period == 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256 or SHA512")
	}
	if c.TOTP.Skew > 10 || c.TOTP.FallbackSkew > 10 {
		return errors.New("TOTP Skew must be <= 10")
	}
	if c.TOTP.FallbackSkew != 0 && c.TOTP.FallbackSkew <= c.TOTP.Skew {
		return errors.New("TOTP FallbackSkew must be 0 or > Skew")
	}

	// Email code
	if c.EmailCode.Digits < 6 || c.EmailCode.Digits > 10 {
		return errors.New("EmailCode Digits must be between 6 and 10")
	}
	if c.EmailCode.TTL <= 0 {
		return errors.New("EmailCode TTL must be > 0")
	}
	if c.EmailCode.DispatchTimeout <= 0 {
		return errors.New("EmailCode DispatchTimeout must be > 0")
	}

	// Recovery codes
	if c.RecoveryCodes.MaxSwapRetries <= 0 {
		return errors.New("RecoveryCodes MaxSwapRetries must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Encryption
	if len(c.Encryption.Key) < 32 {
		return errors.New("Encryption Key must be at least 32 bytes")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
