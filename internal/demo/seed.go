// Package demo builds ready-to-use accounts for the demo server and the
// load generator.
package demo

import (
	"fmt"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/recovery"
	"github.com/MrEthical07/authgate/seal"
	"github.com/pquerna/otp/totp"
)

// RecoveryCodeCount is how many recovery codes a seeded account gets.
const RecoveryCodeCount = 8

// Credentials are the plaintext factors of a seeded account, for printing
// to a developer's terminal.
type Credentials struct {
	Identifier    string
	Password      string
	Method        authgate.Method
	TOTPSecret    string
	RecoveryCodes []string
}

// Seeder hashes passwords and seals second-factor material the way the
// engine expects to read it.
type Seeder struct {
	hasher *password.Argon2
	sealer *seal.Sealer
	now    func() time.Time
}

// NewSeeder uses the engine's argon2 parameters and sealing key.
func NewSeeder(cfg authgate.Config) (*Seeder, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	sealer, err := seal.New(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}
	return &Seeder{hasher: hasher, sealer: sealer, now: time.Now}, nil
}

// Account builds an account with the given method. Authenticator accounts
// get a fresh TOTP secret; any account with a second factor gets recovery
// codes.
func (s *Seeder) Account(id, identifier, secret string, method authgate.Method) (authgate.Account, Credentials, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return authgate.Account{}, Credentials{}, fmt.Errorf("demo: hash %s: %w", identifier, err)
	}

	a := authgate.Account{
		ID:           id,
		TenantID:     "0",
		Identifier:   identifier,
		Email:        identifier,
		PasswordHash: hash,
		Method:       method,
	}
	creds := Credentials{Identifier: identifier, Password: secret, Method: method}
	if method == authgate.MethodNone {
		return a, creds, nil
	}

	confirmed := s.now().UTC()
	a.TwoFactorConfirmedAt = &confirmed

	if method == authgate.MethodAuthenticator {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "authgate", AccountName: identifier})
		if err != nil {
			return authgate.Account{}, Credentials{}, fmt.Errorf("demo: totp secret: %w", err)
		}
		if a.SealedTOTPSecret, err = s.sealer.SealString(key.Secret()); err != nil {
			return authgate.Account{}, Credentials{}, err
		}
		creds.TOTPSecret = key.Secret()
	}

	set, err := recovery.Generate(RecoveryCodeCount)
	if err != nil {
		return authgate.Account{}, Credentials{}, err
	}
	if a.SealedRecoveryCodes, err = recovery.Seal(s.sealer, set); err != nil {
		return authgate.Account{}, Credentials{}, err
	}
	creds.RecoveryCodes = set.Codes()

	return a, creds, nil
}

// Defaults returns one account per method.
func (s *Seeder) Defaults() ([]authgate.Account, []Credentials, error) {
	defaults := []struct {
		id, identifier, secret string
		method                 authgate.Method
	}{
		{"demo-plain", "plain@example.com", "plain-password-1", authgate.MethodNone},
		{"demo-totp", "totp@example.com", "totp-password-1", authgate.MethodAuthenticator},
		{"demo-email", "email@example.com", "email-password-1", authgate.MethodEmail},
	}

	accounts := make([]authgate.Account, 0, len(defaults))
	creds := make([]Credentials, 0, len(defaults))
	for _, d := range defaults {
		a, c, err := s.Account(d.id, d.identifier, d.secret, d.method)
		if err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, a)
		creds = append(creds, c)
	}
	return accounts, creds, nil
}
