package password

import "strings"

// Verifier checks a secret against a stored hash of any supported scheme.
type Verifier struct {
	argon2 *Argon2
	bcrypt *Bcrypt

	// dummy is verified when no account exists so the miss path costs the
	// same as a real comparison.
	dummy string
}

// NewVerifier builds a Verifier that hashes with argon2 parameters cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	dummy, err := a.Hash("authgate-dummy-secret")
	if err != nil {
		return nil, err
	}
	return &Verifier{argon2: a, bcrypt: NewBcrypt(0), dummy: dummy}, nil
}

// Verify routes on the hash prefix and reports whether secret matches.
func (v *Verifier) Verify(secret, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return v.argon2.Verify(secret, encodedHash)
	case isBcryptHash(encodedHash):
		return v.bcrypt.Verify(secret, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// VerifyDummy spends one argon2 verification and always returns false.
func (v *Verifier) VerifyDummy(secret string) {
	_, _ = v.argon2.Verify(secret, v.dummy)
}

// Hash produces an Argon2id hash with the verifier's parameters.
func (v *Verifier) Hash(secret string) (string, error) {
	return v.argon2.Hash(secret)
}
