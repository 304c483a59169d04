package authgate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Method is the second-factor method configured on an account.
type Method uint8

const (
	// MethodNone means no second factor is configured.
	MethodNone Method = iota
	// MethodAuthenticator verifies TOTP codes from an authenticator app.
	MethodAuthenticator
	// MethodEmail sends a one-time numeric code to the account's address.
	MethodEmail
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return ""
	case MethodAuthenticator:
		return "authenticator"
	case MethodEmail:
		return "email"
	default:
		return "unknown"
	}
}

// ParseMethod maps a stored method name to a Method. Unknown names are an
// error so a corrupt column never silently disables the second factor.
func ParseMethod(s string) (Method, error) {
	switch strings.TrimSpace(s) {
	case "":
		return MethodNone, nil
	case "authenticator":
		return MethodAuthenticator, nil
	case "email":
		return MethodEmail, nil
	default:
		return MethodNone, fmt.Errorf("%w: unknown method %q", ErrSecondFactorMisconfigured, s)
	}
}

// Account is the identity record the engine authenticates against.
//
// SealedTOTPSecret and SealedRecoveryCodes are sealed with the engine's
// encryption key (see package seal).
type Account struct {
	ID           string
	TenantID     string
	Identifier   string
	Email        string
	PasswordHash string

	Method               Method
	SealedTOTPSecret     string
	SealedRecoveryCodes  string
	TwoFactorConfirmedAt *time.Time
}

// SecondFactorEnabled reports whether logins must pass a second factor.
func (a Account) SecondFactorEnabled() bool {
	return a.TwoFactorConfirmedAt != nil && a.Method != MethodNone
}

// Validate checks the second-factor invariants of an enabled account.
func (a Account) Validate() error {
	if !a.SecondFactorEnabled() {
		return nil
	}
	switch a.Method {
	case MethodAuthenticator:
		if a.SealedTOTPSecret == "" {
			return fmt.Errorf("%w: authenticator without secret", ErrSecondFactorMisconfigured)
		}
	case MethodEmail:
		if a.deliveryAddress() == "" {
			return fmt.Errorf("%w: email method without address", ErrSecondFactorMisconfigured)
		}
	default:
		return fmt.Errorf("%w: unknown method", ErrSecondFactorMisconfigured)
	}
	return nil
}

func (a Account) deliveryAddress() string {
	if a.Email != "" {
		return a.Email
	}
	if strings.Contains(a.Identifier, "@") {
		return a.Identifier
	}
	return ""
}

// AccountStore is the engine's read path to accounts plus the one write the
// hot path performs: consuming a recovery code.
type AccountStore interface {
	GetAccountByIdentifier(ctx context.Context, tenantID, identifier string) (Account, error)
	GetAccountByID(ctx context.Context, tenantID, accountID string) (Account, error)
	// SwapRecoveryCodes replaces the sealed recovery-code column only if it
	// still equals expected. It returns false when another writer got there first.
	SwapRecoveryCodes(ctx context.Context, tenantID, accountID, expected, next string) (bool, error)
}

// Notifier delivers an emailed one-time code.
type Notifier interface {
	SendCode(ctx context.Context, address, code string, ttl time.Duration) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, address, code string, ttl time.Duration) error

// SendCode calls f.
func (f NotifierFunc) SendCode(ctx context.Context, address, code string, ttl time.Duration) error {
	return f(ctx, address, code, ttl)
}

// Clock supplies the current instant. Every expiry, TOTP step and throttle
// decision in one engine call uses a single reading.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// LoginRequest is one credential submission. Code or RecoveryCode may be
// supplied up front to satisfy an authenticator or recovery second factor
// without a separate round trip.
type LoginRequest struct {
	Identifier   string
	Secret       string
	Remember     bool
	Code         string
	RecoveryCode string
}

// SecondFactorRequest answers a pending challenge. RecoveryCode wins when
// both fields are set.
type SecondFactorRequest struct {
	ChallengeID  string
	Code         string
	RecoveryCode string
}

// Status is the outcome of a successful engine call.
type Status uint8

const (
	// StatusAuthenticated means the caller may establish a session.
	StatusAuthenticated Status = iota + 1
	// StatusChallengeRequired means a second factor must be submitted.
	StatusChallengeRequired
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusChallengeRequired:
		return "challenge_required"
	default:
		return "unknown"
	}
}

// LoginResult is returned with a nil error. Failures are reported only
// through the error.
type LoginResult struct {
	Status Status

	// Set when Status is StatusAuthenticated.
	Account  *Account
	Remember bool

	// Set when Status is StatusChallengeRequired.
	Method      Method
	ChallengeID string
	// CodeExpiresAt is set for email challenges.
	CodeExpiresAt time.Time
}
