package authgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidOrExpiredCode is returned for a wrong or expired second-factor code.
	// Mismatch and expiry are deliberately indistinguishable.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrInvalidRecoveryCode is returned when a recovery code is not in the unused set.
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")
	// ErrNoRecoveryCodesConfigured is returned when the account has no unused recovery codes.
	ErrNoRecoveryCodesConfigured = errors.New("no recovery codes configured")
	// ErrDispatchFailed is returned when an emailed code could not be handed to the notifier.
	ErrDispatchFailed = errors.New("code dispatch failed")

	// ErrChallengeInvalid is returned when a challenge id is unknown, expired or already used.
	ErrChallengeInvalid = errors.New("challenge invalid")
	// ErrResendNotSupported is returned by ResendCode for non-email challenges.
	ErrResendNotSupported = errors.New("resend not supported for this method")
	// ErrSecondFactorMisconfigured marks an account whose stored second factor is unusable.
	ErrSecondFactorMisconfigured = errors.New("second factor misconfigured")
	// ErrAccountNotFound is returned by AccountStore implementations for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEngineNotReady is returned when required collaborators are missing.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrThrottleUnavailable wraps throttle backend failures.
	ErrThrottleUnavailable = errors.New("throttle backend unavailable")
	// ErrChallengeUnavailable wraps challenge backend failures.
	ErrChallengeUnavailable = errors.New("challenge backend unavailable")
	// ErrAccountStoreUnavailable wraps account store failures.
	ErrAccountStoreUnavailable = errors.New("account store unavailable")
	// ErrRecoveryCodeConflict is returned when recovery-code consumption kept
	// losing its compare-and-swap.
	ErrRecoveryCodeConflict = errors.New("recovery code update conflict")
)

// Field names used by FieldError.
const (
	FieldCode         = "code"
	FieldRecoveryCode = "recovery_code"
)

// RateLimitError rejects an attempt while its throttle key is cooling down.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfterSeconds())
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// FieldError ties a second-factor failure to the input that caused it so a
// client can redisplay the right form field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// FieldOf returns the field a second-factor error is scoped to, or "".
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
