package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal/throttle"
)

// attemptKeys names the throttle counters one login attempt is charged to.
type attemptKeys struct {
	combined string
	origin   string
}

func (e *Engine) attemptKeysFor(ctx context.Context, tenantID, identifier string) attemptKeys {
	ip := clientIPFromContext(ctx)
	return attemptKeys{
		combined: throttle.Key(tenantID, identifier, ip),
		origin:   throttle.OriginKey(tenantID, ip),
	}
}

func (e *Engine) checkThrottle(ctx context.Context, keys attemptKeys, now time.Time) error {
	err := e.limiter.Check(ctx, keys.combined, keys.origin, now)
	if err == nil {
		return nil
	}

	var limited *throttle.LimitedError
	if errors.As(err, &limited) {
		return &RateLimitError{RetryAfter: limited.RetryAfter}
	}
	return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
}

// checkResendBudget rejects a resend once the key's resend budget is spent.
func (e *Engine) checkResendBudget(ctx context.Context, keys attemptKeys, now time.Time) error {
	err := e.limiter.CheckResend(ctx, keys.combined, now)
	if err == nil {
		return nil
	}

	var limited *throttle.LimitedError
	if errors.As(err, &limited) {
		return &RateLimitError{RetryAfter: limited.RetryAfter}
	}
	return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
}

// recordFailure charges one attempt. A backend error fails closed.
func (e *Engine) recordFailure(ctx context.Context, keys attemptKeys, now time.Time) error {
	status, err := e.limiter.RecordFailure(ctx, keys.combined, keys.origin, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	if status.Locked(now) {
		e.logger.InfoContext(ctx, "authgate: throttle key locked",
			"attempts", status.Count,
			"locked_until", status.LockedUntil,
		)
	}
	return nil
}

// clearThrottle resets the per-identifier counter after a completed login.
// The origin counter is left to expire on its own.
func (e *Engine) clearThrottle(ctx context.Context, keys attemptKeys) {
	if err := e.limiter.Clear(ctx, keys.combined); err != nil {
		e.logger.WarnContext(ctx, "authgate: throttle reset failed", "error", err)
	}
}

// countsAgainstThrottle reports whether err is an attempt failure that should
// be charged to the throttle. Dispatch and backend errors are not.
func countsAgainstThrottle(err error) bool {
	switch {
	case errors.Is(err, ErrChallengeInvalid):
		return false
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidOrExpiredCode),
		errors.Is(err, ErrInvalidRecoveryCode),
		errors.Is(err, ErrNoRecoveryCodesConfigured):
		return true
	default:
		return false
	}
}
