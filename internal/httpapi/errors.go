package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authgate"
	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an engine error to an HTTP status and a stable error code.
// ErrInvalidOrExpiredCode is checked before ErrChallengeInvalid so a code
// sent against a vanished challenge reads the same as a wrong code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, authgate.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, authgate.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, authgate.ErrInvalidOrExpiredCode):
		return http.StatusUnauthorized, "invalid_or_expired_code"
	case errors.Is(err, authgate.ErrInvalidRecoveryCode):
		return http.StatusUnauthorized, "invalid_recovery_code"
	case errors.Is(err, authgate.ErrNoRecoveryCodesConfigured):
		return http.StatusUnauthorized, "no_recovery_codes"
	case errors.Is(err, authgate.ErrChallengeInvalid):
		return http.StatusUnauthorized, "challenge_invalid"
	case errors.Is(err, authgate.ErrRecoveryCodeConflict):
		return http.StatusConflict, "recovery_code_conflict"
	case errors.Is(err, authgate.ErrResendNotSupported):
		return http.StatusConflict, "resend_not_supported"
	case errors.Is(err, authgate.ErrDispatchFailed):
		return http.StatusBadGateway, "dispatch_failed"
	case errors.Is(err, authgate.ErrThrottleUnavailable),
		errors.Is(err, authgate.ErrChallengeUnavailable),
		errors.Is(err, authgate.ErrAccountStoreUnavailable),
		errors.Is(err, authgate.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(c echo.Context, err error) error {
	status, code := statusFor(err)

	var rl *authgate.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "login request failed", "path", c.Path(), "error", err)
	}

	return c.JSON(status, errorBody{Error: code, Field: authgate.FieldOf(err)})
}
