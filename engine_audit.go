package authgate

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventChallengeIssued    = "challenge_issued"
	auditEventChallengeResent    = "challenge_resent"
	auditEventDispatchFailed     = "code_dispatch_failed"
	auditEventSecondFactorOK     = "second_factor_success"
	auditEventSecondFactorFailed = "second_factor_failure"
	auditEventRecoveryCodeUsed   = "recovery_code_used"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrInvalidCode          AuditErrorCode = "invalid_or_expired_code"
	auditErrInvalidRecoveryCode  AuditErrorCode = "invalid_recovery_code"
	auditErrNoRecoveryCodes      AuditErrorCode = "no_recovery_codes"
	auditErrDispatchFailed       AuditErrorCode = "dispatch_failed"
	auditErrChallengeInvalid     AuditErrorCode = "challenge_invalid"
	auditErrMisconfigured        AuditErrorCode = "second_factor_misconfigured"
	auditErrRecoveryCodeConflict AuditErrorCode = "recovery_code_conflict"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

type auditFields struct {
	accountID   string
	tenantID    string
	challengeID string
	metadata    func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, f auditFields, err error) {
	if e == nil || e.audit == nil {
		return
	}
	tenantID := f.tenantID
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   e.clock.Now().UTC(),
		EventType:   eventType,
		AccountID:   f.accountID,
		TenantID:    tenantID,
		ChallengeID: f.challengeID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
	}
	if f.metadata != nil {
		event.Metadata = f.metadata()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrChallengeInvalid):
		return auditErrChallengeInvalid
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrInvalidRecoveryCode):
		return auditErrInvalidRecoveryCode
	case errors.Is(err, ErrNoRecoveryCodesConfigured):
		return auditErrNoRecoveryCodes
	case errors.Is(err, ErrDispatchFailed):
		return auditErrDispatchFailed
	case errors.Is(err, ErrSecondFactorMisconfigured):
		return auditErrMisconfigured
	case errors.Is(err, ErrRecoveryCodeConflict):
		return auditErrRecoveryCodeConflict
	case errors.Is(err, ErrThrottleUnavailable),
		errors.Is(err, ErrChallengeUnavailable),
		errors.Is(err, ErrAccountStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
