package authgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/stores"
)

// issueChallenge records a pending second factor and, for email accounts,
// sends the first code. A failed send removes the challenge again.
func (e *Engine) issueChallenge(ctx context.Context, p pendingLogin, now time.Time) (*LoginResult, error) {
	id, err := internal.NewChallengeID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	challengeID := id.String()

	record := &stores.Challenge{
		Method:      uint8(p.account.Method),
		Remember:    p.remember,
		CreatedAt:   now.UnixMilli(),
		AccountID:   p.account.ID,
		TenantID:    p.tenantID,
		ThrottleKey: p.keys.combined,
		OriginKey:   p.keys.origin,
	}

	result := &LoginResult{
		Status:      StatusChallengeRequired,
		Method:      p.account.Method,
		ChallengeID: challengeID,
	}

	var code string
	switch p.account.Method {
	case MethodAuthenticator:
	case MethodEmail:
		code, err = internal.NewNumericCode(e.config.EmailCode.Digits)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
		}
		expiresAt := now.Add(e.config.EmailCode.TTL)
		record.CodeHash = internal.HashCode(code)
		record.CodeExpiresAt = expiresAt.UnixMilli()
		result.CodeExpiresAt = time.UnixMilli(record.CodeExpiresAt)
	default:
		return nil, ErrSecondFactorMisconfigured
	}

	if err := e.challenges.Save(ctx, challengeID, record, e.config.Challenge.TTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	fields := auditFields{accountID: p.account.ID, tenantID: p.tenantID, challengeID: challengeID}

	if p.account.Method == MethodEmail {
		if err := e.dispatchCode(ctx, p.account, code); err != nil {
			if _, derr := e.challenges.Delete(ctx, challengeID); derr != nil {
				e.logger.WarnContext(ctx, "authgate: challenge cleanup failed", "error", derr)
			}
			e.metricInc(MetricDispatchFailed)
			e.emitAudit(ctx, auditEventDispatchFailed, false, fields, err)
			return nil, err
		}
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, auditFields{
		accountID:   p.account.ID,
		tenantID:    p.tenantID,
		challengeID: challengeID,
		metadata: func() map[string]string {
			return map[string]string{"method": p.account.Method.String()}
		},
	}, nil)

	return result, nil
}

// ResendCode replaces the code of a pending email challenge and sends it
// again. The previous code stops working. A failed send keeps the challenge
// and returns ErrDispatchFailed, so the caller can retry.
func (e *Engine) ResendCode(ctx context.Context, challengeID string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "authgate.ResendCode")
	defer span.End()

	now := e.clock.Now()
	tenantID := tenantIDFromContext(ctx)

	if _, err := internal.ParseChallengeID(challengeID); err != nil {
		e.metricInc(MetricChallengeInvalid)
		return nil, spanError(span, ErrChallengeInvalid)
	}

	ch, err := e.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, spanError(span, e.mapChallengeError(err))
	}
	if ch.TenantID != tenantID {
		e.metricInc(MetricChallengeInvalid)
		return nil, spanError(span, ErrChallengeInvalid)
	}
	if Method(ch.Method) != MethodEmail {
		return nil, spanError(span, ErrResendNotSupported)
	}

	keys := attemptKeys{combined: ch.ThrottleKey, origin: ch.OriginKey}
	if err := e.checkThrottle(ctx, keys, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
		}
		return nil, spanError(span, err)
	}
	if err := e.checkResendBudget(ctx, keys, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
		}
		return nil, spanError(span, err)
	}

	account, err := e.accounts.GetAccountByID(ctx, tenantID, ch.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricChallengeInvalid)
			return nil, spanError(span, ErrChallengeInvalid)
		}
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err))
	}
	if account.Method != MethodEmail || !account.SecondFactorEnabled() {
		e.metricInc(MetricChallengeInvalid)
		return nil, spanError(span, ErrChallengeInvalid)
	}
	if err := account.Validate(); err != nil {
		return nil, spanError(span, err)
	}

	code, err := internal.NewNumericCode(e.config.EmailCode.Digits)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err))
	}
	expiresAt := time.UnixMilli(now.Add(e.config.EmailCode.TTL).UnixMilli())

	updated, err := e.challenges.ReplaceCode(ctx, challengeID, internal.HashCode(code), expiresAt)
	if err != nil {
		return nil, spanError(span, e.mapChallengeError(err))
	}

	fields := auditFields{
		accountID:   account.ID,
		tenantID:    tenantID,
		challengeID: challengeID,
		metadata: func() map[string]string {
			return map[string]string{"resends": strconv.Itoa(int(updated.Resends))}
		},
	}

	if err := e.dispatchCode(ctx, account, code); err != nil {
		e.metricInc(MetricDispatchFailed)
		e.emitAudit(ctx, auditEventDispatchFailed, false, fields, err)
		return nil, spanError(span, err)
	}

	if _, err := e.limiter.RecordResend(ctx, keys.combined, now); err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrThrottleUnavailable, err))
	}

	e.metricInc(MetricChallengeResent)
	e.emitAudit(ctx, auditEventChallengeResent, true, fields, nil)

	return &LoginResult{
		Status:        StatusChallengeRequired,
		Method:        MethodEmail,
		ChallengeID:   challengeID,
		CodeExpiresAt: expiresAt,
	}, nil
}

// dispatchCode hands code to the notifier under the dispatch timeout. The
// code itself is never logged.
func (e *Engine) dispatchCode(ctx context.Context, account Account, code string) error {
	if e.notifier == nil {
		e.logger.ErrorContext(ctx, "authgate: no notifier configured", "account_id", account.ID)
		return ErrDispatchFailed
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.config.EmailCode.DispatchTimeout)
	defer cancel()

	// A notifier that ignores sendCtx must not hold the login open, so the
	// send runs on its own goroutine and is abandoned at the deadline.
	done := make(chan error, 1)
	go func() {
		done <- e.notifier.SendCode(sendCtx, account.deliveryAddress(), code, e.config.EmailCode.TTL)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "authgate: code dispatch failed", "account_id", account.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return nil
}

func (e *Engine) mapChallengeError(err error) error {
	if errors.Is(err, stores.ErrChallengeNotFound) || errors.Is(err, stores.ErrChallengeCorrupt) {
		e.metricInc(MetricChallengeInvalid)
		return ErrChallengeInvalid
	}
	return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
}
