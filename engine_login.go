package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/stores"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pendingLogin is a login that passed the credential check and still owes a
// second factor.
type pendingLogin struct {
	account  Account
	tenantID string
	keys     attemptKeys
	remember bool
}

// Login checks the throttle, then the credentials, then decides whether a
// second factor is owed.
//
// Accounts without a confirmed second factor are authenticated directly and
// no challenge state is written. Otherwise a challenge is issued, unless the
// request already carries a recovery code, or a code for an authenticator
// account, in which case it is verified inline.
//
// Failures are reported only through the error: *RateLimitError,
// ErrInvalidCredentials, ErrDispatchFailed, or a *FieldError for inline
// second-factor input.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "authgate.Login")
	defer span.End()

	started := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricLoginLatency, time.Since(started))
		}
	}()

	now := e.clock.Now()
	tenantID := tenantIDFromContext(ctx)
	keys := e.attemptKeysFor(ctx, tenantID, req.Identifier)

	if err := e.checkThrottle(ctx, keys, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, auditFields{tenantID: tenantID}, err)
		}
		return nil, spanError(span, err)
	}

	account, err := e.verifyCredentials(ctx, tenantID, req.Identifier, req.Secret)
	if err != nil {
		if countsAgainstThrottle(err) {
			if rerr := e.recordFailure(ctx, keys, now); rerr != nil {
				return nil, spanError(span, rerr)
			}
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, auditFields{tenantID: tenantID}, err)
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("authgate.method", account.Method.String()))

	if !account.SecondFactorEnabled() {
		e.clearThrottle(ctx, keys)
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, auditFields{accountID: account.ID, tenantID: tenantID}, nil)
		return &LoginResult{Status: StatusAuthenticated, Account: &account, Remember: req.Remember}, nil
	}

	if err := account.Validate(); err != nil {
		e.logger.ErrorContext(ctx, "authgate: second factor misconfigured", "account_id", account.ID, "error", err)
		e.emitAudit(ctx, auditEventLoginFailure, false, auditFields{accountID: account.ID, tenantID: tenantID}, err)
		return nil, spanError(span, err)
	}

	pending := pendingLogin{account: account, tenantID: tenantID, keys: keys, remember: req.Remember}

	if req.RecoveryCode != "" || (req.Code != "" && account.Method == MethodAuthenticator) {
		res, err := e.completeSecondFactor(ctx, pending, nil, "", req.Code, req.RecoveryCode, now)
		return res, spanError(span, err)
	}

	res, err := e.issueChallenge(ctx, pending, now)
	return res, spanError(span, err)
}

// VerifySecondFactor answers a pending challenge with a code or a recovery
// code. The challenge is consumed whatever the outcome; a failed attempt
// sends the caller back to Login.
func (e *Engine) VerifySecondFactor(ctx context.Context, req SecondFactorRequest) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "authgate.VerifySecondFactor")
	defer span.End()

	now := e.clock.Now()
	tenantID := tenantIDFromContext(ctx)
	field := FieldCode
	if req.RecoveryCode != "" {
		field = FieldRecoveryCode
	}

	if _, err := internal.ParseChallengeID(req.ChallengeID); err != nil {
		return nil, spanError(span, e.challengeGone(ctx, tenantID, req.ChallengeID, field))
	}

	ch, err := e.challenges.Take(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) || errors.Is(err, stores.ErrChallengeCorrupt) {
			return nil, spanError(span, e.challengeGone(ctx, tenantID, req.ChallengeID, field))
		}
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err))
	}
	if ch.TenantID != tenantID {
		return nil, spanError(span, e.challengeGone(ctx, tenantID, req.ChallengeID, field))
	}

	keys := attemptKeys{combined: ch.ThrottleKey, origin: ch.OriginKey}
	if err := e.checkThrottle(ctx, keys, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, auditFields{
				accountID:   ch.AccountID,
				tenantID:    tenantID,
				challengeID: req.ChallengeID,
			}, err)
		}
		return nil, spanError(span, err)
	}

	account, err := e.accounts.GetAccountByID(ctx, tenantID, ch.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, spanError(span, e.challengeGone(ctx, tenantID, req.ChallengeID, field))
		}
		return nil, spanError(span, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err))
	}

	// The second factor was removed or switched while the challenge was open.
	if !account.SecondFactorEnabled() || (req.RecoveryCode == "" && account.Method != Method(ch.Method)) {
		return nil, spanError(span, e.challengeGone(ctx, tenantID, req.ChallengeID, field))
	}
	if err := account.Validate(); err != nil {
		e.logger.ErrorContext(ctx, "authgate: second factor misconfigured", "account_id", account.ID, "error", err)
		return nil, spanError(span, err)
	}

	pending := pendingLogin{account: account, tenantID: tenantID, keys: keys, remember: ch.Remember}
	res, err := e.completeSecondFactor(ctx, pending, ch, req.ChallengeID, req.Code, req.RecoveryCode, now)
	return res, spanError(span, err)
}

// completeSecondFactor verifies the submitted factor and settles the throttle.
func (e *Engine) completeSecondFactor(
	ctx context.Context,
	p pendingLogin,
	ch *stores.Challenge,
	challengeID string,
	code string,
	recoveryCode string,
	now time.Time,
) (*LoginResult, error) {
	fields := auditFields{accountID: p.account.ID, tenantID: p.tenantID, challengeID: challengeID}

	err := e.verifySecondFactor(ctx, p, ch, code, recoveryCode, now)
	if err != nil {
		if countsAgainstThrottle(err) {
			if rerr := e.recordFailure(ctx, p.keys, now); rerr != nil {
				return nil, rerr
			}
		}
		e.metricInc(MetricSecondFactorFailure)
		e.emitAudit(ctx, auditEventSecondFactorFailed, false, fields, err)
		return nil, err
	}

	e.clearThrottle(ctx, p.keys)
	e.metricInc(MetricSecondFactorSuccess)
	e.emitAudit(ctx, auditEventSecondFactorOK, true, fields, nil)

	account := p.account
	return &LoginResult{Status: StatusAuthenticated, Account: &account, Remember: p.remember}, nil
}

// challengeGone reports a missing, expired or used challenge. For code
// submissions it matches ErrInvalidOrExpiredCode as well, so an expired
// challenge looks the same as a wrong code.
func (e *Engine) challengeGone(ctx context.Context, tenantID, challengeID, field string) error {
	e.metricInc(MetricChallengeInvalid)

	err := ErrChallengeInvalid
	if field == FieldCode {
		err = fmt.Errorf("%w: %w", ErrInvalidOrExpiredCode, ErrChallengeInvalid)
	}
	err = fieldError(field, err)

	e.emitAudit(ctx, auditEventSecondFactorFailed, false, auditFields{tenantID: tenantID, challengeID: challengeID}, err)
	return err
}

func spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
