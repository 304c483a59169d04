package authgate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/MrEthical07/authgate/recovery"
)

// verifySecondFactor checks one submitted factor. A recovery code wins over
// a code when both are present.
func (e *Engine) verifySecondFactor(
	ctx context.Context,
	p pendingLogin,
	ch *stores.Challenge,
	code string,
	recoveryCode string,
	now time.Time,
) error {
	if recoveryCode != "" {
		return e.consumeRecoveryCode(ctx, p, recoveryCode)
	}

	switch p.account.Method {
	case MethodAuthenticator:
		return e.verifyAuthenticatorCode(ctx, p.account, code, now)
	case MethodEmail:
		return e.verifyEmailCode(ch, code, now)
	default:
		return ErrSecondFactorMisconfigured
	}
}

func (e *Engine) verifyAuthenticatorCode(ctx context.Context, account Account, code string, now time.Time) error {
	secret, err := e.sealer.OpenString(account.SealedTOTPSecret)
	if err != nil {
		e.logger.ErrorContext(ctx, "authgate: authenticator secret unreadable", "account_id", account.ID, "error", err)
		return fmt.Errorf("%w: authenticator secret unreadable", ErrSecondFactorMisconfigured)
	}

	ok, widened := e.totp.verify(secret, code, now)
	if !ok {
		return fieldError(FieldCode, ErrInvalidOrExpiredCode)
	}
	if widened {
		e.metricInc(MetricTOTPFallbackAccepted)
		e.logger.InfoContext(ctx, "authgate: authenticator code accepted by fallback window", "account_id", account.ID)
	}
	return nil
}

func (e *Engine) verifyEmailCode(ch *stores.Challenge, code string, now time.Time) error {
	if ch == nil {
		return fieldError(FieldCode, ErrInvalidOrExpiredCode)
	}

	ok := flows.CheckEmailCode(flows.EmailCodeCheck{
		StoredHash: ch.CodeHash,
		HasCode:    ch.HasCode(),
		ExpiresAt:  time.UnixMilli(ch.CodeExpiresAt),
	}, code, now, internal.HashCode)
	if !ok {
		return fieldError(FieldCode, ErrInvalidOrExpiredCode)
	}
	return nil
}

// consumeRecoveryCode redeems one recovery code. The account's collection is
// re-read from the store between swap attempts.
func (e *Engine) consumeRecoveryCode(ctx context.Context, p pendingLogin, code string) error {
	accountID := p.account.ID
	tenantID := p.tenantID

	left, err := flows.RunConsumeRecoveryCode(ctx, p.account.SealedRecoveryCodes, code, flows.RecoveryDeps{
		MaxSwapRetries: e.config.RecoveryCodes.MaxSwapRetries,
		LoadSealed: func(ctx context.Context) (string, error) {
			account, err := e.accounts.GetAccountByID(ctx, tenantID, accountID)
			if err != nil {
				return "", err
			}
			return account.SealedRecoveryCodes, nil
		},
		Open: func(sealed string) (*recovery.Set, error) {
			return recovery.Open(e.sealer, sealed)
		},
		Seal: func(set *recovery.Set) (string, error) {
			return recovery.Seal(e.sealer, set)
		},
		Swap: func(ctx context.Context, expected, next string) (bool, error) {
			return e.accounts.SwapRecoveryCodes(ctx, tenantID, accountID, expected, next)
		},
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		Metrics: flows.RecoveryMetrics{
			RecoveryCodeUsed:     int(MetricRecoveryCodeUsed),
			RecoveryCodeFailed:   int(MetricRecoveryCodeFailed),
			RecoveryCodeConflict: int(MetricRecoveryCodeConflict),
		},
		Errors: flows.RecoveryErrors{
			EngineNotReady:   ErrEngineNotReady,
			NotConfigured:    fieldError(FieldRecoveryCode, ErrNoRecoveryCodesConfigured),
			Invalid:          fieldError(FieldRecoveryCode, ErrInvalidRecoveryCode),
			Conflict:         fieldError(FieldRecoveryCode, ErrRecoveryCodeConflict),
			Misconfigured:    fmt.Errorf("%w: recovery codes unreadable", ErrSecondFactorMisconfigured),
			StoreUnavailable: ErrAccountStoreUnavailable,
		},
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventRecoveryCodeUsed, true, auditFields{
		accountID: accountID,
		tenantID:  tenantID,
		metadata: func() map[string]string {
			return map[string]string{"remaining": fmt.Sprint(left)}
		},
	}, nil)
	if left == 0 {
		e.logger.WarnContext(ctx, "authgate: last recovery code used", "account_id", accountID)
	}
	return nil
}
