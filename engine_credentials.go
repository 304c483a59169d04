package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// verifyCredentials resolves identifier and checks secret. An unknown
// identifier spends a dummy hash so both misses cost the same.
func (e *Engine) verifyCredentials(ctx context.Context, tenantID, identifier, secret string) (Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		e.verifier.VerifyDummy(secret)
		return Account{}, ErrInvalidCredentials
	}

	account, err := e.accounts.GetAccountByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.verifier.VerifyDummy(secret)
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}

	ok, err := e.verifier.Verify(secret, account.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "authgate: unreadable password hash", "account_id", account.ID, "error", err)
		return Account{}, ErrInvalidCredentials
	}
	if !ok {
		return Account{}, ErrInvalidCredentials
	}
	if account.TenantID == "" {
		account.TenantID = tenantID
	}
	return account, nil
}
