// Package memory is an in-process authgate.AccountStore for tests and the
// demo server.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authgate"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Store keeps accounts in maps guarded by one RWMutex. Identifier lookups
// are case-folded and scoped per tenant.
type Store struct {
	mu           sync.RWMutex
	byID         map[string]authgate.Account
	byIdentifier map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:         make(map[string]authgate.Account),
		byIdentifier: make(map[string]string),
	}
}

func identifierKey(tenantID, identifier string) string {
	return tenantID + "\x00" + cases.Fold().String(identifier)
}

// Put inserts or replaces an account and returns its ID, assigning a new
// UUID when the account has none.
func (s *Store) Put(a authgate.Account) (string, error) {
	if a.Identifier == "" {
		return "", fmt.Errorf("memory: identifier required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TenantID == "" {
		a.TenantID = "0"
	}
	if a.TwoFactorConfirmedAt != nil {
		ts := *a.TwoFactorConfirmedAt
		a.TwoFactorConfirmedAt = &ts
	}

	key := identifierKey(a.TenantID, a.Identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byIdentifier[key]; ok && owner != a.ID {
		return "", fmt.Errorf("memory: identifier %q already taken", a.Identifier)
	}
	if prev, ok := s.byID[a.ID]; ok {
		delete(s.byIdentifier, identifierKey(prev.TenantID, prev.Identifier))
	}
	s.byID[a.ID] = a
	s.byIdentifier[key] = a.ID
	return a.ID, nil
}

// Delete removes an account. Missing accounts are ignored.
func (s *Store) Delete(tenantID, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok || a.TenantID != tenantID {
		return
	}
	delete(s.byID, accountID)
	delete(s.byIdentifier, identifierKey(a.TenantID, a.Identifier))
}

// GetAccountByIdentifier implements authgate.AccountStore.
func (s *Store) GetAccountByIdentifier(ctx context.Context, tenantID, identifier string) (authgate.Account, error) {
	if err := ctx.Err(); err != nil {
		return authgate.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentifier[identifierKey(tenantID, identifier)]
	if !ok {
		return authgate.Account{}, authgate.ErrAccountNotFound
	}
	return s.byID[id], nil
}

// GetAccountByID implements authgate.AccountStore.
func (s *Store) GetAccountByID(ctx context.Context, tenantID, accountID string) (authgate.Account, error) {
	if err := ctx.Err(); err != nil {
		return authgate.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok || a.TenantID != tenantID {
		return authgate.Account{}, authgate.ErrAccountNotFound
	}
	return a, nil
}

// SwapRecoveryCodes implements authgate.AccountStore.
func (s *Store) SwapRecoveryCodes(ctx context.Context, tenantID, accountID, expected, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok || a.TenantID != tenantID {
		return false, authgate.ErrAccountNotFound
	}
	if a.SealedRecoveryCodes != expected {
		return false, nil
	}
	a.SealedRecoveryCodes = next
	s.byID[accountID] = a
	return true, nil
}
