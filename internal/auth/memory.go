// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// MemoryStore is an in-memory AccountLookup and CredentialStore. It backs
// tests and lets the authentication core run without a database.
type MemoryStore struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]Account
	credentials map[uuid.UUID]Credential // keyed by account id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[uuid.UUID]Account),
		credentials: make(map[uuid.UUID]Credential),
	}
}

// FindAll returns accounts ordered by creation time, paginated, optionally
// filtered by case-sensitive username substring.
func (m *MemoryStore) FindAll(_ context.Context, limit, offset int, search string) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if search != "" && !strings.Contains(a.Username, search) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Account{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// FindByID retrieves an account by id.
func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return Account{}, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	return account, nil
}

// FindByUsername retrieves an account and its credential by exact username.
func (m *MemoryStore) FindByUsername(_ context.Context, username string) (LookupResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if a.Username != username {
			continue
		}
		result := LookupResult{Account: a}
		if cred, ok := m.credentials[a.ID]; ok {
			c := cred
			result.Credential = &c
		}
		return result, nil
	}
	return LookupResult{}, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(ErrNotFound)
}

// Create stores a new account.
func (m *MemoryStore) Create(_ context.Context, data NewAccount) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	account := Account{
		ID:                uuid.New(),
		Username:          data.Username,
		Email:             data.Email,
		PhoneNumber:       data.PhoneNumber,
		IsActive:          true,
		Status:            StatusActive,
		TwoFactorMethod:   TwoFactorNone,
		RegistrationDate:  now,
		PreferredLanguage: data.PreferredLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.accounts[account.ID] = account
	return account, nil
}

// Update applies partial changes to an account.
func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, changes AccountChanges) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return Account{}, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}

	if changes.Email != nil {
		account.Email = *changes.Email
	}
	if changes.PhoneNumber != nil {
		account.PhoneNumber = changes.PhoneNumber
	}
	if changes.PreferredLanguage != nil {
		account.PreferredLanguage = *changes.PreferredLanguage
	}
	if changes.Status != nil {
		account.Status = *changes.Status
	}
	if changes.IsActive != nil {
		account.IsActive = *changes.IsActive
	}
	if changes.IsVerified != nil {
		account.IsVerified = *changes.IsVerified
	}
	if changes.TwoFactorMethod != nil {
		account.TwoFactorMethod = *changes.TwoFactorMethod
	}
	if changes.LastLogin != nil {
		t := *changes.LastLogin
		account.LastLogin = &t
	}
	if changes.LoginAttempts != nil {
		account.LoginAttempts = *changes.LoginAttempts
	}
	account.UpdatedAt = time.Now().UTC()

	m.accounts[id] = account
	return account, nil
}

// Delete removes an account and its credential.
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	delete(m.accounts, id)
	delete(m.credentials, id)
	return nil
}

// SaveCredential inserts or replaces the credential for cred.AccountID.
func (m *MemoryStore) SaveCredential(_ context.Context, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[cred.AccountID]; !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", cred.AccountID.String()).
			Wrap(ErrNotFound)
	}
	m.credentials[cred.AccountID] = cred
	return nil
}
