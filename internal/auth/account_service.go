// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Pagination bounds for account listing.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Registration is the data needed to register an account with an initial
// password.
type Registration struct {
	Username          string
	Email             string
	Password          string
	PhoneNumber       *string
	PreferredLanguage string
}

// AccountService provides registration and account management over the
// AccountLookup seam.
type AccountService struct {
	accounts AccountLookup
	creds    CredentialStore
	hasher   PasswordHasher
	runner   *Runner
	logger   *slog.Logger
}

// NewAccountService creates an AccountService. All dependencies are required.
func NewAccountService(accounts AccountLookup, creds CredentialStore, hasher PasswordHasher, runner *Runner, logger *slog.Logger) (*AccountService, error) {
	if accounts == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("account lookup is required")
	}
	if creds == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if runner == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts: accounts,
		creds:    creds,
		hasher:   hasher,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Register creates an account and its initial credential in one flow.
func (s *AccountService) Register(ctx context.Context, reg Registration) (Account, error) {
	if err := ValidateUsername(reg.Username); err != nil {
		return Account{}, oops.Wrapf(ErrValidation, "%s", err.Error())
	}
	if reg.Password == "" {
		return Account{}, oops.Code("ACCOUNT_INVALID_PASSWORD").
			Wrapf(ErrValidation, "password cannot be empty")
	}

	var hash string
	if err := s.runner.Do(ctx, func() error {
		var err error
		hash, err = s.hasher.Hash(reg.Password)
		return err
	}); err != nil {
		return Account{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := s.accounts.Create(ctx, NewAccount{
		Username:          reg.Username,
		Email:             reg.Email,
		PhoneNumber:       reg.PhoneNumber,
		PreferredLanguage: reg.PreferredLanguage,
	})
	if err != nil {
		return Account{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			With("username", reg.Username).
			Wrap(err)
	}

	now := time.Now().UTC()
	cred := Credential{
		ID:           uuid.New(),
		AccountID:    account.ID,
		PasswordHash: hash,
		Algorithm:    HashAlgorithm,
		IsTemporary:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.creds.SaveCredential(ctx, cred); err != nil {
		return Account{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "save credential").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	s.logger.Info("account registered",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username))

	return account, nil
}

// List returns accounts paginated by limit/offset with an optional
// case-sensitive username substring filter.
func (s *AccountService) List(ctx context.Context, limit, offset int, search string) ([]Account, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var accounts []Account
	err := s.runner.Do(ctx, func() error {
		var err error
		accounts, err = s.accounts.FindAll(ctx, limit, offset, search)
		return err
	})
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(err)
	}
	return accounts, nil
}

// Get retrieves an account by id.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	var account Account
	err := s.runner.Do(ctx, func() error {
		var err error
		account, err = s.accounts.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Update applies partial changes to an account.
func (s *AccountService) Update(ctx context.Context, id uuid.UUID, changes AccountChanges) (Account, error) {
	var account Account
	err := s.runner.Do(ctx, func() error {
		var err error
		account, err = s.accounts.Update(ctx, id, changes)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.runner.Do(ctx, func() error {
		return s.accounts.Delete(ctx, id)
	})
}
