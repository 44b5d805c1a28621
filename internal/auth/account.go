// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusLocked    AccountStatus = "locked"
	StatusSuspended AccountStatus = "suspended"
	StatusDeleted   AccountStatus = "deleted"
)

// TwoFactorMethod is the second-factor channel configured on an account.
type TwoFactorMethod string

const (
	TwoFactorNone     TwoFactorMethod = "none"
	TwoFactorEmail    TwoFactorMethod = "email"
	TwoFactorWhatsapp TwoFactorMethod = "whatsapp"
	TwoFactorTOTP     TwoFactorMethod = "totp"
	TwoFactorSMS      TwoFactorMethod = "sms"
)

// Account represents a stored account.
type Account struct {
	ID                uuid.UUID
	Username          string
	Email             string
	IsActive          bool
	IsVerified        bool
	PhoneNumber       *string
	Status            AccountStatus
	LastLogin         *time.Time
	TwoFactorMethod   TwoFactorMethod
	RegistrationDate  time.Time
	PreferredLanguage string
	LoginAttempts     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Credential is an account's password credential. It is owned exclusively by
// its account and never contains a plaintext password: PasswordHash is a
// self-describing hash string carrying algorithm, cost, and salt.
type Credential struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	PasswordHash string
	Algorithm    string
	IsTemporary  bool
	Expiry       *time.Time
	LastChangeAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LookupResult pairs an account with its credential. Credential is nil when
// the account has no credential row yet; callers must handle that, not
// assume it.
type LookupResult struct {
	Account    Account
	Credential *Credential
}

// NewAccount is the data needed to create an account.
type NewAccount struct {
	Username          string
	Email             string
	PhoneNumber       *string
	PreferredLanguage string
}

// AccountChanges carries partial updates to an account. Nil fields are left
// unchanged.
type AccountChanges struct {
	Email             *string
	PhoneNumber       *string
	PreferredLanguage *string
	Status            *AccountStatus
	IsActive          *bool
	IsVerified        *bool
	TwoFactorMethod   *TwoFactorMethod
	LastLogin         *time.Time
	LoginAttempts     *int
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// AccountLookup is the storage-agnostic contract for account retrieval and
// management. Implementations translate backend failures into ErrNotFound or
// ErrServiceUnavailable at this boundary; nothing above it sees a driver
// error.
type AccountLookup interface {
	// FindAll returns accounts paginated by limit/offset. A non-empty
	// search filters by case-sensitive username substring.
	FindAll(ctx context.Context, limit, offset int, search string) ([]Account, error)

	// FindByID retrieves an account by id. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)

	// FindByUsername retrieves an account and its credential by exact
	// username. Returns ErrNotFound if no account matches; a matching
	// account without a credential row yields a nil Credential.
	FindByUsername(ctx context.Context, username string) (LookupResult, error)

	// Create stores a new account.
	Create(ctx context.Context, data NewAccount) (Account, error)

	// Update applies partial changes to an account. Returns ErrNotFound if
	// the id is absent.
	Update(ctx context.Context, id uuid.UUID, changes AccountChanges) (Account, error)

	// Delete removes an account. Returns ErrNotFound if the id is absent.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CredentialStore persists credentials alongside an AccountLookup. Kept as a
// separate seam so the authentication path depends only on lookups.
type CredentialStore interface {
	// SaveCredential inserts or replaces the credential for
	// cred.AccountID. Returns ErrNotFound if the account is absent.
	SaveCredential(ctx context.Context, cred Credential) error
}
