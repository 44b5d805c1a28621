// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// TokenTypeBearer is the token type label returned with every AuthResult.
const TokenTypeBearer = "Bearer"

// RefreshAudienceSuffix marks refresh tokens with a distinct audience so
// they fail the access-token audience check when presented where an access
// token is expected.
const RefreshAudienceSuffix = ".refresh"

// dummyPasswordHash is verified against when no account or credential
// exists, so the response time does not reveal which usernames are real.
// This is NOT a real credential; it never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// ServiceConfig carries the token issuance settings for a Service.
type ServiceConfig struct {
	Issuer     string        // iss claim
	Audience   string        // aud claim on access tokens
	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
}

// AuthResult is the outcome of a successful authentication. Ephemeral:
// returned once, never persisted.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // absolute access-token expiry, epoch seconds
	TokenType    string
}

// Service answers "given username+password, issue tokens or fail".
type Service struct {
	accounts AccountLookup
	hasher   PasswordHasher
	issuer   *TokenIssuer
	runner   *Runner
	cfg      ServiceConfig
	logger   *slog.Logger
}

// NewService creates a Service. All dependencies are required.
func NewService(accounts AccountLookup, hasher PasswordHasher, issuer *TokenIssuer, runner *Runner, cfg ServiceConfig, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("account lookup is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token issuer is required")
	}
	if runner == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("runner is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token TTLs must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		issuer:   issuer,
		runner:   runner,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// errInvalidCredentials is the single collapsed failure for "no such user",
// "user has no credential", and "wrong password". Callers must not be able
// to tell these apart (username enumeration).
func errInvalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		Wrapf(ErrUnauthorized, "invalid username or password")
}

// Authenticate verifies the password for username and issues an access and
// refresh token pair. There is no partial-success state: any failure short
// of a storage outage collapses to the same generic unauthorized error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	var lookup LookupResult
	lookupErr := s.runner.Do(ctx, func() error {
		var err error
		lookup, err = s.accounts.FindByUsername(ctx, username)
		return err
	})

	// Pick the hash to verify against. Missing account and missing
	// credential row both fall through to the dummy hash so verification
	// cost, and therefore response time, stays uniform.
	targetHash := dummyPasswordHash
	accountKnown := false

	switch {
	case lookupErr == nil && lookup.Credential != nil:
		targetHash = lookup.Credential.PasswordHash
		accountKnown = true
	case lookupErr == nil:
		// account exists without a credential row
	case errors.Is(lookupErr, ErrNotFound):
		// fall through to dummy verification
	default:
		return AuthResult{}, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "find account by username").
			Wrap(lookupErr)
	}

	var valid bool
	if err := s.runner.Do(ctx, func() error {
		valid = s.hasher.Verify(password, targetHash)
		return nil
	}); err != nil {
		return AuthResult{}, err
	}

	if !accountKnown || !valid {
		if lookupErr == nil {
			s.recordFailure(ctx, lookup.Account)
		}
		return AuthResult{}, errInvalidCredentials()
	}

	account := lookup.Account
	s.recordSuccess(ctx, account)

	access, err := s.issueToken(account, s.cfg.Audience, s.cfg.AccessTTL)
	if err != nil {
		return AuthResult{}, err
	}
	refresh, err := s.issueToken(account, s.cfg.Audience+RefreshAudienceSuffix, s.cfg.RefreshTTL)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  access.token,
		RefreshToken: refresh.token,
		ExpiresAt:    access.claims.Expiry.Unix(),
		TokenType:    TokenTypeBearer,
	}, nil
}

type issued struct {
	token  string
	claims ClaimSet
}

// issueToken builds a fresh ClaimSet for the account and seals it. Each call
// draws a new jti; access and refresh tokens are constructed identically
// apart from audience and TTL.
func (s *Service) issueToken(account Account, audience string, ttl time.Duration) (issued, error) {
	claims, err := NewClaimSet(s.cfg.Issuer, account.ID.String(), audience, ttl)
	if err != nil {
		return issued{}, oops.Code("AUTH_ISSUE_FAILED").Wrap(err)
	}
	token, err := s.issuer.Issue(claims)
	if err != nil {
		return issued{}, oops.Code("AUTH_ISSUE_FAILED").Wrap(err)
	}
	return issued{token: token, claims: claims}, nil
}

// recordFailure bumps the failed-attempt counter. Best effort: the login
// outcome does not change if bookkeeping fails.
func (s *Service) recordFailure(ctx context.Context, account Account) {
	attempts := account.LoginAttempts + 1
	if _, err := s.accounts.Update(ctx, account.ID, AccountChanges{LoginAttempts: &attempts}); err != nil {
		s.logger.Debug("login failure bookkeeping skipped",
			slog.String("account_id", account.ID.String()),
			slog.Any("error", err))
	}
}

// recordSuccess stamps last_login and resets the failure counter. Best
// effort, same as recordFailure.
func (s *Service) recordSuccess(ctx context.Context, account Account) {
	now := time.Now().UTC()
	zero := 0
	if _, err := s.accounts.Update(ctx, account.ID, AccountChanges{LastLogin: &now, LoginAttempts: &zero}); err != nil {
		s.logger.Debug("login success bookkeeping skipped",
			slog.String("account_id", account.ID.String()),
			slog.Any("error", err))
	}
}
