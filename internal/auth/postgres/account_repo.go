// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package postgres implements auth.AccountLookup using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// DB is the pgx surface the repository needs. Satisfied by *pgxpool.Pool
// and by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountLookup and auth.CredentialStore
// using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, is_active, is_verified, phone_number,
	       status, last_login, two_factor_method, registration_date,
	       preferred_language, login_attempts, created_at, updated_at`

// FindAll returns accounts paginated by limit/offset, optionally filtered by
// case-sensitive username substring.
func (r *AccountRepository) FindAll(ctx context.Context, limit, offset int, search string) ([]auth.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts`
	args := []any{limit, offset}
	if search != "" {
		query += `
		WHERE username LIKE '%' || $3 || '%'`
		args = append(args, search)
	}
	query += `
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts"))
	}
	defer rows.Close()

	var accounts []auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr(err, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate account rows"))
	}
	return accounts, nil
}

// FindByID retrieves an account by id.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Account{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.Account{}, translateErr(err, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()))
	}
	return account, nil
}

// FindByUsername retrieves an account and its credential by exact username.
// The credential row is left-joined: an account without one comes back with
// a nil Credential, which is a valid state callers must handle.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (auth.LookupResult, error) {
	row := r.db.QueryRow(ctx, `
		SELECT a.id, a.username, a.email, a.is_active, a.is_verified, a.phone_number,
		       a.status, a.last_login, a.two_factor_method, a.registration_date,
		       a.preferred_language, a.login_attempts, a.created_at, a.updated_at,
		       c.id, c.account_id, c.password_hash, c.algorithm, c.is_temporary,
		       c.expiry, c.last_change_at, c.created_at, c.updated_at
		FROM accounts a
		LEFT JOIN credentials c ON c.account_id = a.id
		WHERE a.username = $1
	`, username)

	var (
		account auth.Account

		credID           *uuid.UUID
		credAccountID    *uuid.UUID
		credPasswordHash *string
		credAlgorithm    *string
		credIsTemporary  *bool
		credExpiry       *time.Time
		credLastChangeAt *time.Time
		credCreatedAt    *time.Time
		credUpdatedAt    *time.Time
	)

	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.IsActive,
		&account.IsVerified, &account.PhoneNumber, &account.Status,
		&account.LastLogin, &account.TwoFactorMethod, &account.RegistrationDate,
		&account.PreferredLanguage, &account.LoginAttempts,
		&account.CreatedAt, &account.UpdatedAt,
		&credID, &credAccountID, &credPasswordHash, &credAlgorithm,
		&credIsTemporary, &credExpiry, &credLastChangeAt,
		&credCreatedAt, &credUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.LookupResult{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.LookupResult{}, translateErr(err, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username))
	}

	result := auth.LookupResult{Account: account}
	if credID != nil && credPasswordHash != nil {
		result.Credential = &auth.Credential{
			ID:           *credID,
			AccountID:    *credAccountID,
			PasswordHash: *credPasswordHash,
			Algorithm:    derefOr(credAlgorithm, ""),
			IsTemporary:  derefOr(credIsTemporary, false),
			Expiry:       credExpiry,
			LastChangeAt: credLastChangeAt,
			CreatedAt:    derefOr(credCreatedAt, time.Time{}),
			UpdatedAt:    derefOr(credUpdatedAt, time.Time{}),
		}
	}
	return result, nil
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, data auth.NewAccount) (auth.Account, error) {
	now := time.Now().UTC()
	account := auth.Account{
		ID:                uuid.New(),
		Username:          data.Username,
		Email:             data.Email,
		PhoneNumber:       data.PhoneNumber,
		IsActive:          true,
		Status:            auth.StatusActive,
		TwoFactorMethod:   auth.TwoFactorNone,
		RegistrationDate:  now,
		PreferredLanguage: data.PreferredLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, username, email, is_active, is_verified, phone_number,
			status, two_factor_method, registration_date,
			preferred_language, login_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		account.ID,
		account.Username,
		account.Email,
		account.IsActive,
		account.IsVerified,
		account.PhoneNumber,
		account.Status,
		account.TwoFactorMethod,
		account.RegistrationDate,
		account.PreferredLanguage,
		account.LoginAttempts,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return auth.Account{}, translateErr(err, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username))
	}
	return account, nil
}

// Update applies partial changes to an account.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, changes auth.AccountChanges) (auth.Account, error) {
	set := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.PhoneNumber != nil {
		add("phone_number", changes.PhoneNumber)
	}
	if changes.PreferredLanguage != nil {
		add("preferred_language", *changes.PreferredLanguage)
	}
	if changes.Status != nil {
		add("status", *changes.Status)
	}
	if changes.IsActive != nil {
		add("is_active", *changes.IsActive)
	}
	if changes.IsVerified != nil {
		add("is_verified", *changes.IsVerified)
	}
	if changes.TwoFactorMethod != nil {
		add("two_factor_method", *changes.TwoFactorMethod)
	}
	if changes.LastLogin != nil {
		add("last_login", *changes.LastLogin)
	}
	if changes.LoginAttempts != nil {
		add("login_attempts", *changes.LoginAttempts)
	}

	query := `
		UPDATE accounts
		SET ` + strings.Join(set, ", ") + `
		WHERE id = $1
		RETURNING ` + accountColumns

	row := r.db.QueryRow(ctx, query, args...)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Account{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.Account{}, translateErr(err, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()))
	}
	return account, nil
}

// Delete removes an account. Credentials go with it via ON DELETE CASCADE.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SaveCredential inserts or replaces the credential for cred.AccountID.
func (r *AccountRepository) SaveCredential(ctx context.Context, cred auth.Credential) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO credentials (
			id, account_id, password_hash, algorithm, is_temporary,
			expiry, last_change_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			algorithm = EXCLUDED.algorithm,
			is_temporary = EXCLUDED.is_temporary,
			expiry = EXCLUDED.expiry,
			last_change_at = EXCLUDED.last_change_at,
			updated_at = EXCLUDED.updated_at
	`,
		cred.ID,
		cred.AccountID,
		cred.PasswordHash,
		cred.Algorithm,
		cred.IsTemporary,
		cred.Expiry,
		cred.LastChangeAt,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", cred.AccountID.String()).
				Wrap(auth.ErrNotFound)
		}
		return translateErr(err, oops.Code("CREDENTIAL_SAVE_FAILED").
			With("operation", "upsert credential").
			With("account_id", cred.AccountID.String()))
	}
	return nil
}

// scanAccount reads one accounts row.
func scanAccount(row pgx.Row) (auth.Account, error) {
	var account auth.Account
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.IsActive,
		&account.IsVerified, &account.PhoneNumber, &account.Status,
		&account.LastLogin, &account.TwoFactorMethod, &account.RegistrationDate,
		&account.PreferredLanguage, &account.LoginAttempts,
		&account.CreatedAt, &account.UpdatedAt,
	)
	return account, err
}

// translateErr maps driver failures into the boundary taxonomy: anything
// that smells like an unreachable or overloaded backend becomes
// ErrServiceUnavailable, everything else keeps its cause.
func translateErr(err error, builder oops.OopsErrorBuilder) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)) {
		return builder.Wrapf(auth.ErrServiceUnavailable, "database unavailable: %s", pgErr.Code)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return builder.Wrapf(auth.ErrServiceUnavailable, "database unreachable: %v", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return builder.Wrapf(auth.ErrServiceUnavailable, "database timeout: %v", err)
	}

	return builder.Wrap(err)
}

func derefOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
