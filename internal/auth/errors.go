// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers branch with errors.Is;
// the HTTP layer maps each to a status code.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers every credential and token failure. Specific
	// token rejections (ErrTokenExpired and friends) wrap it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for structurally invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrServiceUnavailable is returned when the backing store is
	// unreachable or the bounded work pool is exhausted.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Token rejection reasons. Each wraps ErrUnauthorized so generic callers can
// treat them uniformly while clients that care (refresh on expiry, re-login
// on tamper) can tell them apart.
var (
	ErrTokenInvalid     = fmt.Errorf("token invalid: %w", ErrUnauthorized)
	ErrTokenExpired     = fmt.Errorf("token expired: %w", ErrUnauthorized)
	ErrTokenNotYetValid = fmt.Errorf("token not yet valid: %w", ErrUnauthorized)
	ErrTokenAudience    = fmt.Errorf("token audience mismatch: %w", ErrUnauthorized)
)
