// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// ClaimSet is the structured payload carried inside a token. It is
// constructed fresh per issuance and immutable once issued; the core never
// persists it.
type ClaimSet struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Audience  string    `json:"aud"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf"`
	Expiry    time.Time `json:"exp"`
}

// NewClaimSet builds a ClaimSet valid from now for ttl, with a fresh random
// token id. Callers must not reuse a jti across issuances.
func NewClaimSet(issuer, subject, audience string, ttl time.Duration) (ClaimSet, error) {
	now := time.Now().UTC().Truncate(time.Second)
	c := ClaimSet{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  audience,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		NotBefore: now,
		Expiry:    now.Add(ttl),
	}
	if err := c.Validate(); err != nil {
		return ClaimSet{}, err
	}
	return c, nil
}

// Validate checks structural invariants: required fields present and
// issued_at <= not_before < expiry.
func (c ClaimSet) Validate() error {
	if c.Subject == "" {
		return oops.Code("CLAIMS_INVALID").Errorf("subject cannot be empty")
	}
	if c.TokenID == "" {
		return oops.Code("CLAIMS_INVALID").Errorf("token id cannot be empty")
	}
	if c.IssuedAt.IsZero() || c.NotBefore.IsZero() || c.Expiry.IsZero() {
		return oops.Code("CLAIMS_INVALID").Errorf("timestamps cannot be zero")
	}
	if c.IssuedAt.After(c.NotBefore) {
		return oops.Code("CLAIMS_INVALID").Errorf("issued_at must not be after not_before")
	}
	if !c.NotBefore.Before(c.Expiry) {
		return oops.Code("CLAIMS_INVALID").Errorf("not_before must be before expiry")
	}
	return nil
}
