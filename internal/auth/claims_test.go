// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/auth"
)

func TestNewClaimSet(t *testing.T) {
	t.Run("populates all fields", func(t *testing.T) {
		c, err := auth.NewClaimSet("accountd", "user-1", "accountd", 15*time.Minute)
		require.NoError(t, err)

		assert.Equal(t, "accountd", c.Issuer)
		assert.Equal(t, "user-1", c.Subject)
		assert.Equal(t, "accountd", c.Audience)
		assert.NotEmpty(t, c.TokenID)
		assert.Equal(t, c.IssuedAt, c.NotBefore)
		assert.Equal(t, c.NotBefore.Add(15*time.Minute), c.Expiry)
	})

	t.Run("fresh token id per call", func(t *testing.T) {
		c1, err := auth.NewClaimSet("accountd", "user-1", "accountd", time.Minute)
		require.NoError(t, err)
		c2, err := auth.NewClaimSet("accountd", "user-1", "accountd", time.Minute)
		require.NoError(t, err)
		assert.NotEqual(t, c1.TokenID, c2.TokenID)
	})

	t.Run("rejects empty subject", func(t *testing.T) {
		_, err := auth.NewClaimSet("accountd", "", "accountd", time.Minute)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		_, err := auth.NewClaimSet("accountd", "user-1", "accountd", 0)
		assert.Error(t, err)
		_, err = auth.NewClaimSet("accountd", "user-1", "accountd", -time.Minute)
		assert.Error(t, err)
	})
}

func TestClaimSetValidate(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	valid := auth.ClaimSet{
		Issuer:    "accountd",
		Subject:   "user-1",
		Audience:  "accountd",
		TokenID:   "jti-1",
		IssuedAt:  now,
		NotBefore: now,
		Expiry:    now.Add(time.Hour),
	}

	t.Run("accepts valid claims", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("accepts issued_at before not_before", func(t *testing.T) {
		c := valid
		c.IssuedAt = now.Add(-time.Minute)
		assert.NoError(t, c.Validate())
	})

	t.Run("rejects missing token id", func(t *testing.T) {
		c := valid
		c.TokenID = ""
		assert.Error(t, c.Validate())
	})

	t.Run("rejects zero timestamps", func(t *testing.T) {
		c := valid
		c.IssuedAt = time.Time{}
		assert.Error(t, c.Validate())
	})

	t.Run("rejects issued_at after not_before", func(t *testing.T) {
		c := valid
		c.IssuedAt = now.Add(time.Minute)
		assert.Error(t, c.Validate())
	})

	t.Run("rejects not_before equal to expiry", func(t *testing.T) {
		c := valid
		c.Expiry = c.NotBefore
		assert.Error(t, c.Validate())
	})
}
