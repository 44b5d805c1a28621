// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/auth"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("find by username includes credential", func(t *testing.T) {
		store := auth.NewMemoryStore()
		account, err := store.Create(ctx, auth.NewAccount{Username: "alice"})
		require.NoError(t, err)

		require.NoError(t, store.SaveCredential(ctx, auth.Credential{
			ID:           uuid.New(),
			AccountID:    account.ID,
			PasswordHash: "$argon2id$hash",
			Algorithm:    auth.HashAlgorithm,
		}))

		lookup, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, account.ID, lookup.Account.ID)
		require.NotNil(t, lookup.Credential)
		assert.Equal(t, "$argon2id$hash", lookup.Credential.PasswordHash)
	})

	t.Run("find by username without credential yields nil credential", func(t *testing.T) {
		store := auth.NewMemoryStore()
		_, err := store.Create(ctx, auth.NewAccount{Username: "bob"})
		require.NoError(t, err)

		lookup, err := store.FindByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Nil(t, lookup.Credential)
	})

	t.Run("username match is exact", func(t *testing.T) {
		store := auth.NewMemoryStore()
		_, err := store.Create(ctx, auth.NewAccount{Username: "alice"})
		require.NoError(t, err)

		_, err = store.FindByUsername(ctx, "Alice")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("save credential for unknown account fails", func(t *testing.T) {
		store := auth.NewMemoryStore()
		err := store.SaveCredential(ctx, auth.Credential{ID: uuid.New(), AccountID: uuid.New()})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("save credential replaces an existing one", func(t *testing.T) {
		store := auth.NewMemoryStore()
		account, err := store.Create(ctx, auth.NewAccount{Username: "alice"})
		require.NoError(t, err)

		first := auth.Credential{ID: uuid.New(), AccountID: account.ID, PasswordHash: "old"}
		require.NoError(t, store.SaveCredential(ctx, first))
		second := auth.Credential{ID: uuid.New(), AccountID: account.ID, PasswordHash: "new"}
		require.NoError(t, store.SaveCredential(ctx, second))

		lookup, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, lookup.Credential)
		assert.Equal(t, "new", lookup.Credential.PasswordHash)
	})

	t.Run("delete removes the credential too", func(t *testing.T) {
		store := auth.NewMemoryStore()
		account, err := store.Create(ctx, auth.NewAccount{Username: "alice"})
		require.NoError(t, err)
		require.NoError(t, store.SaveCredential(ctx, auth.Credential{ID: uuid.New(), AccountID: account.ID}))

		require.NoError(t, store.Delete(ctx, account.ID))

		_, err = store.FindByUsername(ctx, "alice")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("find all orders by creation time", func(t *testing.T) {
		store := auth.NewMemoryStore()
		for _, u := range []string{"alice", "bob", "carol"} {
			_, err := store.Create(ctx, auth.NewAccount{Username: u})
			require.NoError(t, err)
		}

		all, err := store.FindAll(ctx, 10, 0, "")
		require.NoError(t, err)
		require.Len(t, all, 3)

		// order is stable across calls
		again, err := store.FindAll(ctx, 10, 0, "")
		require.NoError(t, err)
		assert.Equal(t, all, again)
	})

	t.Run("offset past the end returns empty", func(t *testing.T) {
		store := auth.NewMemoryStore()
		_, err := store.Create(ctx, auth.NewAccount{Username: "alice"})
		require.NoError(t, err)

		got, err := store.FindAll(ctx, 10, 5, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("update unknown id is not found", func(t *testing.T) {
		store := auth.NewMemoryStore()
		_, err := store.Update(ctx, uuid.New(), auth.AccountChanges{})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
