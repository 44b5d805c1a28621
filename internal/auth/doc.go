// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package auth provides the authentication core for accountd.
//
// # Domain Types
//
// Account and Credential model the stored account and its password
// credential. A Credential never carries a plaintext password; only the
// self-describing argon2id hash string is stored. ClaimSet is the structured
// payload carried inside an issued token and is immutable once issued.
//
// # Services
//
// Service answers "given username+password, issue tokens or fail" by
// composing an AccountLookup, a PasswordHasher, and a TokenIssuer.
// AccountService provides registration and account management on top of the
// same AccountLookup seam.
//
// Expensive hashing and blocking storage calls are admitted through a
// bounded Runner so a flood of login attempts cannot starve unrelated work.
package auth
