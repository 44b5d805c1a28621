// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
)

// Token wire format: v1.local.<b64url(nonce || ciphertext)>.<b64url(footer)>
//
// The payload is a JSON-serialized ClaimSet sealed with XChaCha20-Poly1305.
// Header, footer, and a fixed assertion string are bound as associated data,
// so a token minted for another context or with a doctored footer fails
// authentication as a unit. The footer itself is plaintext JSON carrying the
// key identifier, letting a validator pick the right key during rotation
// without trial-decryption.
const (
	TokenPrefix = "v1.local."

	// implicitAssertion binds tokens to this protocol context. A token
	// sealed under the same key for a different context cannot be replayed
	// here.
	implicitAssertion = "accountd.token.v1"
)

// SecretKeySize is the required symmetric secret length in bytes.
const SecretKeySize = chacha20poly1305.KeySize

var b64 = base64.RawURLEncoding

// tokenFooter is the unencrypted footer attached to every token.
type tokenFooter struct {
	KeyID string `json:"kid"`
}

// TokenStatus is the outcome tag of token validation.
type TokenStatus int

// Validation outcomes. Every rejection is distinguishable: clients retry a
// refresh on TokenExpired but force re-login on TokenInvalid.
const (
	TokenValid TokenStatus = iota
	TokenInvalid
	TokenExpired
	TokenNotYetValid
	TokenAudienceMismatch
)

// StatusOf maps a Validate error to its outcome tag. A nil error is TokenValid.
func StatusOf(err error) TokenStatus {
	switch {
	case err == nil:
		return TokenValid
	case errors.Is(err, ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return TokenNotYetValid
	case errors.Is(err, ErrTokenAudience):
		return TokenAudienceMismatch
	default:
		return TokenInvalid
	}
}

// DeriveKeyID computes the public identifier of a secret key. It is safe to
// expose: derivation is one-way and domain-separated from any key usage.
func DeriveKeyID(secret []byte) string {
	h := sha256.New()
	h.Write([]byte("accountd.kid.v1"))
	h.Write(secret)
	return "k1." + b64.EncodeToString(h.Sum(nil)[:16])
}

// TokenIssuer serializes and authenticated-encrypts ClaimSets into opaque
// token strings under a process-wide symmetric secret. The secret is fixed
// at construction and never re-read.
type TokenIssuer struct {
	aead   cipher.AEAD
	footer []byte
	keyID  string
}

// NewTokenIssuer creates a TokenIssuer. The secret must be exactly
// SecretKeySize bytes; anything else is a construction error so a
// misconfigured process fails at startup, not at first issuance.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	aead, keyID, err := newTokenAEAD(secret)
	if err != nil {
		return nil, err
	}

	footer, err := json.Marshal(tokenFooter{KeyID: keyID})
	if err != nil {
		return nil, oops.Code("TOKEN_FOOTER_FAILED").Wrap(err)
	}

	return &TokenIssuer{aead: aead, footer: footer, keyID: keyID}, nil
}

// KeyID returns the public identifier of the issuing key.
func (i *TokenIssuer) KeyID() string {
	return i.keyID
}

// Issue seals the claims into an opaque token string.
func (i *TokenIssuer) Issue(c ClaimSet) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("operation", "marshal claims").Wrap(err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("operation", "generate nonce").Wrap(err)
	}

	sealed := i.aead.Seal(nil, nonce, payload, tokenAAD(nonce, i.footer))

	var sb strings.Builder
	sb.WriteString(TokenPrefix)
	sb.WriteString(b64.EncodeToString(append(nonce, sealed...)))
	sb.WriteByte('.')
	sb.WriteString(b64.EncodeToString(i.footer))
	return sb.String(), nil
}

// TokenValidator authenticates and decrypts tokens, then applies the ordered
// claim checks. Each call is a pure function of its inputs and the immutable
// secret; no locks are required.
type TokenValidator struct {
	aead     cipher.AEAD
	keyID    string
	audience string
	now      func() time.Time
}

// NewTokenValidator creates a TokenValidator that accepts tokens sealed
// under secret and addressed to the expected audience.
func NewTokenValidator(secret []byte, audience string) (*TokenValidator, error) {
	aead, keyID, err := newTokenAEAD(secret)
	if err != nil {
		return nil, err
	}
	return &TokenValidator{aead: aead, keyID: keyID, audience: audience, now: time.Now}, nil
}

// Validate checks the token and returns its claims. Check order is fixed:
//
//  1. authenticate and decrypt; no claim is inspected before the AEAD tag
//     verifies
//  2. not-before
//  3. expiry
//  4. audience
//
// Rejections surface as ErrTokenInvalid, ErrTokenNotYetValid,
// ErrTokenExpired, or ErrTokenAudience; use StatusOf to switch on the tag.
func (v *TokenValidator) Validate(token string) (ClaimSet, error) {
	body, found := strings.CutPrefix(token, TokenPrefix)
	if !found {
		return ClaimSet{}, ErrTokenInvalid
	}

	bodyB64, footerB64, found := strings.Cut(body, ".")
	if !found {
		return ClaimSet{}, ErrTokenInvalid
	}

	footer, err := b64.DecodeString(footerB64)
	if err != nil {
		return ClaimSet{}, ErrTokenInvalid
	}

	// Rotation hook: reject tokens for a key we do not hold before paying
	// for a doomed decryption. The footer is covered by the associated
	// data, so a forged kid cannot smuggle a token past the AEAD check.
	var f tokenFooter
	if err := json.Unmarshal(footer, &f); err != nil || f.KeyID != v.keyID {
		return ClaimSet{}, ErrTokenInvalid
	}

	raw, err := b64.DecodeString(bodyB64)
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return ClaimSet{}, ErrTokenInvalid
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]

	payload, err := v.aead.Open(nil, nonce, sealed, tokenAAD(nonce, footer))
	if err != nil {
		return ClaimSet{}, ErrTokenInvalid
	}

	var c ClaimSet
	if err := json.Unmarshal(payload, &c); err != nil {
		return ClaimSet{}, ErrTokenInvalid
	}

	now := v.now()
	if now.Before(c.NotBefore) {
		return ClaimSet{}, ErrTokenNotYetValid
	}
	if !now.Before(c.Expiry) {
		return ClaimSet{}, ErrTokenExpired
	}
	if c.Audience != v.audience {
		return ClaimSet{}, ErrTokenAudience
	}

	return c, nil
}

// TokenKeyID extracts the key identifier from a token's footer without
// decrypting. Used to route tokens to the right validator during rotation.
func TokenKeyID(token string) (string, error) {
	body, found := strings.CutPrefix(token, TokenPrefix)
	if !found {
		return "", ErrTokenInvalid
	}
	_, footerB64, found := strings.Cut(body, ".")
	if !found {
		return "", ErrTokenInvalid
	}
	footer, err := b64.DecodeString(footerB64)
	if err != nil {
		return "", ErrTokenInvalid
	}
	var f tokenFooter
	if err := json.Unmarshal(footer, &f); err != nil || f.KeyID == "" {
		return "", ErrTokenInvalid
	}
	return f.KeyID, nil
}

func newTokenAEAD(secret []byte) (cipher.AEAD, string, error) {
	if len(secret) != SecretKeySize {
		return nil, "", oops.Code("TOKEN_KEY_INVALID").
			With("expected_bytes", SecretKeySize).
			With("got_bytes", len(secret)).
			Errorf("token secret must be exactly %d bytes", SecretKeySize)
	}
	aead, err := chacha20poly1305.NewX(secret)
	if err != nil {
		return nil, "", oops.Code("TOKEN_KEY_INVALID").Wrap(err)
	}
	return aead, DeriveKeyID(secret), nil
}

// tokenAAD builds the associated data: header, nonce, footer, and the
// implicit assertion, each length-prefixed so no field can bleed into its
// neighbor.
func tokenAAD(nonce, footer []byte) []byte {
	pieces := [][]byte{
		[]byte(TokenPrefix),
		nonce,
		footer,
		[]byte(implicitAssertion),
	}

	var size int
	for _, p := range pieces {
		size += 8 + len(p)
	}
	aad := make([]byte, 8, 8+size)
	binary.LittleEndian.PutUint64(aad, uint64(len(pieces)))
	for _, p := range pieces {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		aad = append(aad, n[:]...)
		aad = append(aad, p...)
	}
	return aad
}
