// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/httpapi"
)

// fakeMetrics records outcomes for assertions.
type fakeMetrics struct {
	logins      []string
	validations []string
}

func (m *fakeMetrics) RecordLogin(outcome string)           { m.logins = append(m.logins, outcome) }
func (m *fakeMetrics) RecordTokenValidation(outcome string) { m.validations = append(m.validations, outcome) }

type fixture struct {
	server  *httpapi.Server
	metrics *fakeMetrics
	store   *auth.MemoryStore
	alice   auth.Account
}

func testSecret() []byte {
	secret := make([]byte, auth.SecretKeySize)
	for i := range secret {
		secret[i] = 9
	}
	return secret
}

func cheapHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := auth.NewMemoryStore()
	hasher := cheapHasher()
	runner := auth.NewRunner(4, time.Second)
	secret := testSecret()

	issuer, err := auth.NewTokenIssuer(secret)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(secret, "accountd")
	require.NoError(t, err)

	authSvc, err := auth.NewService(store, hasher, issuer, runner, auth.ServiceConfig{
		Issuer:     "accountd",
		Audience:   "accountd",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, nil)
	require.NoError(t, err)

	accountSvc, err := auth.NewAccountService(store, store, hasher, runner, nil)
	require.NoError(t, err)

	alice, err := accountSvc.Register(context.Background(), auth.Registration{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Secr3t!pass",
	})
	require.NoError(t, err)

	metrics := &fakeMetrics{}
	server, err := httpapi.NewServer(httpapi.ServerConfig{Addr: ":0"}, authSvc, accountSvc, validator, metrics, nil)
	require.NoError(t, err)

	return &fixture{server: server, metrics: metrics, store: store, alice: alice}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func (f *fixture) login(t *testing.T, username, password string) (httpapi.AuthResponse, *httptest.ResponseRecorder) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/token", "",
		`{"username":"`+username+`","password":"`+password+`"}`)

	var envelope struct {
		Success bool                 `json:"success"`
		Message string               `json:"message"`
		Data    httpapi.AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data, rec
}

func TestTokenEndpoint(t *testing.T) {
	t.Run("valid credentials return a token pair", func(t *testing.T) {
		f := newFixture(t)

		tokens, rec := f.login(t, "alice", "Secr3t!pass")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, "Bearer", tokens.TokenType)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Greater(t, tokens.Expires, time.Now().Unix())
		assert.Equal(t, []string{"success"}, f.metrics.logins)
	})

	t.Run("wrong password and unknown user look identical", func(t *testing.T) {
		f := newFixture(t)

		_, recWrong := f.login(t, "alice", "wrong")
		_, recUnknown := f.login(t, "mallory", "wrong")

		assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
		assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)

		var wrong, unknown map[string]any
		require.NoError(t, json.Unmarshal(recWrong.Body.Bytes(), &wrong))
		require.NoError(t, json.Unmarshal(recUnknown.Body.Bytes(), &unknown))

		// Identical apart from the timestamp.
		delete(wrong, "context")
		delete(unknown, "context")
		assert.Equal(t, wrong, unknown)
		assert.Equal(t, "invalid username or password", wrong["message"])
		assert.Equal(t, []string{"unauthorized", "unauthorized"}, f.metrics.logins)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/auth/token", "", `{"username":"alice"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body fails validation", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/auth/token", "", `{not json`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("creates an account", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/auth/register", "",
			`{"username":"bob","email":"bob@example.com","password":"Sup3r!secret"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var envelope struct {
			Success bool                    `json:"success"`
			Data    httpapi.AccountResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.True(t, envelope.Success)
		assert.Equal(t, "bob", envelope.Data.Username)
		assert.Equal(t, "active", envelope.Data.Status)

		// The new account can log in.
		_, loginRec := f.login(t, "bob", "Sup3r!secret")
		assert.Equal(t, http.StatusOK, loginRec.Code)
	})

	t.Run("rejects weak input", func(t *testing.T) {
		f := newFixture(t)

		for name, body := range map[string]string{
			"short password": `{"username":"bob","email":"bob@example.com","password":"short"}`,
			"bad email":      `{"username":"bob","email":"not-an-email","password":"Sup3r!secret"}`,
			"short username": `{"username":"ab","email":"bob@example.com","password":"Sup3r!secret"}`,
			"bad phone":      `{"username":"bob","email":"bob@example.com","password":"Sup3r!secret","phone_number":"12345"}`,
		} {
			rec := f.do(http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "case %s: %s", name, rec.Body.String())
		}
	})
}

func TestBearerAuth(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/api/users", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"message":"unauthorized"`)
	})

	t.Run("non-bearer authorization header", func(t *testing.T) {
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		f.server.Echo().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/api/users", "garbage", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, []string{"invalid"}, f.metrics.validations)
	})

	t.Run("access token grants access", func(t *testing.T) {
		f := newFixture(t)

		tokens, _ := f.login(t, "alice", "Secr3t!pass")
		rec := f.do(http.MethodGet, "/api/users", tokens.AccessToken, "")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"valid"}, f.metrics.validations)
	})

	t.Run("refresh token is rejected where access is expected", func(t *testing.T) {
		f := newFixture(t)

		tokens, _ := f.login(t, "alice", "Secr3t!pass")
		rec := f.do(http.MethodGet, "/api/users", tokens.RefreshToken, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, []string{"audience_mismatch"}, f.metrics.validations)
	})
}

func TestAccountEndpoints(t *testing.T) {
	login := func(t *testing.T, f *fixture) string {
		t.Helper()
		tokens, rec := f.login(t, "alice", "Secr3t!pass")
		require.Equal(t, http.StatusOK, rec.Code)
		return tokens.AccessToken
	}

	t.Run("list", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodGet, "/api/users", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data []httpapi.AccountResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.Len(t, envelope.Data, 1)
		assert.Equal(t, "alice", envelope.Data[0].Username)
	})

	t.Run("get by id", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodGet, "/api/users/"+f.alice.ID.String(), token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data httpapi.AccountResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, f.alice.ID.String(), envelope.Data.ID)
	})

	t.Run("get unknown id is 404", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000001", token, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id is 422", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodGet, "/api/users/not-a-uuid", token, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodPost, "/api/users", token,
			`{"username":"carol","email":"carol@example.com","password":"Sup3r!secret"}`)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodPut, "/api/users/"+f.alice.ID.String(), token,
			`{"email":"new@example.com","status":"locked"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var envelope struct {
			Data httpapi.AccountResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "new@example.com", envelope.Data.Email)
		assert.Equal(t, "locked", envelope.Data.Status)

		got, err := f.store.FindByID(context.Background(), f.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusLocked, got.Status)
	})

	t.Run("update with invalid status is 422", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodPut, "/api/users/"+f.alice.ID.String(), token, `{"status":"nonsense"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t)
		token := login(t, f)

		rec := f.do(http.MethodDelete, "/api/users/"+f.alice.ID.String(), token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(http.MethodGet, "/api/users/"+f.alice.ID.String(), token, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
