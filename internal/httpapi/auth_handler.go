// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// AuthHandler serves the token and registration endpoints.
type AuthHandler struct {
	auth     *auth.Service
	accounts *auth.AccountService
	record   outcomeRecorder
}

// NewAuthHandler creates an AuthHandler. record may be nil.
func NewAuthHandler(authSvc *auth.Service, accounts *auth.AccountService, record outcomeRecorder) *AuthHandler {
	return &AuthHandler{auth: authSvc, accounts: accounts, record: record}
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return oops.Code("REQUEST_INVALID").Wrapf(auth.ErrValidation, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.auth.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		h.recordLogin(err)
		return err
	}
	h.recordLogin(nil)

	return respond(c, http.StatusOK, AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expires:      result.ExpiresAt,
		TokenType:    result.TokenType,
	}, "Login successful")
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return oops.Code("REQUEST_INVALID").Wrapf(auth.ErrValidation, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := h.accounts.Register(c.Request().Context(), auth.Registration{
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		PhoneNumber:       req.PhoneNumber,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, newAccountResponse(account), "Account created successfully")
}

func (h *AuthHandler) recordLogin(err error) {
	if h.record == nil {
		return
	}
	switch {
	case err == nil:
		h.record("success")
	case errors.Is(err, auth.ErrUnauthorized):
		h.record("unauthorized")
	case errors.Is(err, auth.ErrServiceUnavailable):
		h.record("unavailable")
	default:
		h.record("error")
	}
}
