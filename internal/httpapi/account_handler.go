// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// AccountHandler serves account management endpoints.
type AccountHandler struct {
	accounts *auth.AccountService
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts *auth.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// List handles GET /api/users.
func (h *AccountHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", auth.DefaultListLimit)
	offset := queryInt(c, "offset", 0)
	search := c.QueryParam("search")

	accounts, err := h.accounts.List(c.Request().Context(), limit, offset, search)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newAccountResponses(accounts), "Accounts fetched successfully")
}

// Get handles GET /api/users/:id.
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newAccountResponse(account), "Account fetched successfully")
}

// Create handles POST /api/users. Identical to registration but exposed as
// an authenticated management operation.
func (h *AccountHandler) Create(c echo.Context) error {
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

// Update handles PUT /api/users/:id.
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return oops.Code("REQUEST_INVALID").Wrapf(auth.ErrValidation, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	changes := auth.AccountChanges{
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		PreferredLanguage: req.PreferredLanguage,
		IsActive:          req.IsActive,
		IsVerified:        req.IsVerified,
	}
	if req.Status != nil {
		status := auth.AccountStatus(*req.Status)
		changes.Status = &status
	}

	account, err := h.accounts.Update(c.Request().Context(), id, changes)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newAccountResponse(account), "Account updated successfully")
}

// Delete handles DELETE /api/users/:id.
func (h *AccountHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Account deleted successfully")
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.UUID{}, oops.Code("REQUEST_INVALID").
			Wrapf(auth.ErrValidation, "id must be a valid UUID")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
