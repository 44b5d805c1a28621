// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// LoginRequest is the token endpoint body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Username          string  `json:"username" validate:"required,min=3,max=30"`
	Email             string  `json:"email" validate:"required,email"`
	Password          string  `json:"password" validate:"required,min=8"`
	PhoneNumber       *string `json:"phone_number,omitempty" validate:"omitempty,e164"`
	PreferredLanguage string  `json:"preferred_language,omitempty"`
}

// UpdateAccountRequest carries partial account changes; absent fields are
// left unchanged.
type UpdateAccountRequest struct {
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber       *string `json:"phone_number,omitempty" validate:"omitempty,e164"`
	PreferredLanguage *string `json:"preferred_language,omitempty"`
	Status            *string `json:"status,omitempty" validate:"omitempty,oneof=active locked suspended deleted"`
	IsActive          *bool   `json:"is_active,omitempty"`
	IsVerified        *bool   `json:"is_verified,omitempty"`
}

// AccountResponse is the public shape of an account. No credential field
// exists here: hashes never leave the service.
type AccountResponse struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	Status            string     `json:"status"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	PreferredLanguage string     `json:"preferred_language"`
	RegistrationDate  time.Time  `json:"registration_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func newAccountResponse(a auth.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID.String(),
		Username:          a.Username,
		Email:             a.Email,
		IsActive:          a.IsActive,
		IsVerified:        a.IsVerified,
		PhoneNumber:       a.PhoneNumber,
		Status:            string(a.Status),
		LastLogin:         a.LastLogin,
		PreferredLanguage: a.PreferredLanguage,
		RegistrationDate:  a.RegistrationDate,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func newAccountResponses(accounts []auth.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a))
	}
	return out
}

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks a bound request struct.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return oops.Code("REQUEST_INVALID").Wrapf(auth.ErrValidation, "%s", err.Error())
	}
	return nil
}
