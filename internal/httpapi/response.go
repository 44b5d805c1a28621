// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"
)

// ResponseContext carries response metadata.
type ResponseContext struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Envelope is the JSON envelope wrapping every API response.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    any             `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Context ResponseContext `json:"context"`
}

// AuthResponse is the body returned by the token endpoint.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
	TokenType    string `json:"token_type"`
}

// respond writes a success envelope.
func respond(c echo.Context, status int, data any, message string) error {
	//nolint:wrapcheck // echo handles its own serialization errors
	return c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Context: ResponseContext{Timestamp: time.Now().UTC()},
	})
}
