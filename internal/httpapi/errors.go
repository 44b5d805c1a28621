// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/pkg/errutil"
)

// errorHandler maps the failure taxonomy to HTTP responses. Response bodies
// stay coarse on purpose: a 401 never says whether the username existed or
// which cryptographic check failed.
type errorHandler struct {
	logger *slog.Logger
}

func (h *errorHandler) handle(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := "HTTP_ERROR"
	var o oops.OopsError
	if errors.As(err, &o) && o.Code() != "" {
		code = o.Code()
	}

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "unauthorized"
		if code == "AUTH_INVALID_CREDENTIALS" {
			message = "invalid username or password"
		}
	case errors.Is(err, auth.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, auth.ErrValidation):
		status = http.StatusUnprocessableEntity
		message = "validation failed"
	case errors.Is(err, auth.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
		message = "service unavailable"
	default:
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		}
	}

	if status >= http.StatusInternalServerError {
		logger := h.logger.With(
			slog.String("path", c.Request().URL.Path),
			slog.String("method", c.Request().Method))
		errutil.LogError(logger, "request failed", err)
	}

	//nolint:errcheck // nothing left to do if the error response cannot be written
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorInfo{Code: code},
		Context: ResponseContext{Timestamp: time.Now().UTC()},
	})
}
