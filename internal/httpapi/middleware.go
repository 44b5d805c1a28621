// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// Context keys set by BearerAuth for downstream handlers.
const (
	ContextKeySubject = "subject"
	ContextKeyClaims  = "claims"
)

// outcomeRecorder receives token validation outcomes for metrics. May be nil.
type outcomeRecorder func(outcome string)

// BearerAuth validates the Authorization bearer token and stores the
// verified subject and claims on the request context.
func BearerAuth(validator *auth.TokenValidator, record outcomeRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return oops.Code("TOKEN_MISSING").
					Wrapf(auth.ErrUnauthorized, "authorization header is missing")
			}

			token, found := strings.CutPrefix(header, auth.TokenTypeBearer+" ")
			if !found {
				return oops.Code("TOKEN_MALFORMED").
					Wrapf(auth.ErrUnauthorized, "authorization header must be a bearer token")
			}

			claims, err := validator.Validate(token)
			if record != nil {
				record(validationOutcome(err))
			}
			if err != nil {
				return err
			}

			c.Set(ContextKeySubject, claims.Subject)
			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

func validationOutcome(err error) string {
	switch auth.StatusOf(err) {
	case auth.TokenValid:
		return "valid"
	case auth.TokenExpired:
		return "expired"
	case auth.TokenNotYetValid:
		return "not_yet_valid"
	case auth.TokenAudienceMismatch:
		return "audience_mismatch"
	default:
		return "invalid"
	}
}
