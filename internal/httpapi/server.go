// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package httpapi exposes the authentication core over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/auth"
)

// ServerConfig carries HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Metrics receives authentication outcomes for observability. May be nil.
type Metrics interface {
	RecordLogin(outcome string)
	RecordTokenValidation(outcome string)
}

// Server is the HTTP surface: a login/registration endpoint pair and
// bearer-token protected account management.
type Server struct {
	echo *echo.Echo
	cfg  ServerConfig
}

// NewServer wires routes, middleware, and the error handler.
func NewServer(cfg ServerConfig, authSvc *auth.Service, accountSvc *auth.AccountService, validator *auth.TokenValidator, metrics Metrics, logger *slog.Logger) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Code("HTTP_SERVER_INVALID").Errorf("authentication service is required")
	}
	if accountSvc == nil {
		return nil, oops.Code("HTTP_SERVER_INVALID").Errorf("account service is required")
	}
	if validator == nil {
		return nil, oops.Code("HTTP_SERVER_INVALID").Errorf("token validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = (&errorHandler{logger: logger}).handle
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	var recordLogin, recordValidation outcomeRecorder
	if metrics != nil {
		recordLogin = metrics.RecordLogin
		recordValidation = metrics.RecordTokenValidation
	}

	authHandler := NewAuthHandler(authSvc, accountSvc, recordLogin)
	accountHandler := NewAccountHandler(accountSvc)

	api := e.Group("/api")
	api.POST("/auth/token", authHandler.Token)
	api.POST("/auth/register", authHandler.Register)

	users := api.Group("/users", BearerAuth(validator, recordValidation))
	users.GET("", accountHandler.List)
	users.GET("/:id", accountHandler.Get)
	users.POST("", accountHandler.Create)
	users.PUT("/:id", accountHandler.Update)
	users.DELETE("/:id", accountHandler.Delete)

	return &Server{echo: e, cfg: cfg}, nil
}

// Echo returns the underlying echo instance, used by tests to drive
// requests without a listener.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	s.echo.Server.IdleTimeout = s.cfg.IdleTimeout

	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return oops.Code("HTTP_SERVER_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
