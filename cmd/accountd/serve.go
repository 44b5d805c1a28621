// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/auth/postgres"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/httpapi"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/observability"
	"github.com/accountd/accountd/internal/store"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the accountd HTTP server",
		Long: `Start the accountd server: connect to PostgreSQL, expose the
authentication and account management API, and serve metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	// Flag names mirror config keys so they override file and env values.
	// Unchanged flags defer to file and env; their defaults only apply when
	// no other source sets the key.
	defaults := config.Default()
	cmd.Flags().String("http.addr", defaults.HTTP.Addr, "HTTP listen address")
	cmd.Flags().String("observability.addr", defaults.Observability.Addr, "metrics/health HTTP address")
	cmd.Flags().String("log.format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log.level", defaults.Log.Level, "log level (debug, info, warn, error)")

	return cmd
}

// runServe wires the process together and blocks until shutdown.
func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.SetDefault(cfg.Service.Name, cfg.Service.Version, cfg.Log.Format, cfg.Log.Level)

	slog.Info("starting accountd",
		"http_addr", cfg.HTTP.Addr,
		"observability_addr", cfg.Observability.Addr,
		"issuer", cfg.Auth.Issuer,
	)

	databaseURL := cfg.DatabaseURL()
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (config database.url or DATABASE_URL)")
	}

	pool, err := store.NewPool(ctx, store.PoolConfig{
		URL:            databaseURL,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("database pool ready", "max_conns", cfg.Database.MaxConns)

	repo := postgres.NewAccountRepository(pool)
	hasher := auth.NewArgon2idHasher()
	runner := auth.NewRunner(cfg.Auth.MaxConcurrent, cfg.Auth.AdmissionWindow)

	issuer, err := auth.NewTokenIssuer(cfg.SecretKey())
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	validator, err := auth.NewTokenValidator(cfg.SecretKey(), cfg.Auth.Audience)
	if err != nil {
		return fmt.Errorf("failed to create token validator: %w", err)
	}

	authSvc, err := auth.NewService(repo, hasher, issuer, runner, auth.ServiceConfig{
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create authentication service: %w", err)
	}

	accountSvc, err := auth.NewAccountService(repo, repo, hasher, runner, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create account service: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics httpapi.Metrics
	if cfg.Observability.Addr != "" {
		obsServer = observability.NewServer(cfg.Observability.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		go func() {
			if serveErr := <-obsErrChan; serveErr != nil {
				slog.Error("observability server error", "error", serveErr)
			}
		}()
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	httpServer, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, authSvc, accountSvc, validator, metrics, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	httpErrChan := make(chan error, 1)
	go func() {
		httpErrChan <- httpServer.Start()
	}()

	cmd.Println("accountd started")
	slog.Info("accountd ready", "http_addr", cfg.HTTP.Addr)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server failure
	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case serveErr = <-httpErrChan:
		if serveErr != nil {
			slog.Error("HTTP server error", "error", serveErr)
		}
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return serveErr
}
