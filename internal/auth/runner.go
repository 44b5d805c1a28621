// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// Default bounds for the runner.
const (
	DefaultRunnerLimit     = 16
	DefaultAdmissionWindow = time.Second
)

// Runner admits expensive work (argon2 hashing, blocking storage calls)
// through a weighted semaphore. Callers past the limit wait at most the
// admission window, then fail with ErrServiceUnavailable instead of queuing
// without bound. Once admitted, work runs to completion: an in-flight hash
// has no cheap cancellation, so the cost is paid even if the caller is gone.
type Runner struct {
	sem       *semaphore.Weighted
	admission time.Duration
}

// NewRunner creates a Runner allowing at most limit concurrent tasks.
// Non-positive limit or admission fall back to the defaults.
func NewRunner(limit int64, admission time.Duration) *Runner {
	if limit <= 0 {
		limit = DefaultRunnerLimit
	}
	if admission <= 0 {
		admission = DefaultAdmissionWindow
	}
	return &Runner{
		sem:       semaphore.NewWeighted(limit),
		admission: admission,
	}
}

// Do runs fn once a slot is available. Admission respects ctx cancellation
// and the admission window; saturation surfaces as ErrServiceUnavailable.
func (r *Runner) Do(ctx context.Context, fn func() error) error {
	admitCtx, cancel := context.WithTimeout(ctx, r.admission)
	defer cancel()

	if err := r.sem.Acquire(admitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return oops.Code("RUNNER_CANCELED").Wrap(ctx.Err())
		}
		return oops.Code("RUNNER_SATURATED").
			With("admission_window", r.admission.String()).
			Wrap(ErrServiceUnavailable)
	}
	defer r.sem.Release(1)

	return fn()
}
