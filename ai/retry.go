// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/brandmem/core"
)

// RetryPolicy is the single retry discipline for every embedding and generation call.
//
// Only errors wrapping core.ErrTransientExternal are retried. The wait before
// attempt n+1 is n × BaseDelay (1s, 2s with the defaults). When attempts run out
// the last error is returned wrapped in core.ErrServiceUnavailable; any other
// error is returned unchanged on the attempt that produced it.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// OnRetry, when set, is called before each wait.
	OnRetry func(op string, attempt int, err error)

	// Sleep replaces the context-aware timer. Tests use it to skip waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns 3 attempts with a 1s linear backoff unit.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

// Do runs fn under the policy. op names the call in logs and errors.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry runs fn under policy p and returns its value.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "op", op, "attempt", attempt)
			}
			return result, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		lastErr = err

		slog.Debug("operation failed, will retry", "op", op, "attempt", attempt, "maxAttempts", maxAttempts, "err", err)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(op, attempt, err)
		}
		if err := p.sleep(ctx, p.Backoff(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w: %s failed after %d attempts: %w", core.ErrServiceUnavailable, op, maxAttempts, lastErr)
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}

	// Sleep with context awareness
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
