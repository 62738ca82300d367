package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/poiesic/brandmem/core"
)

const maxErrorBody = 512

// ErrEmptyResponse indicates a service answered without usable output.
var ErrEmptyResponse = errors.New("empty response")

// ClassifyStatus maps an HTTP status returned by service into the error taxonomy.
// 429 and 503 are transient; every other non-2xx status is terminal.
func ClassifyStatus(service string, status int, body string) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s returned status %d: %s", core.ErrTransientExternal, service, status, body)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", core.ErrTerminalExternal, service, status, body)
	}
}

// ClassifyError maps a client error into the error taxonomy.
// Context cancellation and already classified errors pass through unchanged.
// Network failures are transient; anything else is terminal.
func ClassifyError(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, core.ErrTransientExternal) || errors.Is(err, core.ErrTerminalExternal) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", core.ErrTransientExternal, service, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrTerminalExternal, service, err)
}

// IsRetryable reports whether err should be retried under RetryPolicy.
func IsRetryable(err error) bool {
	return errors.Is(err, core.ErrTransientExternal)
}
