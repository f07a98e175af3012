package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// IsBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsLockedError checks if the error is a "database is locked" error.
func IsLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsConflictError reports SQLite concurrency errors that warrant a retry.
func IsConflictError(err error) bool {
	return IsBusyError(err) || IsLockedError(err)
}

const (
	writeRetries   = 3
	writeBaseDelay = 100 * time.Millisecond
)

// withRetry runs fn, retrying SQLite conflicts with exponential backoff
// (100ms, 200ms). Other errors are returned immediately.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < writeRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsConflictError(err) || i == writeRetries-1 {
			break
		}

		delay := writeBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite write conflict, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	if IsConflictError(err) {
		return fmt.Errorf("%s failed after %d attempts: %w", op, writeRetries, err)
	}
	return err
}
