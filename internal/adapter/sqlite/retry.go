// retry.go wraps write operations with bounded retries for transient SQLite
// errors. busy_timeout handles SQLITE_BUSY at the connection level, but under
// many concurrent client processes the driver can still surface BUSY, LOCKED,
// and IOERR_SHORT_READ to the application. A write that stays transiently
// failing past the budget is reported as domain.ErrStoreUnavailable so
// callers can treat it as retryable instead of fatal.
package sqlite

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/switchboard-hq/switchboard/internal/domain"
)

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransient reports whether err is a transient SQLite condition worth
// retrying: SQLITE_BUSY (5), SQLITE_LOCKED (6), IOERR_SHORT_READ (522), or
// the text-level "database is locked" fallthrough.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",
		"(6)",
		"(522)",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOnContention executes fn with exponential backoff + jitter. Transient
// errors beyond the budget become ErrStoreUnavailable; everything else
// returns immediately.
func retryOnContention(fn func() error) error {
	cfg := defaultRetryConfig
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < cfg.maxRetries {
			time.Sleep(backoffDelay(cfg, attempt))
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, lastErr)
}

// backoffDelay is baseDelay * 2^attempt capped at maxDelay, plus jitter in
// [0, baseDelay).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
