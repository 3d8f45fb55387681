// Package filelock serializes access to shared files across processes.
//
// Decoders running side by side share track files and cross-reference tables.
// Each load-modify-write cycle holds an exclusive advisory lock on a sibling
// "<path>.lock" file for its whole duration.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is the polling interval while another process holds the lock.
const retryDelay = 25 * time.Millisecond

// ErrTimeout is returned when the lock could not be acquired in time.
var ErrTimeout = errors.New("lock timeout")

// LockPath returns the lock file guarding path.
func LockPath(path string) string {
	return path + ".lock"
}

// With runs fn while holding the exclusive lock for path. The parent
// directory of path is created if it does not exist yet.
func With(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	fl := flock.New(LockPath(path))

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, path, timeout)
		}
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, path, timeout)
	}
	defer fl.Unlock() //nolint:errcheck // released on process exit regardless

	return fn()
}
