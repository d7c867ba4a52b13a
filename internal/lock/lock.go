// Package lock keeps two wgjoin runs from rewriting the same interface at
// once. The lock is a directory created with mkdir, which is atomic on
// local filesystems, holding an info.json that names the holder.
package lock

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/wgjoin/internal/errors"
)

// Options controls waiting and stale-lock cleanup.
type Options struct {
	// Timeout is how long Acquire waits for a held lock. Zero means try once.
	Timeout time.Duration
	// Stale locks (older than this) are removed. Zero disables cleanup.
	Stale time.Duration
	// Poll is the retry interval while waiting.
	Poll time.Duration
	// Command is recorded in the info file for other runs to report.
	Command string
}

// DefaultOptions waits briefly and treats locks older than ten minutes as
// abandoned. A full run is bounded by its HTTP timeouts, well under that.
func DefaultOptions() Options {
	return Options{
		Timeout: 5 * time.Second,
		Stale:   10 * time.Minute,
		Poll:    250 * time.Millisecond,
	}
}

// Lock represents a held lock.
type Lock struct {
	Dir  string    // The lock directory path
	Info *LockInfo // Info about the lock holder (us)
}

// Path returns the lock directory for name inside dir, e.g.
// /etc/wireguard/.wgjoin-wg0.lock.
func Path(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf(".wgjoin-%s.lock", name))
}

// TryAcquire takes the lock or returns ErrLocked without waiting.
func TryAcquire(dir, name string, opts Options) (*Lock, error) {
	lockDir := Path(dir, name)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to create %s", dir),
			"Run as root, or set config_dir to a directory you own")
	}

	if opts.Stale > 0 && isStale(lockDir, opts.Stale) {
		_ = os.RemoveAll(lockDir)
	}

	if err := os.Mkdir(lockDir, 0o700); err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to create lock %s", lockDir),
			"Check permissions on the config directory")
	}

	info := NewLockInfo(opts.Command)
	data, err := info.Marshal()
	if err == nil {
		err = os.WriteFile(filepath.Join(lockDir, "info.json"), data, 0o600)
	}
	if err != nil {
		_ = os.RemoveAll(lockDir)
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			"Failed to write lock info file",
			"Check disk space and permissions")
	}

	return &Lock{Dir: lockDir, Info: info}, nil
}

// Acquire takes the lock, retrying until opts.Timeout or until ctx is done.
// When it gives up the error names whoever holds the lock.
func Acquire(ctx context.Context, dir, name string, opts Options) (*Lock, error) {
	poll := opts.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	deadline := time.Now().Add(opts.Timeout)

	for {
		l, err := TryAcquire(dir, name, opts)
		if !stderrors.Is(err, ErrLocked) {
			return l, err
		}
		if !time.Now().Before(deadline) {
			return nil, errors.WrapWithCode(err, errors.ErrLock,
				fmt.Sprintf("Another wgjoin run is working on %s", name),
				fmt.Sprintf("Lock held by: %s. Wait for it to finish, or remove %s if that process is gone.", Holder(dir, name), Path(dir, name)))
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.WrapWithCode(ctx.Err(), errors.ErrLock,
				fmt.Sprintf("Stopped waiting for the lock on %s", name),
				fmt.Sprintf("Lock held by: %s", Holder(dir, name)))
		case <-timer.C:
		}
	}
}

// Release removes the lock, allowing others to acquire it.
func (l *Lock) Release() error {
	if l == nil || l.Dir == "" {
		return nil // Nothing to release
	}
	if err := os.RemoveAll(l.Dir); err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory: %s", l.Dir),
			"Remove it by hand")
	}
	return nil
}

// Holder returns information about who holds the lock for name in dir
// (if readable).
func Holder(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(Path(dir, name), "info.json"))
	if err != nil {
		return "unknown"
	}

	info, err := ParseLockInfo(data)
	if err != nil {
		// Fall back to raw content
		return strings.TrimSpace(string(data))
	}
	return info.String()
}

// isStale reports whether the holder started longer ago than threshold. A
// lock directory without a readable info file is judged by its mtime.
func isStale(lockDir string, threshold time.Duration) bool {
	data, err := os.ReadFile(filepath.Join(lockDir, "info.json"))
	if err == nil {
		if info, perr := ParseLockInfo(data); perr == nil {
			return info.Age() > threshold
		}
	}

	st, err := os.Stat(lockDir)
	if err != nil {
		return false
	}
	return time.Since(st.ModTime()) > threshold
}
