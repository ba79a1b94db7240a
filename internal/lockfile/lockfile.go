// Package lockfile serializes writers of shared on-disk artifacts (the
// vocabulary snapshot, the model bundle). A lock is a sibling ".lock" file
// created with O_EXCL; holders write their pid for post-mortem inspection.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StaleAfter is the age past which an abandoned lock is broken. Writers
// here hold locks for milliseconds; anything minutes old is a crashed
// process.
const StaleAfter = 5 * time.Minute

const pollInterval = 25 * time.Millisecond

// Lock is a held exclusive lock. Release it when the read-modify-write
// cycle completes.
type Lock struct {
	path string
}

// Acquire takes the exclusive lock guarding target, waiting up to wait for
// a competing holder. Locks older than StaleAfter are broken.
func Acquire(target string, wait time.Duration) (*Lock, error) {
	path := target + ".lock"
	deadline := time.Now().Add(wait)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lockfile: create %s: %w", path, err)
		}
		if info, serr := os.Stat(path); serr == nil && time.Since(info.ModTime()) > StaleAfter {
			// Crashed holder; break the lock and retry immediately.
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			holder := "unknown"
			if data, rerr := os.ReadFile(path); rerr == nil {
				holder = string(data)
			}
			return nil, fmt.Errorf("lockfile: %s held by pid %s", path, firstLine(holder))
		}
		time.Sleep(pollInterval)
	}
}

// Release drops the lock. Safe to call once per Acquire.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: release %s: %w", l.path, err)
	}
	return nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// ParsePID extracts a holder pid from lock file contents, for diagnostics.
func ParsePID(contents string) (int, bool) {
	n, err := strconv.Atoi(firstLine(contents))
	if err != nil {
		return 0, false
	}
	return n, true
}
