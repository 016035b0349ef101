package admission

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrLockHeld is returned when another live process holds the state lock
var ErrLockHeld = errors.New("admission state lock held by another process")

// stateLock is the lock file format claiming exclusive ownership of an
// admission state file. Multiple generator processes sharing a working
// directory would otherwise race on read-modify-write and double-admit.
type stateLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// acquireStateLock creates an advisory lock file next to the state file.
// Stale locks (dead PID on this host) are reclaimed. Returns the lock file
// path for release on Close.
func acquireStateLock(statePath string) (string, error) {
	lockPath := statePath + ".lock"

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing stateLock
		if json.Unmarshal(data, &existing) == nil {
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("%w: %s (PID %d on %s, started %s)",
					ErrLockHeld, statePath, existing.PID, existing.Hostname,
					existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - will overwrite
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := stateLock{
		Holder:    "gatekeeper-admission",
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create state lock: %w", err)
	}

	return lockPath, nil
}

// releaseStateLock removes the lock file. Missing files are not an error so
// release is safe to defer unconditionally.
func releaseStateLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state lock: %w", err)
	}
	return nil
}

// isProcessAlive checks if a process with the given PID exists on the given
// hostname. Remote holders cannot be checked and are assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		// Can't check hostname, assume remote/alive
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		// Remote host - can't check, assume alive
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM means the process exists but belongs to someone else.
	// Fail safe: if we can't verify, assume alive.
	if err == syscall.EPERM {
		return true
	}

	return false
}
