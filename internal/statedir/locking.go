package statedir

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// IsProcessRunning checks if a process with given PID is still running
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, Signal(0) checks if process exists without actually sending a signal
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// TryAcquireLock attempts to take the slot lock for this process.
// Returns false when another live session holds it.
func (s *FileSlot) TryAcquireLock() (bool, error) {
	if err := os.MkdirAll(s.dir, DirPerms); err != nil {
		return false, fmt.Errorf("failed to create state directory: %w", err)
	}
	lockPath := s.LockPath()

	// Check for stale lock first
	if data, err := os.ReadFile(lockPath); err == nil {
		oldPid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		switch {
		case err != nil:
			s.logger.Info("🧹 Removing invalid lock file (couldn't parse PID)")
			os.Remove(lockPath)
		case oldPid == os.Getpid():
			return true, nil
		case IsProcessRunning(oldPid):
			s.logger.Debug("🔒 Slot held by active session", "pid", oldPid)
			return false, nil
		default:
			s.logger.Info("🧹 Removing stale lock from dead process", "pid", oldPid)
			os.Remove(lockPath)
		}
	}

	// Try to create lock file exclusively
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FilePerms)
	if err != nil {
		if os.IsExist(err) {
			s.logger.Debug("🔒 Lock file appeared, another session won the race")
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(lockPath)
		return false, err
	}

	s.logger.Debug("🔒 Acquired slot lock", "pid", os.Getpid())
	return true, nil
}

// ReleaseLock removes the slot lock
func (s *FileSlot) ReleaseLock() {
	if err := os.Remove(s.LockPath()); err != nil {
		s.logger.Debug("⚠️ Failed to remove lock file", "error", err)
	} else {
		s.logger.Debug("🔓 Released slot lock")
	}
}
