// Package statedir locates the per-user state directory and stores the
// persisted session slot in it.
package statedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/utils/permissions"
)

// SlotName is the name of the autosaved session slot.
const SlotName = "bitdocumenter-byte-visualizer-v1"

// Default permissions
const (
	DirPerms  = permissions.DefaultDirPerms
	FilePerms = permissions.DefaultFilePerms
)

// Root returns the state directory
func Root() string {
	// Check environment variable first
	if dir := os.Getenv("BITDOC_STATE_DIR"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", "bitdoc")
		}
	case "linux":
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			return filepath.Join(xdgState, "bitdoc")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".local", "state", "bitdoc")
		}
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "bitdoc", "state")
		}
	}

	// Fallback to temp directory
	return filepath.Join(os.TempDir(), "bitdoc", "state")
}

// FileSlot keeps one slot as <dir>/<name>.json.
type FileSlot struct {
	dir    string
	name   string
	mode   os.FileMode
	logger hclog.Logger
}

// NewFileSlot returns a slot in dir. A zero mode uses FilePerms.
func NewFileSlot(dir, name string, mode os.FileMode, logger hclog.Logger) *FileSlot {
	if mode == 0 {
		mode = FilePerms
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FileSlot{dir: dir, name: name, mode: mode, logger: logger}
}

// Path is the slot file.
func (s *FileSlot) Path() string {
	return filepath.Join(s.dir, s.name+".json")
}

// LockPath is the PID lock guarding the slot.
func (s *FileSlot) LockPath() string {
	return filepath.Join(s.dir, s.name+".lock")
}

// Save replaces the slot contents. The write goes through a temporary file
// so a crash never leaves a truncated slot.
func (s *FileSlot) Save(data []byte) error {
	if err := os.MkdirAll(s.dir, DirPerms); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, s.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp slot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot: %w", err)
	}
	if err := os.Chmod(tmpPath, s.mode); err != nil {
		return fmt.Errorf("failed to set slot permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("failed to replace slot: %w", err)
	}
	s.logger.Trace("💾 Slot written", "path", s.Path(), "bytes", len(data))
	return nil
}

// Load returns the slot contents. A missing slot returns os.ErrNotExist.
func (s *FileSlot) Load() ([]byte, error) {
	return os.ReadFile(s.Path())
}

// Clear deletes the slot. Clearing an empty slot is not an error.
func (s *FileSlot) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.logger.Debug("🧹 Slot cleared", "path", s.Path())
	return nil
}
