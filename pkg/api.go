// Package pkg ties a session to its configuration and saved slot for the
// command line front end.
package pkg

import (
	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/statedir"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/session"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/config"
)

// Workspace is a session bound to the saved slot of the state directory.
type Workspace struct {
	Session *session.Session
	Slot    *statedir.FileSlot
	Saver   *session.Autosaver

	cfg    config.Config
	logger hclog.Logger
	locked bool
}

// OpenWorkspace builds a session from cfg and restores the saved slot into
// it. A missing or unreadable slot leaves the fresh session in place.
func OpenWorkspace(cfg config.Config, logger hclog.Logger) *Workspace {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := session.New(logger.Named("session"), session.Options{DecoderTimeout: cfg.DecoderTimeout})
	slot := statedir.NewFileSlot(cfg.StateRoot(), statedir.SlotName, cfg.FileMode(), logger.Named("slot"))
	w := &Workspace{
		Session: s,
		Slot:    slot,
		Saver:   session.NewAutosaver(s, slot, logger.Named("autosave")),
		cfg:     cfg,
		logger:  logger,
	}
	w.Saver.Restore()
	return w
}

// Lock takes the slot lock. Writing commands call it before they touch the
// slot; it fails with ErrSlotLocked while another session is running.
func (w *Workspace) Lock() error {
	ok, err := w.Slot.TryAcquireLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotLocked
	}
	w.locked = true
	return nil
}

// Locked reports whether this process holds the slot lock.
func (w *Workspace) Locked() bool {
	return w.locked
}

// Save writes the session to the slot unconditionally.
func (w *Workspace) Save() bool {
	return w.Saver.Flush()
}

// Reset clears the session and removes the saved slot.
func (w *Workspace) Reset() {
	w.Session.Reset()
	w.Saver.Clear()
}

// Close releases the slot lock if held.
func (w *Workspace) Close() {
	if w.locked {
		w.Slot.ReleaseLock()
		w.locked = false
	}
}

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() config.Config {
	return w.cfg
}
