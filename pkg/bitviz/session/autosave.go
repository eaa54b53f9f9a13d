package session

import (
	"encoding/json"

	"github.com/hashicorp/go-hclog"
	"github.com/zeebo/blake3"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/payload"
)

// Slot is a single named persistence entry.
type Slot interface {
	Save(data []byte) error
	Load() ([]byte, error)
	Clear() error
}

// Autosaver periodically persists the session snapshot. Persistence is best
// effort: every failure is logged at debug level and otherwise ignored.
type Autosaver struct {
	session *Session
	slot    Slot
	logger  hclog.Logger

	last    [32]byte
	hasLast bool
}

// NewAutosaver binds a session to a slot.
func NewAutosaver(s *Session, slot Slot, logger hclog.Logger) *Autosaver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Autosaver{session: s, slot: slot, logger: logger}
}

// Tick writes the snapshot if it changed since the last write. It reports
// whether a write happened.
func (a *Autosaver) Tick() bool {
	return a.save(false)
}

// Flush writes the snapshot unconditionally.
func (a *Autosaver) Flush() bool {
	return a.save(true)
}

func (a *Autosaver) save(force bool) bool {
	snap := a.session.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		a.logger.Debug("Snapshot encoding failed", "error", err)
		return false
	}

	digest, err := contentDigest(*snap)
	if err != nil {
		a.logger.Debug("Snapshot digest failed", "error", err)
		return false
	}
	if !force && a.hasLast && digest == a.last {
		return false
	}

	if err := a.slot.Save(data); err != nil {
		a.logger.Debug("Autosave failed", "error", err)
		return false
	}
	a.last, a.hasLast = digest, true
	a.logger.Trace("💾 Autosaved session", "bytes", len(data), "summary", snap.Summary())
	return true
}

// Restore loads the slot into the session. It reports whether a saved
// session was applied.
func (a *Autosaver) Restore() bool {
	data, err := a.slot.Load()
	if err != nil || len(data) == 0 {
		if err != nil {
			a.logger.Debug("No session restored", "error", err)
		}
		return false
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		a.logger.Debug("Saved session is unreadable", "error", err)
		return false
	}
	if err := a.session.Import(doc); err != nil {
		a.logger.Debug("Saved session rejected", "error", err)
		return false
	}
	if digest, err := contentDigest(*a.session.Snapshot()); err == nil {
		a.last, a.hasLast = digest, true
	}
	a.logger.Info("♻️ Restored last session")
	return true
}

// Clear removes the saved session. The next Tick writes again.
func (a *Autosaver) Clear() {
	if err := a.slot.Clear(); err != nil {
		a.logger.Debug("Clearing saved session failed", "error", err)
	}
	a.hasLast = false
}

// contentDigest hashes a snapshot without its timestamp so that unchanged
// state hashes the same across ticks.
func contentDigest(p payload.Payload) ([32]byte, error) {
	p.ExportedAt = ""
	data, err := json.Marshal(p)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}
