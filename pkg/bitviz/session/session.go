// Package session owns one grid, its groups and their decoded outputs.
// Every mutation is followed by a full refresh so Outputs never lags the
// committed state. A Session is driven by a single goroutine.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/decode"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/payload"
)

// Options tune a session.
type Options struct {
	// DecoderTimeout bounds each value decoder run. Zero means no bound.
	DecoderTimeout time.Duration
	// Now stamps exports. Defaults to time.Now.
	Now func() time.Time
}

// Session is the single owner of the editing state.
type Session struct {
	grid      *grid.Grid
	store     *groups.Store
	engine    *decode.Engine
	outputs   []decode.Output
	selection map[grid.Position]bool
	now       func() time.Time
	logger    hclog.Logger
}

// New creates a session holding one zero byte and no groups.
func New(logger hclog.Logger, opts Options) *Session {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		grid:      grid.New(logger.Named("grid")),
		store:     groups.NewStore(logger.Named("groups")),
		engine:    decode.NewEngine(opts.DecoderTimeout, logger.Named("decode")),
		selection: make(map[grid.Position]bool),
		now:       opts.Now,
		logger:    logger,
	}
	s.grid.SetMembership(s.store)
	s.refresh()
	return s
}

// Grid exposes the grid for read access.
func (s *Session) Grid() *grid.Grid { return s.grid }

// Store exposes the groups for read access.
func (s *Session) Store() *groups.Store { return s.store }

// Outputs returns the decoded output of every group in creation order.
func (s *Session) Outputs() []decode.Output {
	return append([]decode.Output(nil), s.outputs...)
}

// Output returns the decoded output of one group.
func (s *Session) Output(id string) (decode.Output, bool) {
	for _, o := range s.outputs {
		if o.GroupID == id {
			return o, true
		}
	}
	return decode.Output{}, false
}

func (s *Session) refresh() {
	s.outputs = s.engine.Refresh(s.grid, s.store)
}

// =================================
// Bits and bytes
// =================================

// ToggleBit flips one bit and returns its new value.
func (s *Session) ToggleBit(p grid.Position) (int, error) {
	v, err := s.grid.ToggleBit(p)
	if err != nil {
		return 0, err
	}
	s.refresh()
	return v, nil
}

// SetBit writes one bit.
func (s *Session) SetBit(p grid.Position, value int) error {
	if err := s.grid.SetBit(p, value); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// AddByte appends a zero byte.
func (s *Session) AddByte() {
	s.grid.AddByte()
	s.refresh()
}

// CanRemoveLastByte reports whether RemoveLastByte would succeed.
func (s *Session) CanRemoveLastByte() bool {
	return s.grid.CanRemoveLastByte()
}

// RemoveLastByte drops the last byte unless it is the only byte or holds
// grouped bits.
func (s *Session) RemoveLastByte() error {
	last := s.grid.Len() - 1
	if err := s.grid.RemoveLastByte(); err != nil {
		return err
	}
	for p := range s.selection {
		if p.ByteIndex == last {
			delete(s.selection, p)
		}
	}
	s.refresh()
	return nil
}

// SetHex loads bytes from hex text. Invalid text leaves the grid as it was.
func (s *Session) SetHex(text string) error {
	if err := s.grid.SetHex(text); err != nil {
		return err
	}
	s.dropStaleSelection()
	s.refresh()
	return nil
}

// SetBitOrder changes the bit traversal direction.
func (s *Session) SetBitOrder(order grid.BitOrder) {
	s.grid.SetBitOrder(grid.ParseBitOrder(string(order)))
	s.refresh()
}

// SetByteOrder changes the byte combination direction.
func (s *Session) SetByteOrder(order grid.ByteOrder) {
	s.grid.SetByteOrder(grid.ParseByteOrder(string(order)))
	s.refresh()
}

// =================================
// Selection and groups
// =================================

// Select adds positions to the selection.
func (s *Session) Select(positions ...grid.Position) error {
	for _, p := range positions {
		if !s.grid.Valid(p) {
			return fmt.Errorf("%w: %s", bverrors.ErrPositionRange, p)
		}
	}
	for _, p := range positions {
		s.selection[p] = true
	}
	return nil
}

// ToggleSelect flips one position in or out of the selection and reports
// whether it is now selected.
func (s *Session) ToggleSelect(p grid.Position) (bool, error) {
	if !s.grid.Valid(p) {
		return false, fmt.Errorf("%w: %s", bverrors.ErrPositionRange, p)
	}
	if s.selection[p] {
		delete(s.selection, p)
		return false, nil
	}
	s.selection[p] = true
	return true, nil
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.selection = make(map[grid.Position]bool)
}

// Selection lists selected positions in storage order.
func (s *Session) Selection() []grid.Position {
	out := make([]grid.Position, 0, len(s.selection))
	for p := range s.selection {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ByteIndex != out[j].ByteIndex {
			return out[i].ByteIndex < out[j].ByteIndex
		}
		return out[i].BitIndex < out[j].BitIndex
	})
	return out
}

// GroupSelection creates a flags group from the selection and clears it.
func (s *Session) GroupSelection(label string) (*groups.Group, error) {
	g, err := s.store.CreateFromSelection(s.Selection(), label)
	if err != nil {
		return nil, err
	}
	s.ClearSelection()
	s.refresh()
	return g, nil
}

// UpdateGroup edits a group in place.
func (s *Session) UpdateGroup(id string, patch groups.Patch) error {
	if err := s.store.Update(id, patch); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// SetFlagLabels replaces the on/off labels of one bit in a group's flags
// description map.
func (s *Session) SetFlagLabels(id string, row decode.FlagRow) error {
	g, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", bverrors.ErrGroupNotFound, id)
	}
	src, err := decode.SetRow(g.FlagsDescriptionSource, len(g.Bits), row)
	if err != nil {
		return err
	}
	return s.UpdateGroup(id, groups.Patch{FlagsDescriptionSource: &src})
}

// DeleteGroup removes a group. Unknown ids are ignored.
func (s *Session) DeleteGroup(id string) {
	if s.store.Delete(id) {
		s.refresh()
	}
}

// =================================
// Configuration
// =================================

// Export captures the current state.
func (s *Session) Export(includeSetBits bool) *payload.Payload {
	return payload.Build(s.grid, s.store, includeSetBits, s.now())
}

// ExportString captures the current state as an exchange string.
func (s *Session) ExportString(encoding string, includeSetBits bool) (string, error) {
	return payload.EncodeString(s.Export(includeSetBits), encoding)
}

// Snapshot is the full export persisted by autosave.
func (s *Session) Snapshot() *payload.Payload {
	return s.Export(true)
}

// Import replaces the whole state with a decoded document.
func (s *Session) Import(doc any) error {
	if err := payload.Apply(doc, s.grid, s.store, s.logger.Named("payload")); err != nil {
		return err
	}
	s.ClearSelection()
	s.refresh()
	s.logger.Info("📥 Imported configuration", "bytes", s.grid.Len(), "groups", s.store.Len())
	return nil
}

// ImportString decodes an exchange string and imports it.
func (s *Session) ImportString(text, encoding string) error {
	doc, err := payload.DecodeString(text, encoding)
	if err != nil {
		return err
	}
	return s.Import(doc)
}

// Reset drops every group and restores a single zero byte with default
// orders. The group id counter keeps counting.
func (s *Session) Reset() {
	s.store.Clear()
	s.grid.Reset()
	s.ClearSelection()
	s.refresh()
	s.logger.Info("🧹 Session reset", "next_id", s.store.Counter())
}

func (s *Session) dropStaleSelection() {
	for p := range s.selection {
		if !s.grid.Valid(p) {
			delete(s.selection, p)
		}
	}
}
