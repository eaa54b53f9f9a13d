// Package groups manages named bit-groups over a grid: id allocation,
// color assignment, membership queries and the byte-removal cascade.
package groups

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
)

// Type selects how a group is decoded.
type Type string

const (
	TypeFlags Type = "flags"
	TypeValue Type = "value"
)

// ParseType returns TypeValue only for the exact string "value".
func ParseType(s string) Type {
	if s == string(TypeValue) {
		return TypeValue
	}
	return TypeFlags
}

// Group is a named, colored, ordered collection of bit positions.
type Group struct {
	ID                     string
	Label                  string
	Type                   Type
	Bits                   []grid.Position
	ColorIndex             int
	DecoderSource          string
	FlagsDescriptionSource string
}

// Color returns the palette entry for the group.
func (g *Group) Color() string {
	return Palette[WrapColor(g.ColorIndex)]
}

// Contains reports whether p is one of the group's bits.
func (g *Group) Contains(p grid.Position) bool {
	for _, b := range g.Bits {
		if b == p {
			return true
		}
	}
	return false
}

// Patch carries the editable fields of a group; nil fields are left alone.
type Patch struct {
	Label                  *string
	Type                   *Type
	DecoderSource          *string
	FlagsDescriptionSource *string
}

var idPattern = regexp.MustCompile(`^g(\d+)$`)

// Store owns every group of a session. Groups keep their creation order.
// It is not safe for concurrent use.
type Store struct {
	groups  map[string]*Group
	order   []string
	counter int
	logger  hclog.Logger
}

// NewStore returns an empty store.
func NewStore(logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		groups: make(map[string]*Group),
		logger: logger,
	}
}

// Len returns the number of groups.
func (s *Store) Len() int {
	return len(s.order)
}

// Counter returns the next numeric id the store would allocate.
func (s *Store) Counter() int {
	return s.counter
}

// Get returns the group with the given id.
func (s *Store) Get(id string) (*Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// List returns the groups in creation order. The returned groups are live;
// callers must not mutate them directly.
func (s *Store) List() []*Group {
	out := make([]*Group, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.groups[id])
	}
	return out
}

// CreateFromSelection allocates a new flags group over bits. An empty
// label becomes "Group <n>" where n is the counter after allocation.
func (s *Store) CreateFromSelection(bits []grid.Position, label string) (*Group, error) {
	bits = dedupe(bits)
	if len(bits) == 0 {
		return nil, bverrors.ErrEmptySelection
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("Group %d", s.counter+1)
	}
	id := s.allocate()
	g := &Group{
		ID:                     id,
		Label:                  label,
		Type:                   TypeFlags,
		Bits:                   bits,
		ColorIndex:             WrapColor(s.counter - 1),
		DecoderSource:          DefaultDecoder,
		FlagsDescriptionSource: DefaultFlagsDescriptions,
	}
	s.insert(g)
	s.logger.Debug("🏷️ Created group", "id", id, "label", label, "bits", len(bits))
	return g, nil
}

// Adopt inserts a group restored from outside the store. The requested id
// is kept when it is non-blank and free; otherwise a fresh id is
// allocated. Blank labels fall back to the final id and blank sources to
// the built-in defaults. The counter is advanced past any g<N> id.
func (s *Store) Adopt(in Group) (*Group, error) {
	bits := dedupe(in.Bits)
	if len(bits) == 0 {
		return nil, bverrors.ErrEmptySelection
	}

	id := strings.TrimSpace(in.ID)
	if id != "" {
		if _, taken := s.groups[id]; taken {
			id = ""
		}
	}
	if id == "" {
		id = s.allocate()
	} else {
		s.observe(id)
	}
	for {
		if _, taken := s.groups[id]; !taken {
			break
		}
		id = s.allocate()
	}

	g := &Group{
		ID:                     id,
		Label:                  strings.TrimSpace(in.Label),
		Type:                   ParseType(string(in.Type)),
		Bits:                   bits,
		ColorIndex:             WrapColor(in.ColorIndex),
		DecoderSource:          in.DecoderSource,
		FlagsDescriptionSource: in.FlagsDescriptionSource,
	}
	if g.Label == "" {
		g.Label = id
	}
	if strings.TrimSpace(g.DecoderSource) == "" {
		g.DecoderSource = DefaultDecoder
	}
	if strings.TrimSpace(g.FlagsDescriptionSource) == "" {
		g.FlagsDescriptionSource = DefaultFlagsDescriptions
	}
	s.insert(g)
	s.observe(id)
	s.logger.Debug("📥 Adopted group", "id", id, "requested", in.ID, "bits", len(bits))
	return g, nil
}

// Delete removes a group. It reports whether the id existed.
func (s *Store) Delete(id string) bool {
	if _, ok := s.groups[id]; !ok {
		return false
	}
	delete(s.groups, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.logger.Debug("🗑️ Deleted group", "id", id)
	return true
}

// Update applies patch to a group in place. A blank label keeps the
// previous label.
func (s *Store) Update(id string, patch Patch) error {
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", bverrors.ErrGroupNotFound, id)
	}
	if patch.Type != nil && *patch.Type != TypeFlags && *patch.Type != TypeValue {
		return fmt.Errorf("%w: %q", bverrors.ErrInvalidType, *patch.Type)
	}
	if patch.Label != nil {
		if label := strings.TrimSpace(*patch.Label); label != "" {
			g.Label = label
		}
	}
	if patch.Type != nil {
		g.Type = *patch.Type
	}
	if patch.DecoderSource != nil {
		g.DecoderSource = *patch.DecoderSource
	}
	if patch.FlagsDescriptionSource != nil {
		g.FlagsDescriptionSource = *patch.FlagsDescriptionSource
	}
	s.logger.Debug("✏️ Updated group", "id", id, "type", g.Type)
	return nil
}

// Clear removes every group. The id counter keeps its value.
func (s *Store) Clear() {
	s.groups = make(map[string]*Group)
	s.order = nil
}

// ByteInUse reports whether any bit of the byte belongs to a group.
func (s *Store) ByteInUse(byteIndex int) bool {
	for _, g := range s.groups {
		for _, b := range g.Bits {
			if b.ByteIndex == byteIndex {
				return true
			}
		}
	}
	return false
}

// ByteRemoved drops bits that lived in the removed byte. Groups left with
// no bits are deleted. The grid refuses to remove grouped bytes, so this
// only matters for callers that bypass that check.
func (s *Store) ByteRemoved(byteIndex int) {
	for _, id := range append([]string(nil), s.order...) {
		g := s.groups[id]
		remaining := g.Bits[:0:0]
		for _, b := range g.Bits {
			if b.ByteIndex != byteIndex {
				remaining = append(remaining, b)
			}
		}
		switch {
		case len(remaining) == 0:
			s.Delete(id)
		case len(remaining) != len(g.Bits):
			g.Bits = remaining
			s.logger.Debug("Shrunk group after byte removal", "id", id, "bits", len(remaining))
		}
	}
}

// GroupsAt returns the groups containing p, in creation order.
func (s *Store) GroupsAt(p grid.Position) []*Group {
	var out []*Group
	for _, id := range s.order {
		if g := s.groups[id]; g.Contains(p) {
			out = append(out, g)
		}
	}
	return out
}

func (s *Store) insert(g *Group) {
	s.groups[g.ID] = g
	s.order = append(s.order, g.ID)
}

func (s *Store) allocate() string {
	id := "g" + strconv.Itoa(s.counter)
	s.counter++
	return id
}

// observe moves the counter past a g<N> id.
func (s *Store) observe(id string) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	if n >= s.counter {
		s.counter = n + 1
	}
}

func dedupe(bits []grid.Position) []grid.Position {
	out := make([]grid.Position, 0, len(bits))
	seen := make(map[grid.Position]bool, len(bits))
	for _, b := range bits {
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}
