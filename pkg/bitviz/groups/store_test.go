package groups

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "store_test",
		Level: hclog.Trace,
	})
}

func pos(byteIndex, bitIndex int) grid.Position {
	return grid.Position{ByteIndex: byteIndex, BitIndex: bitIndex}
}

func TestCreateFromSelection(t *testing.T) {
	logger := testLogger()
	s := NewStore(logger)

	if _, err := s.CreateFromSelection(nil, "x"); !errors.Is(err, bverrors.ErrEmptySelection) {
		t.Fatalf("empty selection err = %v", err)
	}
	if s.Counter() != 0 {
		t.Fatalf("counter moved on failed create: %d", s.Counter())
	}

	testCases := []struct {
		label     string
		wantID    string
		wantLabel string
		wantColor int
	}{
		{"", "g0", "Group 1", 0},
		{"  Status  ", "g1", "Status", 1},
		{"", "g2", "Group 3", 2},
		{"", "g3", "Group 4", 3},
		{"", "g4", "Group 5", 4},
		{"", "g5", "Group 6", 5},
		{"", "g6", "Group 7", 0},
	}
	for _, tc := range testCases {
		g, err := s.CreateFromSelection([]grid.Position{pos(0, 0)}, tc.label)
		if err != nil {
			t.Fatalf("CreateFromSelection: %v", err)
		}
		if g.ID != tc.wantID || g.Label != tc.wantLabel || g.ColorIndex != tc.wantColor {
			t.Errorf("group = %s/%q/%d, want %s/%q/%d",
				g.ID, g.Label, g.ColorIndex, tc.wantID, tc.wantLabel, tc.wantColor)
		}
		if g.Type != TypeFlags || g.DecoderSource != DefaultDecoder || g.FlagsDescriptionSource != DefaultFlagsDescriptions {
			t.Errorf("group %s lacks defaults", g.ID)
		}
	}
	logger.Info("✅ Allocation order verified", "groups", s.Len())
}

func TestCreateCollapsesDuplicateBits(t *testing.T) {
	s := NewStore(testLogger())
	g, err := s.CreateFromSelection([]grid.Position{pos(0, 3), pos(0, 1), pos(0, 3)}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Bits) != 2 || g.Bits[0] != pos(0, 3) || g.Bits[1] != pos(0, 1) {
		t.Errorf("Bits = %v, want [0.3 0.1]", g.Bits)
	}
}

func TestDeleteAndList(t *testing.T) {
	s := NewStore(testLogger())
	a, _ := s.CreateFromSelection([]grid.Position{pos(0, 0)}, "a")
	b, _ := s.CreateFromSelection([]grid.Position{pos(0, 1)}, "b")
	c, _ := s.CreateFromSelection([]grid.Position{pos(0, 2)}, "c")

	if !s.Delete(b.ID) {
		t.Fatal("Delete existing returned false")
	}
	if s.Delete("missing") {
		t.Error("Delete missing returned true")
	}
	list := s.List()
	if len(list) != 2 || list[0] != a || list[1] != c {
		t.Errorf("List() after delete = %v", list)
	}

	d, _ := s.CreateFromSelection([]grid.Position{pos(0, 3)}, "")
	if d.ID != "g3" {
		t.Errorf("id after delete = %s, want g3 (counter never reused)", d.ID)
	}
}

func TestUpdate(t *testing.T) {
	s := NewStore(testLogger())
	g, _ := s.CreateFromSelection([]grid.Position{pos(0, 0)}, "orig")

	blank := "   "
	if err := s.Update(g.ID, Patch{Label: &blank}); err != nil {
		t.Fatal(err)
	}
	if g.Label != "orig" {
		t.Errorf("blank label replaced label: %q", g.Label)
	}

	label := "renamed"
	typ := TypeValue
	src := "function decode(bits){return 1;}"
	if err := s.Update(g.ID, Patch{Label: &label, Type: &typ, DecoderSource: &src}); err != nil {
		t.Fatal(err)
	}
	if g.Label != "renamed" || g.Type != TypeValue || g.DecoderSource != src {
		t.Errorf("update not applied: %+v", g)
	}

	bad := Type("bogus")
	if err := s.Update(g.ID, Patch{Type: &bad}); !errors.Is(err, bverrors.ErrInvalidType) {
		t.Errorf("bad type err = %v", err)
	}
	if err := s.Update("nope", Patch{Label: &label}); !errors.Is(err, bverrors.ErrGroupNotFound) {
		t.Errorf("missing group err = %v", err)
	}
}

func TestByteRemoved(t *testing.T) {
	s := NewStore(testLogger())
	whole, _ := s.CreateFromSelection([]grid.Position{pos(2, 0), pos(2, 1)}, "whole")
	partial, _ := s.CreateFromSelection([]grid.Position{pos(1, 0), pos(2, 5), pos(0, 7)}, "partial")
	untouched, _ := s.CreateFromSelection([]grid.Position{pos(0, 0)}, "untouched")

	if !s.ByteInUse(2) || s.ByteInUse(3) {
		t.Fatal("ByteInUse mismatch")
	}

	s.ByteRemoved(2)

	if _, ok := s.Get(whole.ID); ok {
		t.Error("group with all bits in removed byte survived")
	}
	if got, ok := s.Get(partial.ID); !ok || len(got.Bits) != 2 || got.Bits[0] != pos(1, 0) || got.Bits[1] != pos(0, 7) {
		t.Errorf("partial group = %+v, want bits [1.0 0.7]", got)
	}
	if got, ok := s.Get(untouched.ID); !ok || len(got.Bits) != 1 {
		t.Error("untouched group changed")
	}
}

func TestGroupsAt(t *testing.T) {
	s := NewStore(testLogger())
	a, _ := s.CreateFromSelection([]grid.Position{pos(0, 0), pos(0, 1)}, "a")
	b, _ := s.CreateFromSelection([]grid.Position{pos(0, 1)}, "b")

	at := s.GroupsAt(pos(0, 1))
	if len(at) != 2 || at[0] != a || at[1] != b {
		t.Errorf("GroupsAt(0.1) = %v", at)
	}
	if len(s.GroupsAt(pos(0, 5))) != 0 {
		t.Error("GroupsAt(0.5) should be empty")
	}
}

func TestAdopt(t *testing.T) {
	logger := testLogger()
	s := NewStore(logger)
	bits := []grid.Position{pos(0, 0)}

	g, err := s.Adopt(Group{ID: " g7 ", Label: "", Type: "value", Bits: bits, ColorIndex: -1})
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "g7" || g.Label != "g7" || g.Type != TypeValue || g.ColorIndex != 5 {
		t.Errorf("adopted = %+v", g)
	}
	if g.DecoderSource != DefaultDecoder || g.FlagsDescriptionSource != DefaultFlagsDescriptions {
		t.Error("blank sources not defaulted")
	}
	if s.Counter() != 8 {
		t.Errorf("counter = %d, want 8", s.Counter())
	}

	dup, _ := s.Adopt(Group{ID: "g7", Label: "dup", Bits: bits, Type: "weird"})
	if dup.ID != "g8" || dup.Type != TypeFlags {
		t.Errorf("colliding id -> %s/%s, want g8/flags", dup.ID, dup.Type)
	}

	named, _ := s.Adopt(Group{ID: "custom", Label: "c", Bits: bits})
	if named.ID != "custom" || s.Counter() != 9 {
		t.Errorf("custom id -> %s counter %d", named.ID, s.Counter())
	}

	fresh, _ := s.Adopt(Group{Bits: bits})
	if fresh.ID != "g9" {
		t.Errorf("blank id -> %s, want g9", fresh.ID)
	}

	if _, err := s.Adopt(Group{ID: "g20"}); !errors.Is(err, bverrors.ErrEmptySelection) {
		t.Errorf("adopt without bits err = %v", err)
	}
	logger.Info("✅ Adopt id rules verified")
}

func TestAdoptIgnoresNonNumericIDs(t *testing.T) {
	s := NewStore(testLogger())
	bits := []grid.Position{pos(0, 0)}
	// "g0x" does not match the allocator pattern, so it does not move the counter.
	if _, err := s.Adopt(Group{ID: "g0x", Bits: bits}); err != nil {
		t.Fatal(err)
	}
	if s.Counter() != 0 {
		t.Fatalf("counter = %d, want 0", s.Counter())
	}
	g, err := s.Adopt(Group{Bits: bits})
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "g0" || s.Counter() != 1 {
		t.Fatalf("fresh id = %s counter %d, want g0 counter 1", g.ID, s.Counter())
	}
}

func TestWrapColor(t *testing.T) {
	for in, want := range map[int]int{0: 0, 5: 5, 6: 0, 13: 1, -1: 5, -7: 5} {
		if got := WrapColor(in); got != want {
			t.Errorf("WrapColor(%d) = %d, want %d", in, got, want)
		}
	}
	if len(Palette) != PaletteSize || len(PaletteHex) != PaletteSize {
		t.Error("palette size mismatch")
	}
}
