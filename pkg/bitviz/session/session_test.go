package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/decode"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "session_test",
		Level: hclog.Trace,
	})
}

func pos(byteIndex, bitIndex int) grid.Position {
	return grid.Position{ByteIndex: byteIndex, BitIndex: bitIndex}
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func newSession() *Session {
	return New(testLogger(), Options{Now: fixedClock})
}

func TestOutputsFollowMutations(t *testing.T) {
	s := newSession()
	if err := s.Select(pos(0, 0), pos(0, 1)); err != nil {
		t.Fatal(err)
	}
	g, err := s.GroupSelection("status")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Selection()) != 0 {
		t.Error("selection not cleared after grouping")
	}

	out, _ := s.Output(g.ID)
	if out.Text != "Labels:\n0: No Flag 0\n1: Flag 1 clear" {
		t.Errorf("initial output = %q", out.Text)
	}

	if _, err := s.ToggleBit(pos(0, 0)); err != nil {
		t.Fatal(err)
	}
	out, _ = s.Output(g.ID)
	if out.Text != "Labels:\n0: Flag 0\n1: Flag 1 clear" {
		t.Errorf("after toggle = %q", out.Text)
	}

	s.SetBitOrder(grid.BitOrderLSB)
	out, _ = s.Output(g.ID)
	if out.Text != "Labels:\n0: No Flag 0\n1: Flag 1 set" {
		t.Errorf("after bit order = %q", out.Text)
	}

	typ := groups.TypeValue
	if err := s.UpdateGroup(g.ID, groups.Patch{Type: &typ}); err != nil {
		t.Fatal(err)
	}
	out, _ = s.Output(g.ID)
	if out.Display() != "Decoded: 2" {
		t.Errorf("value display = %q", out.Display())
	}

	s.DeleteGroup(g.ID)
	if len(s.Outputs()) != 0 {
		t.Error("outputs kept a deleted group")
	}
}

func TestRemoveLastByteRules(t *testing.T) {
	s := newSession()
	if err := s.RemoveLastByte(); !errors.Is(err, bverrors.ErrMinimumBytes) {
		t.Errorf("single byte removal err = %v", err)
	}

	s.AddByte()
	s.AddByte()
	if err := s.Select(pos(1, 4)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GroupSelection(""); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(pos(2, 0)); err != nil {
		t.Fatal(err)
	}

	if !s.CanRemoveLastByte() {
		t.Fatal("ungrouped last byte should be removable")
	}
	if err := s.RemoveLastByte(); err != nil {
		t.Fatal(err)
	}
	if s.Grid().Len() != 2 || len(s.Selection()) != 0 {
		t.Errorf("len = %d selection = %v", s.Grid().Len(), s.Selection())
	}

	if s.CanRemoveLastByte() {
		t.Error("grouped last byte reported removable")
	}
	if err := s.RemoveLastByte(); !errors.Is(err, bverrors.ErrLastByteInUse) {
		t.Errorf("grouped removal err = %v", err)
	}
	if s.Grid().Len() != 2 {
		t.Error("refused removal changed the grid")
	}
}

func TestSelection(t *testing.T) {
	s := newSession()
	s.AddByte()
	if err := s.Select(pos(1, 2), pos(0, 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(pos(3, 0)); !errors.Is(err, bverrors.ErrPositionRange) {
		t.Errorf("out of range select err = %v", err)
	}
	if on, _ := s.ToggleSelect(pos(0, 1)); !on {
		t.Error("toggle did not select")
	}
	if on, _ := s.ToggleSelect(pos(1, 2)); on {
		t.Error("toggle did not deselect")
	}

	sel := s.Selection()
	if len(sel) != 2 || sel[0] != pos(0, 1) || sel[1] != pos(0, 5) {
		t.Errorf("Selection() = %v", sel)
	}

	if err := s.SetHex("0xFF"); err != nil {
		t.Fatal(err)
	}
	if len(s.Selection()) != 2 {
		t.Errorf("selection on kept byte dropped: %v", s.Selection())
	}

	s.ClearSelection()
	if _, err := s.GroupSelection("x"); !errors.Is(err, bverrors.ErrEmptySelection) {
		t.Errorf("empty group err = %v", err)
	}
}

func TestSetHexKeepsStateOnError(t *testing.T) {
	s := newSession()
	if err := s.SetHex("0x1234"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHex("0xZZ"); !errors.Is(err, bverrors.ErrInvalidHex) {
		t.Errorf("err = %v", err)
	}
	if got := s.Grid().Hex(); got != "0x1234" {
		t.Errorf("hex = %s", got)
	}
}

func TestSetFlagLabels(t *testing.T) {
	s := newSession()
	if err := s.Select(pos(0, 0)); err != nil {
		t.Fatal(err)
	}
	g, _ := s.GroupSelection("ready")
	if err := s.SetFlagLabels(g.ID, decode.FlagRow{Bit: 0, On: "Ready", Off: "Busy"}); err != nil {
		t.Fatal(err)
	}
	out, _ := s.Output(g.ID)
	if out.Text != "Labels:\n0: Busy" {
		t.Errorf("output = %q", out.Text)
	}
	if err := s.SetFlagLabels("nope", decode.FlagRow{}); !errors.Is(err, bverrors.ErrGroupNotFound) {
		t.Errorf("missing group err = %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newSession()
	if err := src.SetHex("0xBEEF"); err != nil {
		t.Fatal(err)
	}
	src.SetByteOrder(grid.ByteOrderLSByte)
	if err := src.Select(pos(0, 0), pos(1, 7)); err != nil {
		t.Fatal(err)
	}
	if _, err := src.GroupSelection("Überschrift ✓"); err != nil {
		t.Fatal(err)
	}

	text, err := src.ExportString("", true)
	if err != nil {
		t.Fatal(err)
	}

	dst := newSession()
	if err := dst.ImportString(text, ""); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst.Grid().Bytes(), src.Grid().Bytes()) || dst.Grid().Hex() != src.Grid().Hex() {
		t.Errorf("bytes = % X, want % X", dst.Grid().Bytes(), src.Grid().Bytes())
	}
	if dst.Grid().ByteOrder() != grid.ByteOrderLSByte {
		t.Error("byte order lost")
	}
	got := dst.Store().List()
	if len(got) != 1 || got[0].Label != "Überschrift ✓" || len(got[0].Bits) != 2 {
		t.Fatalf("groups = %+v", got)
	}
	if len(dst.Outputs()) != 1 {
		t.Error("outputs not refreshed after import")
	}

	if err := dst.ImportString("   ", ""); !errors.Is(err, bverrors.ErrEmptyConfig) {
		t.Errorf("blank import err = %v", err)
	}
	if dst.Store().Len() != 1 {
		t.Error("failed import modified groups")
	}
}

func TestReset(t *testing.T) {
	s := newSession()
	if err := s.SetHex("0xABCD"); err != nil {
		t.Fatal(err)
	}
	s.SetBitOrder(grid.BitOrderLSB)
	if err := s.Select(pos(1, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GroupSelection(""); err != nil {
		t.Fatal(err)
	}

	s.Reset()
	if s.Grid().Len() != 1 || s.Grid().Hex() != "0x0" || s.Store().Len() != 0 || len(s.Outputs()) != 0 {
		t.Errorf("reset left state: hex=%s groups=%d", s.Grid().Hex(), s.Store().Len())
	}
	if s.Grid().BitOrder() != grid.BitOrderMSB {
		t.Error("bit order not reset")
	}

	if err := s.Select(pos(0, 0)); err != nil {
		t.Fatal(err)
	}
	g, _ := s.GroupSelection("")
	if g.ID != "g1" {
		t.Errorf("id after reset = %s, want g1", g.ID)
	}
}
