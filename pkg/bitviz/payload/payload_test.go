package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "payload_test",
		Level: hclog.Trace,
	})
}

func newState(logger hclog.Logger) (*grid.Grid, *groups.Store) {
	g := grid.New(logger)
	s := groups.NewStore(logger)
	g.SetMembership(s)
	return g, s
}

func pos(byteIndex, bitIndex int) grid.Position {
	return grid.Position{ByteIndex: byteIndex, BitIndex: bitIndex}
}

var exportTime = time.Date(2024, 3, 9, 14, 5, 6, 789000000, time.FixedZone("X", 3600))

func TestBuild(t *testing.T) {
	g, s := newState(testLogger())
	g.SetBytes([]byte{0x00, 0x0F})
	if _, err := s.CreateFromSelection([]grid.Position{pos(1, 7), pos(1, 6)}, "low"); err != nil {
		t.Fatal(err)
	}

	p := Build(g, s, false, exportTime)
	if p.Version != 1 || p.ExportedAt != "2024-03-09T13:05:06.789Z" {
		t.Errorf("header = %d %q", p.Version, p.ExportedAt)
	}
	if p.BitOrder != "msb" || p.ByteOrder != "msbyte" {
		t.Errorf("orders = %s/%s", p.BitOrder, p.ByteOrder)
	}
	if len(p.Bytes) != 2 || p.Bytes[0] != 0 || p.Bytes[1] != 15 || p.Hex != "0x000F" {
		t.Errorf("bytes = %v hex = %s", p.Bytes, p.Hex)
	}
	if p.SetBits != nil {
		t.Error("setBits present without request")
	}
	if len(p.Groups) != 1 || p.Groups[0].Bits[0] != pos(1, 7) || p.Groups[0].Type != "flags" {
		t.Errorf("groups = %+v", p.Groups)
	}

	if got := p.Summary(); got != "2 bytes, 1 groups, no set bits, msb/msbyte, 0x000F" {
		t.Errorf("Summary() = %q", got)
	}

	withSet := Build(g, s, true, exportTime)
	if withSet.SetBits == nil || len(*withSet.SetBits) != 4 {
		t.Fatalf("setBits = %v", withSet.SetBits)
	}
	if got := withSet.Summary(); !strings.Contains(got, "4 set bits") {
		t.Errorf("Summary() = %q", got)
	}

	g.SetByteOrder(grid.ByteOrderLSByte)
	if p := Build(g, s, false, exportTime); p.Bytes[0] != 15 || p.Hex != "0x0F00" {
		t.Errorf("lsbyte bytes = %v hex = %s", p.Bytes, p.Hex)
	}
}

func TestMarshalJSONFieldOrder(t *testing.T) {
	g, s := newState(testLogger())
	p := Build(g, s, true, exportTime)
	raw, err := MarshalJSON(p)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "{\n  \"version\": 1,\n  \"exportedAt\":") {
		t.Errorf("unexpected prefix:\n%s", text)
	}
	order := []string{`"version"`, `"exportedAt"`, `"bitOrder"`, `"byteOrder"`, `"bytes"`, `"groups": []`, `"setBits": []`, `"hex": "0x00"`}
	last := -1
	for _, key := range order {
		i := strings.Index(text, key)
		if i <= last {
			t.Fatalf("%s out of order in:\n%s", key, text)
		}
		last = i
	}
}

func TestRoundTripAllEncodings(t *testing.T) {
	for _, encoding := range Names() {
		t.Run(encoding, func(t *testing.T) {
			logger := testLogger()
			g, s := newState(logger)
			g.SetBytes([]byte{0x12, 0x34, 0x00})
			g.SetBitOrder(grid.BitOrderLSB)
			g.SetByteOrder(grid.ByteOrderLSByte)
			a, _ := s.CreateFromSelection([]grid.Position{pos(0, 3), pos(1, 2), pos(0, 0)}, "Température °C ✓ 日本")
			b, _ := s.CreateFromSelection([]grid.Position{pos(2, 7)}, "<tag> & \"quotes\"")
			typ := groups.TypeValue
			src := "function decode(bits) { return bits.join('') + '→'; }"
			if err := s.Update(b.ID, groups.Patch{Type: &typ, DecoderSource: &src}); err != nil {
				t.Fatal(err)
			}

			text, err := EncodeString(Build(g, s, true, exportTime), encoding)
			if err != nil {
				t.Fatal(err)
			}
			doc, err := DecodeString(text, encoding)
			if err != nil {
				t.Fatal(err)
			}

			g2, s2 := newState(logger)
			if err := Apply(doc, g2, s2, logger); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(g2.Bytes(), g.Bytes()) {
				t.Errorf("bytes = % X, want % X", g2.Bytes(), g.Bytes())
			}
			if g2.BitOrder() != grid.BitOrderLSB || g2.ByteOrder() != grid.ByteOrderLSByte {
				t.Errorf("orders = %s/%s", g2.BitOrder(), g2.ByteOrder())
			}
			if g2.Hex() != g.Hex() {
				t.Errorf("hex = %s, want %s", g2.Hex(), g.Hex())
			}

			got := s2.List()
			if len(got) != 2 {
				t.Fatalf("groups = %d, want 2", len(got))
			}
			for i, want := range []*groups.Group{a, b} {
				have := got[i]
				if have.ID != want.ID || have.Label != want.Label || have.Type != want.Type ||
					have.DecoderSource != want.DecoderSource ||
					have.FlagsDescriptionSource != want.FlagsDescriptionSource ||
					have.ColorIndex != want.ColorIndex || len(have.Bits) != len(want.Bits) {
					t.Errorf("group %d = %+v, want %+v", i, have, want)
					continue
				}
				for j := range want.Bits {
					if have.Bits[j] != want.Bits[j] {
						t.Errorf("group %d bit %d = %s, want %s", i, j, have.Bits[j], want.Bits[j])
					}
				}
			}
			logger.Info("✅ Round trip verified", "encoding", encoding)
		})
	}
}

func TestApplyRejectsNonObject(t *testing.T) {
	g, s := newState(testLogger())
	g.SetBytes([]byte{0xAA})
	for _, doc := range []any{nil, "text", 3.0, true} {
		if err := Apply(doc, g, s, nil); !errors.Is(err, bverrors.ErrMalformedPayload) {
			t.Errorf("Apply(%v) err = %v", doc, err)
		}
	}
	if !bytes.Equal(g.Bytes(), []byte{0xAA}) {
		t.Error("rejected payload modified the grid")
	}
}

func TestApplyNormalizesBytes(t *testing.T) {
	g, s := newState(testLogger())
	doc := map[string]any{
		"bytes": []any{256.0, -1.0, "7", nil, 3.9, "x", true},
	}
	if err := Apply(doc, g, s, nil); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 255, 7, 0, 3, 0, 1}
	if !bytes.Equal(g.Bytes(), want) {
		t.Errorf("bytes = %v, want %v", g.Bytes(), want)
	}

	if err := Apply(map[string]any{"bytes": "nope", "bitOrder": "LSB"}, g, s, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(g.Bytes(), []byte{0}) || g.BitOrder() != grid.BitOrderMSB {
		t.Errorf("defaults not applied: % X %s", g.Bytes(), g.BitOrder())
	}
}

func TestApplyGroupEntries(t *testing.T) {
	logger := testLogger()
	g, s := newState(logger)
	if _, err := s.CreateFromSelection([]grid.Position{pos(0, 0)}, "stale"); err != nil {
		t.Fatal(err)
	}

	doc := map[string]any{
		"bytes": []any{0.0, 0.0},
		"groups": []any{
			"not an object",
			map[string]any{"id": "g3", "bits": []any{
				map[string]any{"byteIndex": 0.0, "bitIndex": 0.0},
				map[string]any{"byteIndex": 0.0, "bitIndex": 0.0},
				map[string]any{"byteIndex": "0", "bitIndex": " 1 "},
				map[string]any{"byteIndex": 5.0, "bitIndex": 0.0},
				map[string]any{"byteIndex": 0.0, "bitIndex": 8.0},
				map[string]any{"byteIndex": 0.5, "bitIndex": 1.0},
				map[string]any{"byteIndex": 1.0},
				"junk",
			}, "colorIndex": 7.0},
			map[string]any{"id": "g3", "label": "  dup  ", "type": "value", "bits": []any{
				map[string]any{"byteIndex": 1.0, "bitIndex": 7.0},
			}, "colorIndex": -1.0},
			map[string]any{"id": "lonely", "bits": []any{
				map[string]any{"byteIndex": 9.0, "bitIndex": 0.0},
			}},
			map[string]any{"id": 42.0, "bits": []any{
				map[string]any{"byteIndex": 1.0, "bitIndex": 0.0},
			}, "colorIndex": "x"},
		},
	}
	if err := Apply(doc, g, s, logger); err != nil {
		t.Fatal(err)
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("groups = %d, want 3: %+v", len(list), list)
	}
	first, second, third := list[0], list[1], list[2]
	if first.ID != "g3" || first.Label != "g3" || first.ColorIndex != 1 ||
		len(first.Bits) != 2 || first.Bits[0] != pos(0, 0) || first.Bits[1] != pos(0, 1) {
		t.Errorf("first = %+v", first)
	}
	if second.ID != "g4" || second.Label != "dup" || second.Type != groups.TypeValue || second.ColorIndex != 5 {
		t.Errorf("second = %+v", second)
	}
	if third.ID != "g5" || third.ColorIndex != 2 || third.DecoderSource != groups.DefaultDecoder {
		t.Errorf("third = %+v", third)
	}

	next, _ := s.CreateFromSelection([]grid.Position{pos(1, 1)}, "")
	if next.ID != "g6" {
		t.Errorf("next id = %s, want g6", next.ID)
	}
}

func TestDecodeString(t *testing.T) {
	g, s := newState(testLogger())
	text, err := EncodeString(Build(g, s, false, exportTime), "")
	if err != nil {
		t.Fatal(err)
	}

	spaced := text[:10] + "\n  " + text[10:] + "\n"
	if _, err := DecodeString(spaced, EncodingBase64); err != nil {
		t.Errorf("whitespace not ignored: %v", err)
	}
	if _, err := DecodeString(strings.TrimRight(text, "="), EncodingBase64); err != nil {
		t.Errorf("unpadded text rejected: %v", err)
	}

	testCases := []struct {
		name     string
		text     string
		encoding string
		want     error
	}{
		{"blank", " \n\t ", EncodingBase64, bverrors.ErrEmptyConfig},
		{"not base64", "!!!!", EncodingBase64, bverrors.ErrInvalidBase64},
		{"unknown encoding", text, "rot13", bverrors.ErrUnknownEncoding},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeString(tc.text, tc.encoding); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	notJSON := base64.StdEncoding.EncodeToString([]byte("{nope"))
	if _, err := DecodeString(notJSON, EncodingBase64); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestNames(t *testing.T) {
	if got := strings.Join(Names(), ","); got != "base64,bzip2,cbor,gzip" {
		t.Errorf("Names() = %s", got)
	}
}
