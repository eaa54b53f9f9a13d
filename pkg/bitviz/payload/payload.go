// Package payload builds and applies the versioned configuration document
// that captures a grid and its groups.
package payload

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/jsnum"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

// Version is the payload format version written by Build.
const Version = 1

// TimestampLayout matches JavaScript Date.prototype.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Group is one serialized group.
type Group struct {
	ID                     string          `json:"id" cbor:"id"`
	Label                  string          `json:"label" cbor:"label"`
	Type                   string          `json:"type" cbor:"type"`
	DecoderSource          string          `json:"decoderSource" cbor:"decoderSource"`
	FlagsDescriptionSource string          `json:"flagsDescriptionSource" cbor:"flagsDescriptionSource"`
	ColorIndex             int             `json:"colorIndex" cbor:"colorIndex"`
	Bits                   []grid.Position `json:"bits" cbor:"bits"`
}

// Payload is the version 1 configuration document. Field order matches
// the exported JSON.
type Payload struct {
	Version    int              `json:"version" cbor:"version"`
	ExportedAt string           `json:"exportedAt" cbor:"exportedAt"`
	BitOrder   string           `json:"bitOrder" cbor:"bitOrder"`
	ByteOrder  string           `json:"byteOrder" cbor:"byteOrder"`
	Bytes      []int            `json:"bytes" cbor:"bytes"`
	Groups     []Group          `json:"groups" cbor:"groups"`
	SetBits    *[]grid.Position `json:"setBits,omitempty" cbor:"setBits,omitempty"`
	Hex        string           `json:"hex" cbor:"hex"`
}

// Build captures the grid and groups. Bytes are listed in byte-order view
// and hex is the untrimmed uppercase form of those bytes.
func Build(g *grid.Grid, store *groups.Store, includeSetBits bool, now time.Time) *Payload {
	ordered := g.ByteArray()
	p := &Payload{
		Version:    Version,
		ExportedAt: now.UTC().Format(TimestampLayout),
		BitOrder:   string(g.BitOrder()),
		ByteOrder:  string(g.ByteOrder()),
		Bytes:      make([]int, len(ordered)),
		Groups:     make([]Group, 0, store.Len()),
		Hex:        grid.FullHex(ordered),
	}
	for i, b := range ordered {
		p.Bytes[i] = int(b)
	}
	for _, grp := range store.List() {
		p.Groups = append(p.Groups, Group{
			ID:                     grp.ID,
			Label:                  grp.Label,
			Type:                   string(grp.Type),
			DecoderSource:          grp.DecoderSource,
			FlagsDescriptionSource: grp.FlagsDescriptionSource,
			ColorIndex:             grp.ColorIndex,
			Bits:                   append([]grid.Position{}, grp.Bits...),
		})
	}
	if includeSetBits {
		set := g.SetBits()
		if set == nil {
			set = []grid.Position{}
		}
		p.SetBits = &set
	}
	return p
}

// Apply replaces the grid contents and every group with an untrusted
// decoded document. Orders are applied before bytes so that the bytes
// are read in the byte order they were exported in. Unusable group
// entries and coordinates are skipped.
func Apply(doc any, g *grid.Grid, store *groups.Store, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var fields map[string]any
	switch v := doc.(type) {
	case map[string]any:
		fields = v
	case []any:
		fields = map[string]any{}
	default:
		return bverrors.ErrMalformedPayload
	}

	store.Clear()
	g.SetBitOrder(grid.ParseBitOrder(stringField(fields, "bitOrder")))
	g.SetByteOrder(grid.ParseByteOrder(stringField(fields, "byteOrder")))

	var values []float64
	if raw, ok := fields["bytes"].([]any); ok {
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = jsnum.Value(v)
		}
	}
	g.SetValues(values)

	entries, _ := fields["groups"].([]any)
	adopted := 0
	for i, entry := range entries {
		in, ok := groupFromEntry(entry, g, store.Len())
		if !ok {
			logger.Debug("Skipping unusable group entry", "index", i)
			continue
		}
		if _, err := store.Adopt(in); err != nil {
			logger.Debug("Skipping group entry", "index", i, "error", err)
			continue
		}
		adopted++
	}

	logger.Debug("📥 Applied configuration",
		"bytes", g.Len(), "bitOrder", g.BitOrder(), "byteOrder", g.ByteOrder(),
		"groups", adopted, "entries", len(entries))
	return nil
}

// groupFromEntry converts one serialized group. It reports false when the
// entry is not an object or none of its coordinates address a live bit.
func groupFromEntry(entry any, g *grid.Grid, existing int) (groups.Group, bool) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return groups.Group{}, false
	}

	coords, _ := fields["bits"].([]any)
	var bits []grid.Position
	seen := map[grid.Position]bool{}
	for _, c := range coords {
		p, ok := positionFromEntry(c)
		if !ok || !g.Valid(p) || seen[p] {
			continue
		}
		seen[p] = true
		bits = append(bits, p)
	}
	if len(bits) == 0 {
		return groups.Group{}, false
	}

	color := existing
	if raw, present := fields["colorIndex"]; present {
		if n := jsnum.Value(raw); jsnum.Finite(n) {
			color = int(math.Mod(n, groups.PaletteSize))
		}
	}

	return groups.Group{
		ID:                     stringField(fields, "id"),
		Label:                  stringField(fields, "label"),
		Type:                   groups.ParseType(stringField(fields, "type")),
		Bits:                   bits,
		ColorIndex:             groups.WrapColor(color),
		DecoderSource:          stringField(fields, "decoderSource"),
		FlagsDescriptionSource: stringField(fields, "flagsDescriptionSource"),
	}, true
}

func positionFromEntry(entry any) (grid.Position, bool) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return grid.Position{}, false
	}
	byteIndex, ok := index(fields, "byteIndex")
	if !ok {
		return grid.Position{}, false
	}
	bitIndex, ok := index(fields, "bitIndex")
	if !ok {
		return grid.Position{}, false
	}
	return grid.Position{ByteIndex: byteIndex, BitIndex: bitIndex}, true
}

// index reads a non-negative whole number field.
func index(fields map[string]any, key string) (int, bool) {
	raw, present := fields[key]
	if !present {
		return 0, false
	}
	n := jsnum.Value(raw)
	if !jsnum.Finite(n) || n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// stringField returns a string field, or "" for any other type.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// Summary is a one-line description used in status messages.
func (p *Payload) Summary() string {
	set := "no set bits"
	if p.SetBits != nil {
		set = fmt.Sprintf("%d set bits", len(*p.SetBits))
	}
	return fmt.Sprintf("%d bytes, %d groups, %s, %s/%s, %s",
		len(p.Bytes), len(p.Groups), set, p.BitOrder, p.ByteOrder, p.Hex)
}
