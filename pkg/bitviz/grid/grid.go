// Package grid holds the byte sequence behind the visualizer and the
// bit/byte ordering transforms applied when it is viewed.
//
// Storage is always in insertion order with bit 0 as the most significant
// bit of its byte. BitOrder and ByteOrder never touch storage; they only
// change how bits and bytes are presented or combined.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
)

// BitsPerByte is the number of addressable bits in one stored byte.
const BitsPerByte = 8

// BitOrder selects the traversal direction of bits within a group.
type BitOrder string

const (
	BitOrderMSB BitOrder = "msb"
	BitOrderLSB BitOrder = "lsb"
)

// ParseBitOrder returns BitOrderLSB only for the exact string "lsb".
func ParseBitOrder(s string) BitOrder {
	if s == string(BitOrderLSB) {
		return BitOrderLSB
	}
	return BitOrderMSB
}

// ByteOrder selects which stored byte is most significant when bytes are
// combined into a hex value or byte array.
type ByteOrder string

const (
	ByteOrderMSByte ByteOrder = "msbyte"
	ByteOrderLSByte ByteOrder = "lsbyte"
)

// ParseByteOrder returns ByteOrderLSByte only for the exact string "lsbyte".
func ParseByteOrder(s string) ByteOrder {
	if s == string(ByteOrderLSByte) {
		return ByteOrderLSByte
	}
	return ByteOrderMSByte
}

// Position addresses one stored bit.
type Position struct {
	ByteIndex int `json:"byteIndex" cbor:"byteIndex"`
	BitIndex  int `json:"bitIndex" cbor:"bitIndex"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d.%d", p.ByteIndex, p.BitIndex)
}

// ParsePosition parses the "byte.bit" form produced by Position.String.
func ParsePosition(s string) (Position, error) {
	byteStr, bitStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Position{}, fmt.Errorf("%w: %q is not byte.bit", bverrors.ErrPositionRange, s)
	}
	byteIndex, err := strconv.Atoi(byteStr)
	if err != nil {
		return Position{}, fmt.Errorf("%w: byte %q", bverrors.ErrPositionRange, byteStr)
	}
	bitIndex, err := strconv.Atoi(bitStr)
	if err != nil {
		return Position{}, fmt.Errorf("%w: bit %q", bverrors.ErrPositionRange, bitStr)
	}
	return Position{ByteIndex: byteIndex, BitIndex: bitIndex}, nil
}

// Membership is implemented by the owner of group definitions. The grid
// consults it before dropping its last byte and tells it afterwards.
type Membership interface {
	ByteInUse(byteIndex int) bool
	ByteRemoved(byteIndex int)
}

// Grid is the ordered byte storage. It is not safe for concurrent use.
type Grid struct {
	bytes     []byte
	bitOrder  BitOrder
	byteOrder ByteOrder
	members   Membership
	logger    hclog.Logger
}

// New creates a grid holding a single zero byte.
func New(logger hclog.Logger) *Grid {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Grid{
		bytes:     []byte{0},
		bitOrder:  BitOrderMSB,
		byteOrder: ByteOrderMSByte,
		logger:    logger,
	}
}

// SetMembership attaches the group owner consulted on byte removal.
func (g *Grid) SetMembership(m Membership) {
	g.members = m
}

// Len returns the number of stored bytes.
func (g *Grid) Len() int {
	return len(g.bytes)
}

// Bytes returns a copy of the bytes in storage order.
func (g *Grid) Bytes() []byte {
	out := make([]byte, len(g.bytes))
	copy(out, g.bytes)
	return out
}

func (g *Grid) BitOrder() BitOrder   { return g.bitOrder }
func (g *Grid) ByteOrder() ByteOrder { return g.byteOrder }

// SetBitOrder changes the display bit order. Storage is untouched.
func (g *Grid) SetBitOrder(order BitOrder) {
	g.bitOrder = ParseBitOrder(string(order))
}

// SetByteOrder changes the byte combination order. Storage is untouched.
func (g *Grid) SetByteOrder(order ByteOrder) {
	g.byteOrder = ParseByteOrder(string(order))
}

// AddByte appends a zero byte.
func (g *Grid) AddByte() {
	g.bytes = append(g.bytes, 0)
	g.logger.Trace("➕ Added byte", "count", len(g.bytes))
}

// CanRemoveLastByte reports whether RemoveLastByte would succeed.
func (g *Grid) CanRemoveLastByte() bool {
	if len(g.bytes) <= 1 {
		return false
	}
	return g.members == nil || !g.members.ByteInUse(len(g.bytes)-1)
}

// RemoveLastByte drops the last stored byte. It refuses when only one byte
// remains or when any bit of the last byte belongs to a group; the grid is
// unchanged in both cases.
func (g *Grid) RemoveLastByte() error {
	if len(g.bytes) <= 1 {
		return bverrors.ErrMinimumBytes
	}
	last := len(g.bytes) - 1
	if g.members != nil && g.members.ByteInUse(last) {
		g.logger.Debug("🔒 Last byte is grouped, refusing removal", "byte", last)
		return bverrors.ErrLastByteInUse
	}
	g.bytes = g.bytes[:last]
	if g.members != nil {
		g.members.ByteRemoved(last)
	}
	g.logger.Trace("➖ Removed byte", "count", len(g.bytes))
	return nil
}

// SetBytes writes values in storage order, growing or shrinking the grid to
// match. Shrinking stops at the first refused removal, so the grid may end
// up longer than values; the extra bytes keep their previous contents.
// Empty input is treated as a single zero byte.
func (g *Grid) SetBytes(values []byte) {
	if len(values) == 0 {
		values = []byte{0}
	}
	for len(g.bytes) < len(values) {
		g.AddByte()
	}
	for len(g.bytes) > len(values) {
		if err := g.RemoveLastByte(); err != nil {
			g.logger.Debug("Stopped shrinking grid", "want", len(values), "have", len(g.bytes), "error", err)
			break
		}
	}
	copy(g.bytes, values)
}

// SetValues normalizes arbitrary numbers into bytes and applies them with
// SetByteArray, so values are read in the current byte order. Non-finite
// numbers become 0; everything else wraps modulo 256 and is truncated to
// an integer.
func (g *Grid) SetValues(values []float64) {
	g.SetByteArray(NormalizeValues(values))
}

// NormalizeValues maps numbers onto bytes; see SetValues.
func NormalizeValues(values []float64) []byte {
	if len(values) == 0 {
		return []byte{0}
	}
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = NormalizeByte(v)
	}
	return out
}

// NormalizeByte wraps n into [0,256) as ((n % 256) + 256) % 256.
func NormalizeByte(n float64) byte {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	m := math.Mod(math.Mod(n, 256)+256, 256)
	return byte(int(m))
}

// ByteArray returns the bytes in byte order: reversed storage for lsbyte.
func (g *Grid) ByteArray() []byte {
	out := g.Bytes()
	if g.byteOrder == ByteOrderLSByte {
		reverseBytes(out)
	}
	return out
}

// SetByteArray is the inverse of ByteArray: values are interpreted in the
// current byte order and stored through SetBytes.
func (g *Grid) SetByteArray(values []byte) {
	ordered := make([]byte, len(values))
	copy(ordered, values)
	if g.byteOrder == ByteOrderLSByte {
		reverseBytes(ordered)
	}
	g.SetBytes(ordered)
}

// Valid reports whether p addresses a stored bit.
func (g *Grid) Valid(p Position) bool {
	return p.ByteIndex >= 0 && p.ByteIndex < len(g.bytes) &&
		p.BitIndex >= 0 && p.BitIndex < BitsPerByte
}

// Bit returns the value of one stored bit; bit 0 is the MSB.
func (g *Grid) Bit(p Position) (int, error) {
	if !g.Valid(p) {
		return 0, fmt.Errorf("%w: %s", bverrors.ErrPositionRange, p)
	}
	return int(g.bytes[p.ByteIndex]>>(7-p.BitIndex)) & 1, nil
}

// SetBit writes one stored bit.
func (g *Grid) SetBit(p Position, value int) error {
	if !g.Valid(p) {
		return fmt.Errorf("%w: %s", bverrors.ErrPositionRange, p)
	}
	mask := byte(1) << (7 - p.BitIndex)
	switch value {
	case 0:
		g.bytes[p.ByteIndex] &^= mask
	case 1:
		g.bytes[p.ByteIndex] |= mask
	default:
		return fmt.Errorf("%w: %d", bverrors.ErrInvalidBitValue, value)
	}
	return nil
}

// ToggleBit flips one stored bit and returns its new value.
func (g *Grid) ToggleBit(p Position) (int, error) {
	if !g.Valid(p) {
		return 0, fmt.Errorf("%w: %s", bverrors.ErrPositionRange, p)
	}
	g.bytes[p.ByteIndex] ^= byte(1) << (7 - p.BitIndex)
	return g.Bit(p)
}

// Values returns the 0/1 value of each position in the given order.
// Positions that no longer address a stored bit read as 0.
func (g *Grid) Values(positions []Position) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		if v, err := g.Bit(p); err == nil {
			out[i] = v
		}
	}
	return out
}

// SetBits lists every bit that is on, in storage order.
func (g *Grid) SetBits() []Position {
	var out []Position
	for byteIndex, b := range g.bytes {
		for bitIndex := 0; bitIndex < BitsPerByte; bitIndex++ {
			if (b>>(7-bitIndex))&1 == 1 {
				out = append(out, Position{ByteIndex: byteIndex, BitIndex: bitIndex})
			}
		}
	}
	return out
}

// Reset restores a single zero byte with default orders. Callers must clear
// group membership first or the shrink stops early.
func (g *Grid) Reset() {
	g.bitOrder = BitOrderMSB
	g.byteOrder = ByteOrderMSByte
	g.SetBytes([]byte{0})
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
