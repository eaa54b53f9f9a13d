package grid

import (
	"encoding/hex"
	"fmt"
	"strings"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
)

// Hex renders ByteArray as an uppercase, 0x-prefixed value with leading
// zero digits trimmed to at least one digit.
func (g *Grid) Hex() string {
	return FormatHex(g.ByteArray())
}

// SetHex parses hex text and applies it through SetByteArray. Blank text is
// ignored. Text containing anything but hex digits (after dropping the
// optional 0x prefix, whitespace and underscores) is rejected and the grid
// is left untouched.
func (g *Grid) SetHex(text string) error {
	values, err := ParseHex(text)
	if err != nil {
		return err
	}
	if values == nil {
		return nil
	}
	g.SetByteArray(values)
	return nil
}

// FormatHex is the canonical hex display of b.
func FormatHex(b []byte) string {
	digits := strings.TrimLeft(strings.ToUpper(hex.EncodeToString(b)), "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}

// FullHex renders every byte of b as two uppercase digits after 0x.
func FullHex(b []byte) string {
	if len(b) == 0 {
		return "0x0"
	}
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// ParseHex converts hex text into bytes, most significant byte first.
// It returns nil, nil for blank text, and []byte{0} when only a prefix or
// separators remain. Odd digit counts are padded with a leading zero.
func ParseHex(text string) ([]byte, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, nil
	}
	if len(raw) >= 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		raw = raw[2:]
	}
	raw = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v', '_':
			return -1
		}
		return r
	}, raw)
	if raw == "" {
		return []byte{0}, nil
	}
	for _, r := range raw {
		if !isHexDigit(r) {
			return nil, fmt.Errorf("%w: unexpected %q", bverrors.ErrInvalidHex, r)
		}
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	values, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bverrors.ErrInvalidHex, err)
	}
	return values, nil
}

// SanitizeHex mirrors the live filtering of the hex text field: keep an
// optional 0x prefix, drop every non-hex character and uppercase the rest.
func SanitizeHex(text string) string {
	s := strings.TrimSpace(text)
	prefix := ""
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		prefix = "0x"
		s = s[2:]
	}
	s = strings.Map(func(r rune) rune {
		if isHexDigit(r) {
			return r
		}
		return -1
	}, s)
	return prefix + strings.ToUpper(s)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
