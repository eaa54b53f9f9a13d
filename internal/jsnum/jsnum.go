// Package jsnum converts between loosely typed document values and numbers
// using JavaScript Number() and String() rules.
package jsnum

import (
	"math"
	"strconv"
	"strings"
)

// Parse converts text the way Number(text) does. ok is false when the
// result would be NaN or infinite.
func Parse(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, true
	}
	if strings.Contains(t, "_") {
		return 0, false
	}
	if len(t) > 2 && t[0] == '0' {
		base := 0
		switch t[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(t[2:], base, 64)
			return float64(n), err == nil
		}
	}
	lower := strings.ToLower(t)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "x") {
		return 0, false
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Value converts a decoded JSON or CBOR value with Number() semantics.
// Objects and unparseable strings yield NaN.
func Value(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		if n, ok := Parse(x); ok {
			return n
		}
		return math.NaN()
	case []any:
		switch len(x) {
		case 0:
			return 0
		case 1:
			if _, isBool := x[0].(bool); !isBool {
				return Value(x[0])
			}
		}
	}
	return math.NaN()
}

// Finite reports whether n is neither NaN nor infinite.
func Finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// Format renders a number the way String(n) does for the common cases.
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
