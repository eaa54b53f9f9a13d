// Package decode turns the bits of a group into display text, either by
// resolving a flags description map or by running a user value decoder.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/jsnum"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
)

// Result is the decoded text of one group plus any error met on the way.
// A non-empty Error does not imply an empty Text.
type Result struct {
	Text  string
	Error string
}

// descriptions is a parsed flags description map in iteration order.
type descriptions struct {
	keys   []string
	values map[string]any
}

func (d descriptions) has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Flags interprets a group as flags. values are the group's bit values in
// stored order. Labels are looked up against the bit-order adjusted
// values; the "Set:" fallback lists indices of the stored-order values.
func Flags(values []int, source string, order grid.BitOrder) Result {
	adjusted := values
	if order == grid.BitOrderLSB {
		adjusted = make([]int, len(values))
		for i, v := range values {
			adjusted[len(values)-1-i] = v
		}
	}

	desc, parseErr := parseDescriptions(source)
	errText := ""
	if parseErr != nil {
		errText = parseErr.Error()
	}

	var lines []string
	for _, key := range desc.keys {
		idx, ok := jsnum.Parse(key)
		if !ok {
			continue
		}
		bit := 0
		if idx == math.Trunc(idx) && idx >= 0 && idx < float64(len(adjusted)) {
			bit = adjusted[int(idx)]
		}
		if label := resolveLabel(desc.values[key], bit); label != "" {
			lines = append(lines, jsnum.Format(idx)+": "+label)
		}
	}
	if len(lines) > 0 {
		return Result{Text: "Labels:\n" + strings.Join(lines, "\n"), Error: errText}
	}

	var described []string
	for i, v := range values {
		if v != 1 {
			continue
		}
		key := strconv.Itoa(i)
		if desc.has(key) {
			described = append(described, key+":"+jsString(desc.values[key]))
		} else {
			described = append(described, key)
		}
	}
	if len(described) == 0 {
		return Result{Text: "Set: none", Error: errText}
	}
	return Result{Text: "Set: [" + strings.Join(described, ", ") + "]", Error: errText}
}

// resolveLabel picks the label of one description entry for a bit value.
func resolveLabel(raw any, bit int) string {
	want := "0"
	if bit == 1 {
		want = "1"
	}
	switch v := raw.(type) {
	case map[string]any:
		if s, ok := v[want].(string); ok {
			return s
		}
	case []any:
		i, _ := strconv.Atoi(want)
		if i < len(v) {
			if s, ok := v[i].(string); ok {
				return s
			}
		}
	case string:
		if strings.Contains(v, "|") {
			parts := strings.Split(v, "|")
			if bit == 1 {
				return parts[0]
			}
			return parts[1]
		}
		if bit == 1 {
			return v
		}
	}
	return ""
}

// parseDescriptions parses a description map. Arrays are treated as maps
// keyed by element index; any other JSON value yields an empty map. Keys
// follow JavaScript property order: canonical array indices ascending,
// then the remaining keys in document order.
func parseDescriptions(source string) (descriptions, error) {
	empty := descriptions{values: map[string]any{}}
	if source == "" {
		return empty, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(source), &parsed); err != nil {
		return empty, err
	}

	switch v := parsed.(type) {
	case map[string]any:
		return descriptions{keys: orderKeys(documentKeys(source)), values: v}, nil
	case []any:
		d := descriptions{values: make(map[string]any, len(v))}
		for i, item := range v {
			key := strconv.Itoa(i)
			d.keys = append(d.keys, key)
			d.values[key] = item
		}
		return d, nil
	}
	return empty, nil
}

// documentKeys returns the top-level object keys of a valid JSON document
// in first-occurrence order.
func documentKeys(source string) []string {
	dec := json.NewDecoder(strings.NewReader(source))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, _ := tok.(string)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

func orderKeys(keys []string) []string {
	var indices []uint64
	var rest []string
	for _, k := range keys {
		if n, ok := arrayIndex(k); ok {
			indices = append(indices, n)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	out := make([]string, 0, len(keys))
	for _, n := range indices {
		out = append(out, strconv.FormatUint(n, 10))
	}
	return append(out, rest...)
}

// arrayIndex reports whether k is a canonical array index.
func arrayIndex(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// jsString mirrors JavaScript string conversion for JSON values.
func jsString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return jsnum.Format(x)
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item != nil {
				parts[i] = jsString(item)
			}
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// Pretty re-indents a JSON document with two spaces.
func Pretty(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		source = "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(source), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
