package decode

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// FlagRow is the per-bit editing view of a flags description map.
type FlagRow struct {
	Bit int
	On  string
	Off string
}

// RowsFromSource expands a description map into one row per bit. Invalid
// or non-object JSON yields empty rows.
func RowsFromSource(source string, totalBits int) []FlagRow {
	var parsed any
	entries := map[string]any{}
	if json.Unmarshal([]byte(source), &parsed) == nil {
		if m, ok := parsed.(map[string]any); ok {
			entries = m
		}
	}

	rows := make([]FlagRow, totalBits)
	for i := range rows {
		rows[i].Bit = i
		switch v := entries[strconv.Itoa(i)].(type) {
		case map[string]any:
			rows[i].On, _ = v["1"].(string)
			rows[i].Off, _ = v["0"].(string)
		case string:
			if on, off, found := strings.Cut(v, "|"); found {
				rows[i].On = on
				rows[i].Off = strings.SplitN(off, "|", 2)[0]
			} else {
				rows[i].On = v
			}
		}
	}
	return rows
}

// SourceFromRows serializes rows back into a description map. Rows with
// both labels become {"1":on,"0":off}, rows with only an on-label become a
// plain string and rows with only an off-label become {"0":off}. Keys are
// written in ascending bit order.
func SourceFromRows(rows []FlagRow) (string, error) {
	entries := map[int]any{}
	for _, r := range rows {
		if r.Bit < 0 {
			continue
		}
		on := strings.TrimSpace(r.On)
		off := strings.TrimSpace(r.Off)
		switch {
		case on != "" && off != "":
			entries[r.Bit] = map[string]string{"1": on, "0": off}
		case on != "":
			entries[r.Bit] = on
		case off != "":
			entries[r.Bit] = map[string]string{"0": off}
		}
	}

	bits := make([]int, 0, len(entries))
	for b := range entries {
		bits = append(bits, b)
	}
	sort.Ints(bits)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range bits {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(b)))
		buf.WriteByte(':')
		if err := writeJSON(&buf, entries[b]); err != nil {
			return "", err
		}
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// SetRow returns source with the row for one bit replaced. The row set
// grows to cover bit when it lies past totalBits.
func SetRow(source string, totalBits int, row FlagRow) (string, error) {
	if row.Bit >= totalBits {
		totalBits = row.Bit + 1
	}
	rows := RowsFromSource(source, totalBits)
	if row.Bit >= 0 {
		rows[row.Bit] = row
	}
	return SourceFromRows(rows)
}
