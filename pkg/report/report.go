// Package report writes documents describing every group of a session:
// PDF, Markdown and HTML.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/decode"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/session"
)

// Title heads every report.
const Title = "BitDocumenter Groups"

// GeneratedLayout formats the generation time.
const GeneratedLayout = "2006-01-02 15:04:05 MST"

// Entry is one documented group.
type Entry struct {
	Group  *groups.Group
	Output decode.Output
}

// TypeLabel is "Value" or "Flags".
func (e Entry) TypeLabel() string {
	if e.Group.Type == groups.TypeValue {
		return "Value"
	}
	return "Flags"
}

// BitSummary lists the group's bits as "#1: Byte 0, Bit 3; ...", or
// "None".
func (e Entry) BitSummary() string {
	if len(e.Group.Bits) == 0 {
		return "None"
	}
	parts := make([]string, len(e.Group.Bits))
	for i, p := range e.Group.Bits {
		parts[i] = fmt.Sprintf("#%d: Byte %d, Bit %d", i+1, p.ByteIndex, p.BitIndex)
	}
	return strings.Join(parts, "; ")
}

// SourceHeading names the source block of the group.
func (e Entry) SourceHeading() string {
	if e.Group.Type == groups.TypeValue {
		return "Decode function:"
	}
	return "Flags description:"
}

// Source returns the decoder or flags source, trimmed, with the defaults
// standing in for blank sources.
func (e Entry) Source() string {
	if e.Group.Type == groups.TypeValue {
		if strings.TrimSpace(e.Group.DecoderSource) == "" {
			return strings.TrimSpace(groups.DefaultDecoder)
		}
		return strings.TrimSpace(e.Group.DecoderSource)
	}
	if strings.TrimSpace(e.Group.FlagsDescriptionSource) == "" {
		return strings.TrimSpace(groups.DefaultFlagsDescriptions)
	}
	return strings.TrimSpace(e.Group.FlagsDescriptionSource)
}

// Document is everything a report shows.
type Document struct {
	Generated time.Time
	Hex       string
	Bytes     int
	BitOrder  string
	ByteOrder string
	Entries   []Entry
}

// FromSession collects the groups of s in creation order. A session
// without groups yields ErrNoGroups.
func FromSession(s *session.Session, now time.Time) (*Document, error) {
	list := s.Store().List()
	if len(list) == 0 {
		return nil, bverrors.ErrNoGroups
	}
	doc := &Document{
		Generated: now,
		Hex:       s.Grid().Hex(),
		Bytes:     s.Grid().Len(),
		BitOrder:  string(s.Grid().BitOrder()),
		ByteOrder: string(s.Grid().ByteOrder()),
	}
	for _, g := range list {
		out, _ := s.Output(g.ID)
		doc.Entries = append(doc.Entries, Entry{Group: g, Output: out})
	}
	return doc, nil
}

// =================================
// Formats
// =================================

// Writer renders a document to w.
type Writer func(w io.Writer, doc *Document) error

// Formats maps format names to writers.
var Formats = map[string]Writer{
	"pdf":  WritePDF,
	"md":   WriteMarkdown,
	"html": WriteHTML,
}

// FormatNames returns the known format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for name := range Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write renders doc in the named format.
func Write(w io.Writer, doc *Document, format string) error {
	writer, ok := Formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return fmt.Errorf("%w: %q (want one of %s)", bverrors.ErrUnknownFormat, format, strings.Join(FormatNames(), ", "))
	}
	if doc == nil || len(doc.Entries) == 0 {
		return bverrors.ErrNoGroups
	}
	return writer(w, doc)
}

// Filename returns the default file name for a report written at t, in
// the form bitdocumenter-groups-2026-01-02T03-04-05-000Z.pdf.
func Filename(t time.Time, format string) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("bitdocumenter-groups-%s.%s", stamp, format)
}
