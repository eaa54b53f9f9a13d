// Package render draws a session for the terminal: the bit grid colored by
// group, the group list with decoded outputs, and highlighted decoder
// sources.
package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/decode"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/session"
)

const (
	faintColor = lipgloss.Color("#6C6C6C")
	errorColor = lipgloss.Color("#FF5F5F")
	onColor    = lipgloss.Color("#FFFFFF")
	inkColor   = lipgloss.Color("#000000")
)

// Renderer turns session state into text. With color disabled the output
// is plain and stable, which is what tests and pipes get.
type Renderer struct {
	color bool
}

// New returns a renderer.
func New(color bool) *Renderer {
	return &Renderer{color: color}
}

func (r *Renderer) paint(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

// View renders the whole session: header, grid and groups.
func (r *Renderer) View(s *session.Session) string {
	var b strings.Builder
	b.WriteString(r.Header(s.Grid()))
	b.WriteString("\n\n")
	b.WriteString(r.Grid(s.Grid(), s.Store(), s.Selection()))
	b.WriteString("\n")
	b.WriteString(r.Groups(s.Store(), s.Outputs()))
	return b.String()
}

// Header summarizes the value and the display orders.
func (r *Renderer) Header(g *grid.Grid) string {
	bold := lipgloss.NewStyle().Bold(true)
	faint := lipgloss.NewStyle().Foreground(faintColor)
	return fmt.Sprintf("%s %s",
		r.paint(bold, g.Hex()),
		r.paint(faint, fmt.Sprintf("(%d bytes, %s, %s)", g.Len(), g.BitOrder(), g.ByteOrder())))
}

// Grid draws one row per byte. Rows follow the byte order and cells follow
// the bit order; selected cells are bracketed and grouped cells carry the
// color of their first group.
func (r *Renderer) Grid(g *grid.Grid, store *groups.Store, selected []grid.Position) string {
	isSelected := make(map[grid.Position]bool, len(selected))
	for _, p := range selected {
		isSelected[p] = true
	}

	columns := bitColumns(g.BitOrder())
	faint := lipgloss.NewStyle().Foreground(faintColor)

	var b strings.Builder
	header := "             "
	for _, bit := range columns {
		header += fmt.Sprintf(" %d ", bit)
	}
	b.WriteString(r.paint(faint, header))
	b.WriteString("\n")

	values := g.Bytes()
	for _, byteIndex := range byteRows(len(values), g.ByteOrder()) {
		fmt.Fprintf(&b, "%s %s ", r.paint(faint, fmt.Sprintf("byte %-3d", byteIndex)), fmt.Sprintf("0x%02X", values[byteIndex]))

		var ids []string
		seen := map[string]bool{}
		for _, bitIndex := range columns {
			p := grid.Position{ByteIndex: byteIndex, BitIndex: bitIndex}
			value, _ := g.Bit(p)
			owners := store.GroupsAt(p)
			for _, owner := range owners {
				if !seen[owner.ID] {
					seen[owner.ID] = true
					ids = append(ids, owner.ID)
				}
			}
			b.WriteString(r.cell(value, isSelected[p], owners))
		}
		if len(ids) > 0 {
			b.WriteString(" ")
			b.WriteString(r.paint(faint, strings.Join(ids, " ")))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) cell(value int, selected bool, owners []*groups.Group) string {
	text := fmt.Sprintf(" %d ", value)
	if selected {
		text = fmt.Sprintf("[%d]", value)
	}
	style := lipgloss.NewStyle()
	if value == 1 {
		style = style.Bold(true).Foreground(onColor)
	} else {
		style = style.Foreground(faintColor)
	}
	if len(owners) > 0 {
		style = style.Background(groupColor(owners[0])).Foreground(inkColor)
	}
	if selected {
		style = style.Underline(true)
	}
	return r.paint(style, text)
}

// Groups lists every group with its output or error.
func (r *Renderer) Groups(store *groups.Store, outputs []decode.Output) string {
	list := store.List()
	if len(list) == 0 {
		return r.paint(lipgloss.NewStyle().Foreground(faintColor), "No groups yet.") + "\n"
	}
	byID := make(map[string]decode.Output, len(outputs))
	for _, out := range outputs {
		byID[out.GroupID] = out
	}

	var b strings.Builder
	for _, g := range list {
		b.WriteString(r.Chip(g, byID[g.ID]))
	}
	return b.String()
}

// Chip renders one group: its colored label line, its bits and its
// decoded output.
func (r *Renderer) Chip(g *groups.Group, out decode.Output) string {
	swatch := lipgloss.NewStyle().Foreground(groupColor(g))
	bold := lipgloss.NewStyle().Bold(true)
	faint := lipgloss.NewStyle().Foreground(faintColor)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n",
		r.paint(swatch, "●"),
		r.paint(bold, g.Label),
		r.paint(faint, fmt.Sprintf("[%s %s]", g.ID, g.Type)))
	fmt.Fprintf(&b, "  %s\n", r.paint(faint, "bits: "+FormatBits(g.Bits)))

	if text := out.Display(); text != "" {
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if out.Error != "" {
		fmt.Fprintf(&b, "  %s\n", r.paint(lipgloss.NewStyle().Foreground(errorColor), "⚠ "+out.Error))
	}
	return b.String()
}

// Detail renders a group chip followed by its decoder or flags source.
func (r *Renderer) Detail(g *groups.Group, out decode.Output) string {
	var b strings.Builder
	b.WriteString(r.Chip(g, out))
	b.WriteString("\n")
	if g.Type == groups.TypeValue {
		b.WriteString(r.Source(g.DecoderSource, "javascript"))
	} else {
		source, err := decode.Pretty(g.FlagsDescriptionSource)
		if err != nil {
			source = g.FlagsDescriptionSource
		}
		b.WriteString(r.Source(source, "json"))
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// Source highlights code in the given language, falling back to faint text.
func (r *Renderer) Source(code, language string) string {
	if !r.color {
		return code
	}
	faint := lipgloss.NewStyle().Foreground(faintColor)
	if language == "" {
		return faint.Render(code)
	}
	var buffer strings.Builder
	err := quick.Highlight(&buffer, code, language, "terminal256", "monokai")
	if err != nil {
		return faint.Render(code)
	}
	return buffer.String()
}

// FormatBits lists positions as byte.bit in group order.
func FormatBits(bits []grid.Position) string {
	if len(bits) == 0 {
		return "none"
	}
	parts := make([]string, len(bits))
	for i, p := range bits {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

func groupColor(g *groups.Group) lipgloss.Color {
	return lipgloss.Color(groups.PaletteHex[groups.WrapColor(g.ColorIndex)])
}

func bitColumns(order grid.BitOrder) []int {
	columns := make([]int, grid.BitsPerByte)
	for i := range columns {
		if order == grid.BitOrderLSB {
			columns[i] = grid.BitsPerByte - 1 - i
		} else {
			columns[i] = i
		}
	}
	return columns
}

func byteRows(n int, order grid.ByteOrder) []int {
	rows := make([]int, n)
	for i := range rows {
		if order == grid.ByteOrderLSByte {
			rows[i] = n - 1 - i
		} else {
			rows[i] = i
		}
	}
	return rows
}
