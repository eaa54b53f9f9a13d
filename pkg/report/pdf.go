package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// Page geometry in points.
const (
	pdfMargin     = 48.0
	pdfLineHeight = 16.0
)

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
	y         float64
	maxWidth  float64
	bottom    float64
}

// WritePDF lays the document out on A4 pages: a title, the generation
// time, then per group its label, type, bits and source.
func WritePDF(w io.Writer, doc *Document) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetTitle(Title, true)
	pdf.SetCreationDate(doc.Generated)
	pdf.AddPage()

	width, height := pdf.GetPageSize()
	pw := &pdfWriter{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		y:         pdfMargin,
		maxWidth:  width - pdfMargin*2,
		bottom:    height - pdfMargin,
	}

	pw.setFont("Helvetica", "B", 18)
	pw.text(Title)
	pw.y += pdfLineHeight * 1.5
	pw.setFont("Helvetica", "", 11)
	pw.text("Generated: " + doc.Generated.Format(GeneratedLayout))
	pw.y += pdfLineHeight * 2

	for _, entry := range doc.Entries {
		pw.ensureSpace(4)
		pw.setFont("Helvetica", "B", 14)
		pw.text(entry.Group.Label)
		pw.y += pdfLineHeight
		pw.setFont("Helvetica", "", 11)

		pw.lines("Type: " + entry.TypeLabel())
		pw.lines("Bits: " + entry.BitSummary())
		pw.lines(entry.SourceHeading())
		pw.codeBlock(entry.Source())
		pw.y += pdfLineHeight
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func (pw *pdfWriter) setFont(family, style string, size float64) {
	pw.pdf.SetFont(family, style, size)
}

func (pw *pdfWriter) text(s string) {
	pw.pdf.Text(pdfMargin, pw.y, pw.translate(s))
}

func (pw *pdfWriter) ensureSpace(lines int) {
	if pw.y+pdfLineHeight*float64(lines) > pw.bottom {
		pw.pdf.AddPage()
		pw.y = pdfMargin
	}
}

// wrapped encodes s for the core fonts and splits it to the text width.
// SplitText measures runes against a 256-entry width table, so the
// encoded bytes travel through it as runes below 256.
func (pw *pdfWriter) wrapped(s string) []string {
	if s == "" {
		return nil
	}
	encoded := pw.translate(s)
	runes := make([]rune, len(encoded))
	for i := 0; i < len(encoded); i++ {
		runes[i] = rune(encoded[i])
	}
	lines := pw.pdf.SplitText(string(runes), pw.maxWidth)
	for i, line := range lines {
		raw := make([]byte, 0, len(line))
		for _, r := range line {
			raw = append(raw, byte(r))
		}
		lines[i] = string(raw)
	}
	return lines
}

// lines writes wrapped body text in 12pt Helvetica.
func (pw *pdfWriter) lines(s string) {
	if s == "" {
		return
	}
	pw.setFont("Helvetica", "", 12)
	for _, line := range pw.wrapped(s) {
		pw.ensureSpace(1)
		pw.pdf.Text(pdfMargin, pw.y, line)
		pw.y += pdfLineHeight
	}
	pw.y += 4
}

// codeBlock writes wrapped source in 10pt Courier.
func (pw *pdfWriter) codeBlock(s string) {
	if s == "" {
		return
	}
	pw.setFont("Courier", "", 10)
	for _, line := range pw.wrapped(s) {
		pw.ensureSpace(1)
		pw.pdf.Text(pdfMargin, pw.y, line)
		pw.y += pdfLineHeight
	}
	pw.y += 6
}
