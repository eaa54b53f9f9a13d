package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		)
	})
	return markdownInstance
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
)

// Markdown renders doc as a Markdown document.
func Markdown(doc *Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "Generated: %s\n\n", doc.Generated.Format(GeneratedLayout))
	fmt.Fprintf(&b, "Value: `%s` (%d bytes, %s, %s)\n", doc.Hex, doc.Bytes, doc.BitOrder, doc.ByteOrder)

	for _, entry := range doc.Entries {
		label := strings.TrimSpace(entry.Group.Label)
		if label == "" {
			label = entry.Group.ID
		}
		fmt.Fprintf(&b, "\n## %s\n\n", markdownEscaper.Replace(label))
		fmt.Fprintf(&b, "- **Id:** `%s`\n", entry.Group.ID)
		fmt.Fprintf(&b, "- **Type:** %s\n", entry.TypeLabel())
		fmt.Fprintf(&b, "- **Bits:** %s\n", entry.BitSummary())

		if text := entry.Output.Display(); text != "" {
			b.WriteString("\nOutput:\n\n")
			b.WriteString(codeFence(text, "text"))
		}
		if entry.Output.Error != "" {
			fmt.Fprintf(&b, "\n> **Error:** %s\n", markdownEscaper.Replace(entry.Output.Error))
		}

		language := "json"
		if entry.Group.Type == groups.TypeValue {
			language = "javascript"
		}
		fmt.Fprintf(&b, "\n%s\n\n", entry.SourceHeading())
		b.WriteString(codeFence(entry.Source(), language))
	}
	return b.String()
}

// codeFence wraps code in a fence longer than any backtick run inside it.
func codeFence(code, language string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fmt.Sprintf("%s%s\n%s\n%s\n", fence, language, strings.TrimRight(code, "\n"), fence)
}

// WriteMarkdown writes the Markdown report.
func WriteMarkdown(w io.Writer, doc *Document) error {
	_, err := io.WriteString(w, Markdown(doc))
	return err
}

// WriteHTML converts the Markdown report to a standalone HTML page.
func WriteHTML(w io.Writer, doc *Document) error {
	var body bytes.Buffer
	if err := getMarkdown().Convert([]byte(Markdown(doc)), &body); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	_, err := fmt.Fprintf(w, htmlPage, html.EscapeString(Title), body.String())
	return err
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 48px; }
pre { background: #f4f4f4; padding: 8px; }
</style>
</head>
<body>
%s</body>
</html>
`
