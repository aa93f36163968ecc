// Package docrender renders the textual body of a clinical document into a
// minimal single-page PDF. It exists so a node can serve binary content on
// demand for documents stored as text only; it is not a layout engine.
package docrender

import (
	"bytes"
	"fmt"
	"strings"
)

// Magic is the well-known signature expected at the start of rendered
// content.
var Magic = []byte("%PDF")

const (
	pageWidth    = 595 // A4 in points
	pageHeight   = 842
	marginLeft   = 50
	topBaseline  = 792
	lineHeight   = 14
	maxLines     = 54
	maxLineRunes = 90
)

// HasMagic reports whether content starts with the expected format
// signature.
func HasMagic(content []byte) bool {
	return bytes.HasPrefix(content, Magic)
}

// Render produces a single-page PDF containing the title followed by the
// wrapped body text. Overflowing text is truncated; rendering never fails
// on content, only the empty case is rejected.
func Render(title, body string) ([]byte, error) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("nothing to render: title and body are empty")
	}

	var content bytes.Buffer
	content.WriteString("BT\n/F1 11 Tf\n")
	fmt.Fprintf(&content, "%d TL\n", lineHeight)
	fmt.Fprintf(&content, "%d %d Td\n", marginLeft, topBaseline)

	lines := layoutLines(title, body)
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapeText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>", pageWidth, pageHeight),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&out, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return out.Bytes(), nil
}

// layoutLines wraps the title and body into page lines, truncated at page
// capacity.
func layoutLines(title, body string) []string {
	var lines []string
	if t := strings.TrimSpace(title); t != "" {
		lines = append(lines, wrap(t)...)
		lines = append(lines, "")
	}
	for _, paragraph := range strings.Split(body, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrap(paragraph)...)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// wrap splits a paragraph on word boundaries at the line width.
func wrap(text string) []string {
	words := strings.Fields(text)
	var lines []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > maxLineRunes {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// escapeText escapes PDF string literal delimiters and strips bytes the
// built-in font cannot carry.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			if r >= 32 && r < 127 {
				b.WriteRune(r)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}
