// Package placeholder generates small stand-in artifacts for processed
// documents: a one-page PDF, a minimal DOCX, and a plain-text processing
// report. The outputs are structurally complete, so they pass the same
// content validation real intake documents do.
package placeholder

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gobeaver/uploadkit/pipeline"
)

// PDF renders a single-page PDF with the title drawn in Helvetica. The
// output is a complete document: versioned header, five-object body,
// cross-reference table with correct byte offsets, and a trailer anchored
// by startxref and the end-of-file marker.
func PDF(title string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", escapeString(title))

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)

	return buf.Bytes()
}

// escapeString escapes the characters with special meaning inside a PDF
// literal string.
func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>
`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>
`

// DOCX renders a minimal Office Open XML document: a bold title paragraph
// followed by one paragraph per body string. The archive carries the three
// parts every OOXML consumer requires, and nothing else.
func DOCX(title string, paragraphs ...string) ([]byte, error) {
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML(title, paragraphs)},
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, part := range parts {
		f, err := w.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// documentXML builds the word/document.xml part.
func documentXML(title string, paragraphs []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` + "\n")
	b.WriteString("  <w:body>\n")
	fmt.Fprintf(&b,
		"    <w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space=\"preserve\">%s</w:t></w:r></w:p>\n",
		escapeXML(title))
	for _, p := range paragraphs {
		fmt.Fprintf(&b,
			"    <w:p><w:r><w:t xml:space=\"preserve\">%s</w:t></w:r></w:p>\n",
			escapeXML(p))
	}
	b.WriteString("  </w:body>\n")
	b.WriteString("</w:document>\n")
	return b.String()
}

// escapeXML escapes the characters with special meaning in XML text nodes.
func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// ProcessingLog renders a plain-text processing report for a document run:
// one line per stage with its duration and outcome.
func ProcessingLog(name string, results []pipeline.StageResult) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Processing report for %s\n", name)
	fmt.Fprintf(&b, "Generated at %s\n\n", time.Now().UTC().Format(time.RFC3339))

	for _, res := range results {
		outcome := "ok"
		if res.Err != nil {
			outcome = "failed: " + res.Err.Error()
		}
		fmt.Fprintf(&b, "%-12s %12v  %s\n",
			res.Stage, res.Duration.Round(time.Millisecond), outcome)
	}

	return []byte(b.String())
}
