package filevalidator

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"unicode/utf8"
)

// JSONValidator checks that a payload parses as JSON and that its nesting
// stays within bounds.
type JSONValidator struct {
	MaxSize  int64 // 0 = unlimited
	MaxDepth int   // maximum nesting depth, 0 = unlimited
}

// DefaultJSONValidator returns a JSON validator capped at 50MB with a
// nesting limit that rejects depth bombs.
func DefaultJSONValidator() *JSONValidator {
	return &JSONValidator{MaxSize: 50 * MB, MaxDepth: 100}
}

// ValidateContent walks the token stream without materializing the document.
// Every byte must parse: trailing garbage is rejected, though a concatenation
// of top-level values is accepted, as json.Decoder reads streams. Depth is
// checked as tokens arrive, so an over-nested payload fails before it is
// fully read.
func (v *JSONValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}

	dec := json.NewDecoder(reader)
	depth, seen := 0, false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return contentErrorf("invalid JSON: %v", err)
		}
		seen = true

		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			depth++
			if v.MaxDepth > 0 && depth > v.MaxDepth {
				return contentErrorf("JSON nesting depth exceeds maximum %d", v.MaxDepth)
			}
		case '}', ']':
			depth--
		}
	}
	if !seen {
		return NewValidationError(ErrorTypeContent, "invalid JSON: empty input")
	}
	return nil
}

// SupportedMIMETypes returns the MIME types this validator handles.
func (v *JSONValidator) SupportedMIMETypes() []string {
	return []string{"application/json", "text/json"}
}

// XMLValidator checks XML well-formedness on the token stream. DOCTYPE and
// ENTITY declarations are rejected unless AllowDTD is set: encoding/xml never
// fetches external entities itself, but refusing the declarations keeps a
// stored file from carrying an XXE payload to whatever parses it next.
type XMLValidator struct {
	MaxSize  int64 // 0 = unlimited
	MaxDepth int   // maximum element nesting, 0 = unlimited
	AllowDTD bool  // tolerate <!DOCTYPE and <!ENTITY declarations
}

// DefaultXMLValidator returns an XML validator capped at 50MB with DTD
// declarations blocked.
func DefaultXMLValidator() *XMLValidator {
	return &XMLValidator{MaxSize: 50 * MB, MaxDepth: 100}
}

// ValidateContent parses the stream and tracks element depth. Directives are
// inspected wherever they occur, so a declaration buried mid-document is
// caught the same as one in the prolog.
func (v *XMLValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}

	dec := xml.NewDecoder(reader)
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return contentErrorf("invalid XML: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if v.MaxDepth > 0 && depth > v.MaxDepth {
				return contentErrorf("XML nesting depth exceeds maximum %d", v.MaxDepth)
			}
		case xml.EndElement:
			depth--
		case xml.Directive:
			d := bytes.TrimSpace(t)
			if !v.AllowDTD && (bytes.HasPrefix(d, []byte("DOCTYPE")) || bytes.HasPrefix(d, []byte("ENTITY"))) {
				return NewValidationError(ErrorTypeContent,
					"XML DTD/ENTITY declarations not allowed (XXE protection)")
			}
		}
	}
}

// SupportedMIMETypes returns the MIME types this validator handles.
func (v *XMLValidator) SupportedMIMETypes() []string {
	return []string{"application/xml", "text/xml"}
}

// CSVValidator scans CSV files line by line, bounding row count, column
// count, and line length without parsing the full table.
type CSVValidator struct {
	MaxSize       int64 // 0 = unlimited
	MaxRows       int   // 0 = unlimited
	MaxColumns    int   // 0 = unlimited
	MaxLineLength int   // scanner buffer cap per line
	Delimiter     rune  // field separator, 0 = comma
	RequireUTF8   bool
}

// DefaultCSVValidator returns a CSV validator sized for bulk imports: 100MB,
// a million rows, a thousand columns, 1MB per line.
func DefaultCSVValidator() *CSVValidator {
	return &CSVValidator{
		MaxSize:       100 * MB,
		MaxRows:       1000000,
		MaxColumns:    1000,
		MaxLineLength: 1 << 20,
		Delimiter:     ',',
		RequireUTF8:   true,
	}
}

// ValidateContent checks each row against the configured limits. A line
// longer than MaxLineLength surfaces as a read error from the scanner.
func (v *CSVValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}

	delim := v.Delimiter
	if delim == 0 {
		delim = ','
	}

	scanner := bufio.NewScanner(reader)
	if v.MaxLineLength > 0 {
		scanner.Buffer(make([]byte, v.MaxLineLength), v.MaxLineLength)
	}

	rows := 0
	for scanner.Scan() {
		rows++
		if v.MaxRows > 0 && rows > v.MaxRows {
			return contentErrorf("CSV rows %d exceed maximum %d", rows, v.MaxRows)
		}

		line := scanner.Text()
		if v.RequireUTF8 && !utf8.ValidString(line) {
			return contentErrorf("invalid UTF-8 at row %d", rows)
		}
		if cols := columnCount(line, delim); v.MaxColumns > 0 && cols > v.MaxColumns {
			return contentErrorf("CSV columns %d exceed maximum %d at row %d", cols, v.MaxColumns, rows)
		}
	}
	if err := scanner.Err(); err != nil {
		return contentErrorf("CSV read error: %v", err)
	}
	if rows == 0 {
		return NewValidationError(ErrorTypeContent, "empty CSV file")
	}
	return nil
}

// columnCount counts delimiter-separated fields. Double quotes are honored,
// so a delimiter inside a quoted field is not a split point.
func columnCount(line string, delim rune) int {
	if line == "" {
		return 0
	}
	count, quoted := 1, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == delim && !quoted:
			count++
		}
	}
	return count
}

// SupportedMIMETypes returns the MIME types this validator handles.
func (v *CSVValidator) SupportedMIMETypes() []string {
	return []string{MIMETypeCSV, "application/csv", "text/comma-separated-values"}
}

// PlainTextValidator checks text files, optionally requiring UTF-8.
type PlainTextValidator struct {
	MaxSize     int64 // 0 = unlimited
	RequireUTF8 bool
}

// DefaultPlainTextValidator returns a UTF-8 text validator capped at 10MB.
func DefaultPlainTextValidator() *PlainTextValidator {
	return &PlainTextValidator{MaxSize: 10 * MB, RequireUTF8: true}
}

// ValidateContent streams the file in 32KB chunks. A rune can straddle a
// chunk boundary, so incomplete trailing bytes are carried into the next
// chunk before the UTF-8 check runs.
func (v *PlainTextValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}
	if !v.RequireUTF8 {
		return nil
	}

	buf := make([]byte, 32*1024)
	var carry []byte
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if len(carry) > 0 {
				chunk = append(carry, chunk...)
			}
			cut := trailingPartialRune(chunk)
			if !utf8.Valid(chunk[:cut]) {
				return NewValidationError(ErrorTypeContent, "invalid UTF-8 encoding")
			}
			carry = append(carry[:0:0], chunk[cut:]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return contentErrorf("read error: %v", err)
		}
	}
	// Leftover bytes at end of stream are a truncated character.
	if len(carry) > 0 {
		return NewValidationError(ErrorTypeContent, "invalid UTF-8 encoding")
	}
	return nil
}

// trailingPartialRune returns the index after the last complete rune in p.
// Bytes beyond it may be the prefix of a rune split across reads.
func trailingPartialRune(p []byte) int {
	end := len(p)
	for i := 0; i < utf8.UTFMax && end > 0; i++ {
		if utf8.RuneStart(p[end-1]) {
			if utf8.FullRune(p[end-1:]) {
				return len(p)
			}
			return end - 1
		}
		end--
	}
	return len(p)
}

// SupportedMIMETypes returns the MIME types this validator handles.
func (v *PlainTextValidator) SupportedMIMETypes() []string {
	return []string{MIMETypeText}
}
