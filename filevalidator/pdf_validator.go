package filevalidator

import (
	"bytes"
	"io"
)

// PDFValidator checks that a file is structurally a PDF: versioned header,
// cross-reference anchor, end-of-file marker. This is type validation, not a
// security scan; documents with forms or JavaScript pass.
type PDFValidator struct {
	MaxSize int64
}

// DefaultPDFValidator returns a PDF validator capped at 50MB.
func DefaultPDFValidator() *PDFValidator { return &PDFValidator{MaxSize: 50 * MB} }

// ValidateContent inspects the first and last kilobyte of the document.
// Seekable input is validated without reading the middle; a plain stream has
// to be buffered, which is only allowed for small files.
func (v *PDFValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}

	if seeker, ok := reader.(io.ReadSeeker); ok {
		return v.validateSeekable(seeker, size)
	}

	if size > 1*MB {
		return NewValidationError(ErrorTypeContent,
			"large PDF requires seekable reader for efficient validation")
	}
	return v.validateBuffered(reader)
}

func (v *PDFValidator) validateSeekable(r io.ReadSeeker, size int64) error {
	window := min(size, int64(1024))

	head := make([]byte, window)
	if _, err := io.ReadFull(r, head); err != nil {
		return NewValidationError(ErrorTypeContent, "failed to read PDF header")
	}
	if !validPDFHeader(head) {
		return NewValidationError(ErrorTypeContent, "invalid PDF header")
	}

	if _, err := r.Seek(-window, io.SeekEnd); err != nil {
		return NewValidationError(ErrorTypeContent, "failed to seek to PDF trailer")
	}
	tail := make([]byte, window)
	if _, err := io.ReadFull(r, tail); err != nil {
		return NewValidationError(ErrorTypeContent, "failed to read PDF trailer")
	}
	if !validPDFTrailer(tail) {
		return NewValidationError(ErrorTypeContent, "invalid PDF trailer")
	}
	return nil
}

func (v *PDFValidator) validateBuffered(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return NewValidationError(ErrorTypeContent, "failed to read PDF content")
	}
	if !validPDFHeader(data) {
		return NewValidationError(ErrorTypeContent, "invalid PDF header")
	}
	if !validPDFTrailer(data) {
		return NewValidationError(ErrorTypeContent, "invalid PDF trailer")
	}
	return nil
}

// validPDFHeader requires the versioned marker: "%PDF-" plus version digits.
func validPDFHeader(data []byte) bool {
	return len(data) >= 8 && bytes.HasPrefix(data, []byte("%PDF-"))
}

// validPDFTrailer looks for the end-of-file marker and the cross-reference
// anchor every complete PDF carries near its end.
func validPDFTrailer(data []byte) bool {
	return bytes.Contains(data, []byte("%%EOF")) && bytes.Contains(data, []byte("startxref"))
}

// SupportedMIMETypes returns the MIME types this validator handles.
func (v *PDFValidator) SupportedMIMETypes() []string {
	return []string{MIMETypePDF, "application/x-pdf", "application/vnd.pdf"}
}
