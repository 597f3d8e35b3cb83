package filevalidator

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
)

// OfficeValidator validates Office Open XML documents (DOCX, XLSX). The
// formats are ZIP archives with required member files, so the structural
// checks double as zip bomb protection.
type OfficeValidator struct {
	MaxSize             int64
	MaxFiles            int
	MaxUncompressedSize int64
	MaxCompressionRatio float64

	// AllowMacros permits macro-enabled formats (.docm, .xlsm) and their
	// embedded VBA parts.
	AllowMacros bool
}

// DefaultOfficeValidator returns an Office validator with macro parts
// blocked and archive expansion bounded.
func DefaultOfficeValidator() *OfficeValidator {
	return &OfficeValidator{
		MaxSize:             100 * MB,
		MaxFiles:            10000,
		MaxUncompressedSize: 1 * GB,
		MaxCompressionRatio: 100.0,
	}
}

// requiredOOXMLParts must all be present for an archive to count as an
// Office document, in the order they are reported when absent.
var requiredOOXMLParts = []string{"[Content_Types].xml", "_rels/.rels"}

// ValidateContent checks the ZIP structure and the required OOXML parts.
// Seekable input is validated in place; a plain stream has to be buffered,
// which is only allowed for small files.
func (v *OfficeValidator) ValidateContent(reader io.Reader, size int64) error {
	if err := checkContentSize(size, v.MaxSize); err != nil {
		return err
	}

	ra, ok := reader.(io.ReaderAt)
	if !ok {
		if size > 1*MB {
			return NewValidationError(ErrorTypeContent,
				"large Office files require seekable reader for efficient validation")
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return NewValidationError(ErrorTypeContent, "failed to read file content")
		}
		ra, size = bytes.NewReader(data), int64(len(data))
	}
	return v.validateArchive(ra, size)
}

func (v *OfficeValidator) validateArchive(reader io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(reader, size)
	if err != nil {
		return contentErrorf("invalid ZIP structure: %v", err)
	}

	if v.MaxFiles > 0 && len(zr.File) > v.MaxFiles {
		return contentErrorf("too many files in archive: %d (max: %d)", len(zr.File), v.MaxFiles)
	}

	missing := make(map[string]bool, len(requiredOOXMLParts))
	for _, part := range requiredOOXMLParts {
		missing[part] = true
	}

	var total uint64
	var hasMacros bool
	for _, f := range zr.File {
		// Expansion bounds come from the central directory; nothing gets
		// decompressed to enforce them.
		if f.CompressedSize64 > 0 {
			ratio := float64(f.UncompressedSize64) / float64(f.CompressedSize64)
			if ratio > v.MaxCompressionRatio {
				return contentErrorf("suspicious compression ratio: %.2f:1", ratio)
			}
		}
		total += f.UncompressedSize64
		if v.MaxUncompressedSize > 0 && total > uint64(v.MaxUncompressedSize) {
			return contentErrorf("uncompressed size exceeds limit: %s",
				FormatSizeReadable(v.MaxUncompressedSize))
		}

		delete(missing, f.Name)
		if isMacroPart(f.Name) {
			hasMacros = true
		}
	}

	for _, part := range requiredOOXMLParts {
		if missing[part] {
			return NewValidationError(ErrorTypeContent, "missing "+part+" - not a valid Office document")
		}
	}
	if hasMacros && !v.AllowMacros {
		return NewValidationError(ErrorTypeContent, "macro-enabled documents are not allowed")
	}
	return nil
}

// isMacroPart reports whether an archive member carries VBA macros, wherever
// it sits in the package.
func isMacroPart(name string) bool {
	switch path.Base(name) {
	case "vbaProject.bin", "vbaData.xml":
		return true
	}
	return false
}

// SupportedMIMETypes returns the MIME types this validator handles. The
// macro-enabled variants are advertised only when AllowMacros is set.
func (v *OfficeValidator) SupportedMIMETypes() []string {
	types := []string{
		MIMETypeDOCX,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", // .xlsx
	}
	if !v.AllowMacros {
		return types
	}
	return append(types,
		"application/vnd.ms-word.document.macroEnabled.12", // .docm
		"application/vnd.ms-excel.sheet.macroEnabled.12",   // .xlsm
	)
}
