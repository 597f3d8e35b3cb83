package filevalidator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FormatSizeReadable converts a size in bytes to a human-readable string.
// Units are base-1024 and capped at GB; fractional values are rounded to at
// most two decimal places with trailing zeros trimmed.
func FormatSizeReadable(size int64) string {
	format := func(value float64, unit string) string {
		rounded := math.Round(value*100) / 100
		return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + unit
	}

	switch {
	case size < KB:
		return fmt.Sprintf("%d B", size)
	case size < MB:
		return format(float64(size)/float64(KB), "KB")
	case size < GB:
		return format(float64(size)/float64(MB), "MB")
	default:
		return format(float64(size)/float64(GB), "GB")
	}
}

// ValidateLocalFile validates a file on the local filesystem. The declared
// MIME type is derived from the file's extension, since local files carry no
// transport-level declaration.
func ValidateLocalFile(validator Validator, filePath string) (*ValidationResult, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", filePath)
		}
		return nil, err
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	candidate := Candidate{
		Name:     filepath.Base(filePath),
		MIMEType: MIMETypeForExtension(filepath.Ext(filePath)),
		Size:     fileInfo.Size(),
		Content:  file,
	}
	return validator.Validate(candidate), nil
}

// CandidateFromReader builds a candidate by draining a reader into memory.
// Use it for small payloads where the size is not known up front.
func CandidateFromReader(name, mimeType string, reader io.Reader) (Candidate, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return Candidate{}, err
	}
	return NewCandidate(name, mimeType, content), nil
}

var (
	imageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif"}
	documentExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".xls", ".xlsx", ".csv"}

	documentMIMETypes = []string{
		MIMETypePDF,
		"application/msword",
		MIMETypeDOCX,
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/plain",
		"text/csv",
	}
)

// HasSupportedImageExtension reports whether filename carries an image
// extension the image validator understands.
func HasSupportedImageExtension(filename string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(filename)))
}

// HasSupportedDocumentExtension reports whether filename carries a
// common document extension.
func HasSupportedDocumentExtension(filename string) bool {
	return slices.Contains(documentExtensions, strings.ToLower(filepath.Ext(filename)))
}

// IsImage reports whether contentType belongs to the image category.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// IsDocument reports whether contentType is a common document format.
func IsDocument(contentType string) bool {
	return slices.Contains(documentMIMETypes, contentType)
}

// StreamValidate validates a stream of bytes as they are read, without
// buffering the whole stream in memory. The size ceiling is enforced while
// streaming so an oversized source is abandoned early; the remaining checks
// then run against the accumulated size, the sniffed type, and the retained
// header bytes.
func StreamValidate(reader io.Reader, name string, validator Validator, bufferSize int64) *ValidationResult {
	if bufferSize <= 0 {
		bufferSize = 4096
	}
	constraints := validator.GetConstraints()

	header := make([]byte, sniffLen)
	read, err := io.ReadFull(reader, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return NewResultBuilder(name, 0).Fail(newInternalError()).Build()
	}
	header = header[:read]

	contentType := DetectMIMEFromBytes(header)
	totalSize := int64(read)

	buffer := make([]byte, bufferSize)
	for {
		if constraints.MaxFileSize > 0 && totalSize > constraints.MaxFileSize {
			return NewResultBuilder(name, totalSize).
				SetDeclaredMIME(contentType).
				Fail(NewValidationError(ErrorTypeSize, fmt.Sprintf(
					"file size exceeds the maximum allowed size of %s",
					FormatSizeReadable(constraints.MaxFileSize),
				))).
				Build()
		}

		n, err := reader.Read(buffer)
		totalSize += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return NewResultBuilder(name, totalSize).Fail(newInternalError()).Build()
		}
	}

	// The stream carries no transport-level declaration, so the sniffed type
	// stands in for it. The retained header is enough for the signature check.
	candidate := Candidate{
		Name:     name,
		MIMEType: contentType,
		Size:     totalSize,
		Content:  bytes.NewReader(header),
	}
	return validator.Validate(candidate)
}
