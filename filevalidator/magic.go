package filevalidator

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
)

// sniffLen is the number of leading bytes used for content-type detection.
const sniffLen = 512

// signature maps leading magic bytes to a MIME type.
type signature struct {
	mime   string
	offset int
	magic  []byte
}

// signatures is ordered most specific first; the first match wins. ZIP-based
// Office formats match the generic ZIP entry and are refined afterwards.
var signatures = []signature{
	{"image/jpeg", 0, []byte{0xFF, 0xD8, 0xFF}},
	{"image/png", 0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"image/gif", 0, []byte("GIF87a")},
	{"image/gif", 0, []byte("GIF89a")},
	{"image/webp", 8, []byte("WEBP")}, // RIFF container, format tag at byte 8
	{"image/bmp", 0, []byte("BM")},
	{"image/tiff", 0, []byte{0x49, 0x49, 0x2A, 0x00}}, // little endian
	{"image/tiff", 0, []byte{0x4D, 0x4D, 0x00, 0x2A}}, // big endian

	{"application/pdf", 0, []byte("%PDF-")},

	{"application/zip", 0, []byte{0x50, 0x4B, 0x03, 0x04}},
	{"application/zip", 0, []byte{0x50, 0x4B, 0x05, 0x06}}, // empty archive
	{"application/zip", 0, []byte{0x50, 0x4B, 0x07, 0x08}}, // spanned archive
	{"application/gzip", 0, []byte{0x1F, 0x8B}},

	{"application/json", 0, []byte("{")},
	{"application/json", 0, []byte("[")},
	{"application/xml", 0, []byte("<?xml")},
	{"text/html", 0, []byte("<!DOCTYPE html")},
	{"text/html", 0, []byte("<!doctype html")},
	{"text/html", 0, []byte("<html")},
	{"text/html", 0, []byte("<HTML")},

	// Native executable headers, listed so binaries can be named and blocked.
	{"application/x-msdownload", 0, []byte("MZ")},
	{"application/x-mach-binary", 0, []byte{0xCF, 0xFA, 0xED, 0xFE}}, // Mach-O 64-bit
	{"application/x-mach-binary", 0, []byte{0xCE, 0xFA, 0xED, 0xFE}}, // Mach-O 32-bit
	{"application/x-executable", 0, []byte{0x7F, 'E', 'L', 'F'}},
}

// DetectMIME reads up to sniffLen bytes from reader and detects the content
// type. Short content is fine; whatever was read gets matched.
func DetectMIME(reader io.Reader) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	return DetectMIMEFromBytes(buf[:n]), nil
}

// DetectMIMEFromBytes matches data against the signature table, refining ZIP
// matches into Office types, and falls back to http.DetectContentType when no
// signature fits.
func DetectMIMEFromBytes(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}

	if mime := matchSignature(data); mime != "" {
		if mime == "application/zip" {
			return refineZIP(data)
		}
		return mime
	}

	// The stdlib detector appends a charset parameter; drop it.
	mime, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return mime
}

func matchSignature(data []byte) string {
	for _, s := range signatures {
		if s.offset <= len(data) && bytes.HasPrefix(data[s.offset:], s.magic) {
			return s.mime
		}
	}
	return ""
}

// refineZIP tells Office documents apart from plain archives. OOXML part
// names appear in the first local file header, so scanning the sniffed prefix
// is enough without walking the ZIP directory.
func refineZIP(data []byte) string {
	head := string(data)
	switch {
	case strings.Contains(head, "[Content_Types]"), strings.Contains(head, "word/"):
		return MIMETypeDOCX
	case strings.Contains(head, "xl/"):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/zip"
}

// textMIMEPrefixes are treated as text; everything else reports binary.
var textMIMEPrefixes = []string{"text/", "application/json", "application/xml", "application/javascript"}

// IsBinaryMIME reports whether the MIME type is typically binary rather than
// text.
func IsBinaryMIME(mime string) bool {
	return !slices.ContainsFunc(textMIMEPrefixes, func(prefix string) bool {
		return strings.HasPrefix(mime, prefix)
	})
}

// IsExecutableMIME reports whether the MIME type names a native executable
// format.
func IsExecutableMIME(mime string) bool {
	switch mime {
	case "application/x-msdownload", "application/x-msdos-program", "application/x-dosexec",
		"application/x-executable", "application/x-sharedlib", "application/x-mach-binary":
		return true
	}
	return false
}

// GetMIMECategory buckets a MIME type for reporting: image, text, archive,
// document, executable, or other.
func GetMIMECategory(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "text/"):
		return "text"
	case strings.Contains(mime, "zip") || strings.Contains(mime, "gzip"):
		return "archive"
	case mime == MIMETypePDF, strings.Contains(mime, "document"),
		strings.Contains(mime, "msword"), strings.Contains(mime, "excel"):
		return "document"
	case IsExecutableMIME(mime):
		return "executable"
	default:
		return "other"
	}
}
