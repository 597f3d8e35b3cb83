package filevalidator

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDetectMIMEFromBytes(t *testing.T) {
	zipHeader := []byte{0x50, 0x4B, 0x03, 0x04}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, "image/jpeg"},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"GIF89a", []byte("GIF89a"), "image/gif"},
		{"BMP", []byte("BM"), "image/bmp"},
		{"WebP format tag after RIFF header", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"TIFF little endian", []byte{0x49, 0x49, 0x2A, 0x00}, "image/tiff"},
		{"TIFF big endian", []byte{0x4D, 0x4D, 0x00, 0x2A}, "image/tiff"},

		{"PDF", []byte("%PDF-1.7 rest of file"), "application/pdf"},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, "application/gzip"},
		{"plain ZIP", append(zipHeader, 0, 0, 0, 0), "application/zip"},
		{"DOCX refined from ZIP", append(zipHeader, strings.Repeat("\x00", 26)+"[Content_Types].xml"...), MIMETypeDOCX},
		{"XLSX refined from ZIP", append(zipHeader, strings.Repeat("\x00", 26)+"xl/workbook.xml"...), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},

		{"Windows executable", []byte("MZ\x90\x00"), "application/x-msdownload"},
		{"Mach-O 64-bit", []byte{0xCF, 0xFA, 0xED, 0xFE}, "application/x-mach-binary"},
		{"ELF", []byte{0x7F, 'E', 'L', 'F'}, "application/x-executable"},

		{"JSON object", []byte(`{"key": "value"}`), "application/json"},
		{"JSON array", []byte(`[1, 2]`), "application/json"},
		{"XML", []byte(`<?xml version="1.0"?><root/>`), "application/xml"},
		{"HTML", []byte("<!DOCTYPE html><html></html>"), "text/html"},

		{"empty input", nil, "application/octet-stream"},
		{"plain text via stdlib fallback", []byte("just some words"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEFromBytes(tt.data); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectMIME(t *testing.T) {
	mime, err := DetectMIME(bytes.NewReader(pdfContent))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mime != MIMETypePDF {
		t.Errorf("expected %s, got %s", MIMETypePDF, mime)
	}

	if _, err := DetectMIME(iotest.ErrReader(errors.New("backend down"))); err == nil {
		t.Error("expected read error to propagate")
	}
}

func TestIsExecutableMIME(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"application/x-msdownload", true},
		{"application/x-dosexec", true},
		{"application/x-executable", true},
		{"application/x-mach-binary", true},
		{"application/pdf", false},
		{"image/png", false},
	}

	for _, tt := range tests {
		if got := IsExecutableMIME(tt.mime); got != tt.want {
			t.Errorf("IsExecutableMIME(%s): expected %v, got %v", tt.mime, tt.want, got)
		}
	}
}

func TestIsBinaryMIME(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"image/png", true},
		{"application/pdf", true},
		{"application/zip", true},
		{"text/plain", false},
		{"application/json", false},
		{"application/xml", false},
		{"application/javascript", false},
	}

	for _, tt := range tests {
		if got := IsBinaryMIME(tt.mime); got != tt.want {
			t.Errorf("IsBinaryMIME(%s): expected %v, got %v", tt.mime, tt.want, got)
		}
	}
}

func TestGetMIMECategory(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "image"},
		{"text/plain", "text"},
		{"application/zip", "archive"},
		{"application/gzip", "archive"},
		{"application/pdf", "document"},
		{MIMETypeDOCX, "document"},
		{"application/x-msdownload", "executable"},
		{"audio/mpeg", "other"},
	}

	for _, tt := range tests {
		if got := GetMIMECategory(tt.mime); got != tt.want {
			t.Errorf("GetMIMECategory(%s): expected %s, got %s", tt.mime, tt.want, got)
		}
	}
}
