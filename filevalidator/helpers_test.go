package filevalidator

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatSizeReadable_AllCases(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2048, "2 KB"},
		{1048576, "1 MB"},
		{1572864, "1.5 MB"},
		{2621440, "2.5 MB"},
		{1073741824, "1 GB"},
		{1610612736, "1.5 GB"},
		// At most two decimal places, trailing zeros trimmed.
		{1324, "1.29 KB"},
		{10747904, "10.25 MB"},
		{1048577, "1 MB"},
		// Units cap at GB.
		{5497558138880, "5120 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatSizeReadable(tt.size)
			if result != tt.expected {
				t.Errorf("FormatSizeReadable(%d) = %s, want %s", tt.size, result, tt.expected)
			}
		})
	}
}

func TestValidateLocalFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "scan.pdf")
	if err := os.WriteFile(testFile, pdfContent, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	validator := NewDefault()

	result, err := ValidateLocalFile(validator, testFile)
	if err != nil {
		t.Fatalf("ValidateLocalFile() error: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected valid result, got %v", result.Error())
	}
	if result.DeclaredMIME != MIMETypePDF {
		t.Errorf("Expected declared MIME derived from extension, got %q", result.DeclaredMIME)
	}

	if _, err := ValidateLocalFile(validator, filepath.Join(tmpDir, "missing.pdf")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := ValidateLocalFile(validator, tmpDir); err == nil {
		t.Error("Expected error for directory path")
	}
}

func TestCandidateFromReader(t *testing.T) {
	candidate, err := CandidateFromReader("report.pdf", MIMETypePDF, bytes.NewReader(pdfContent))
	if err != nil {
		t.Fatalf("CandidateFromReader() error: %v", err)
	}
	if candidate.Size != int64(len(pdfContent)) {
		t.Errorf("Expected size %d, got %d", len(pdfContent), candidate.Size)
	}

	data, err := io.ReadAll(candidate.Content)
	if err != nil {
		t.Fatalf("Reading candidate content: %v", err)
	}
	if !bytes.Equal(data, pdfContent) {
		t.Error("Candidate content does not match the source")
	}
}

func TestExtensionHelpers(t *testing.T) {
	t.Run("HasSupportedImageExtension", func(t *testing.T) {
		tests := []struct {
			filename string
			expected bool
		}{
			{"test.jpg", true},
			{"test.TIFF", true},
			{"test.pdf", false},
			{"test.exe", false},
		}
		for _, tt := range tests {
			if got := HasSupportedImageExtension(tt.filename); got != tt.expected {
				t.Errorf("HasSupportedImageExtension(%s) = %v, want %v", tt.filename, got, tt.expected)
			}
		}
	})

	t.Run("HasSupportedDocumentExtension", func(t *testing.T) {
		tests := []struct {
			filename string
			expected bool
		}{
			{"test.pdf", true},
			{"test.docx", true},
			{"test.csv", true},
			{"test.jpg", false},
			{"test.exe", false},
		}
		for _, tt := range tests {
			if got := HasSupportedDocumentExtension(tt.filename); got != tt.expected {
				t.Errorf("HasSupportedDocumentExtension(%s) = %v, want %v", tt.filename, got, tt.expected)
			}
		}
	})
}

func TestMIMECategoryHelpers(t *testing.T) {
	if !IsImage("image/png") {
		t.Error("Expected image/png to be an image")
	}
	if IsImage(MIMETypePDF) {
		t.Error("Expected application/pdf not to be an image")
	}
	if !IsDocument(MIMETypePDF) {
		t.Error("Expected application/pdf to be a document")
	}
	if !IsDocument(MIMETypeDOCX) {
		t.Error("Expected DOCX to be a document")
	}
	if IsDocument("image/png") {
		t.Error("Expected image/png not to be a document")
	}
}

func TestStreamValidate(t *testing.T) {
	t.Run("valid PDF stream", func(t *testing.T) {
		result := StreamValidate(bytes.NewReader(pdfContent), "report.pdf", NewDefault(), 0)
		if !result.Valid {
			t.Errorf("Expected valid result, got %v", result.Error())
		}
		if result.Size != int64(len(pdfContent)) {
			t.Errorf("Expected accumulated size %d, got %d", len(pdfContent), result.Size)
		}
	})

	t.Run("oversized stream abandoned early", func(t *testing.T) {
		validator := New(Constraints{MaxFileSize: 1 * KB})
		// An endless-looking stream: validation must stop without draining it.
		result := StreamValidate(strings.NewReader(strings.Repeat("a", 64*1024)), "big.txt", validator, 512)
		if result.Valid {
			t.Fatal("Expected oversized stream to fail")
		}
		if result.Err.Type != ErrorTypeSize {
			t.Errorf("Expected error type %s, got %s", ErrorTypeSize, result.Err.Type)
		}
	})

	t.Run("sniffed type checked against allowlist", func(t *testing.T) {
		result := StreamValidate(strings.NewReader("plain text payload"), "notes.pdf", NewDefault(), 0)
		if result.Valid {
			t.Fatal("Expected text stream to fail the PDF-centric allowlist")
		}
		if result.Err.Type != ErrorTypeMIMEType {
			t.Errorf("Expected error type %s, got %s", ErrorTypeMIMEType, result.Err.Type)
		}
	})
}
