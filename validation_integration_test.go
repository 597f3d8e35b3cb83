package uploadkit

import (
	"context"
	"encoding/base64"
	"io"
	"strings"
	"testing"
)

// These tests run the full New() stack against the local stand-in, so the
// validation layer is exercised exactly as a caller would hit it.
func TestValidationIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name        string
		maxSize     int64
		mimes       string
		exts        string
		blocked     string
		file        string
		contentType string
		content     string
		errContains string
	}{
		{
			name:        "pdf within the ceiling",
			maxSize:     1024,
			file:        "remit-001.pdf",
			contentType: "application/pdf",
			content:     "%PDF-1.4 remittance advice",
		},
		{
			name:        "oversize submission",
			maxSize:     16,
			file:        "remit-002.pdf",
			contentType: "application/pdf",
			content:     "%PDF-1.4 this batch runs past sixteen bytes",
			errContains: "exceeds the maximum",
		},
		{
			name:        "declared type on the allowlist",
			mimes:       "application/pdf,image/png",
			file:        "report.pdf",
			contentType: "application/pdf",
			content:     "%PDF-1.4 quarterly report",
		},
		{
			name:        "declared type off the allowlist",
			mimes:       "image/jpeg,image/png",
			file:        "notes.txt",
			contentType: "text/plain",
			content:     "meeting notes",
			errContains: "file type",
		},
		{
			// .exe never makes the default extension allowlist.
			name:        "executable rejected by the default policy",
			file:        "payload.exe",
			contentType: "application/pdf",
			content:     "MZ\x90",
			errContains: "extension",
		},
		{
			name:        "extension on the allowlist",
			mimes:       "text/plain",
			exts:        ".txt,.csv",
			file:        "ledger.txt",
			contentType: "text/plain",
			content:     "opening balance 1042.00",
		},
		{
			name:        "extension off the allowlist",
			mimes:       "text/plain",
			exts:        ".jpg,.png",
			file:        "ledger.txt",
			contentType: "text/plain",
			content:     "opening balance 1042.00",
			errContains: "extension",
		},
		{
			name:        "blocklist beats the allowlist",
			mimes:       "text/plain",
			exts:        ".txt,.phar",
			blocked:     ".phar",
			file:        "tool.phar",
			contentType: "text/plain",
			content:     "stub",
			errContains: "blocked pattern",
		},
		{
			name:        "pdf claim without the signature",
			file:        "fake.pdf",
			contentType: "application/pdf",
			content:     "MZ definitely not a pdf",
			errContains: "signature",
		},
		{
			name:        "every constraint satisfied",
			maxSize:     1024,
			mimes:       "text/plain,application/json",
			exts:        ".txt,.json",
			file:        "manifest.json",
			contentType: "application/json",
			content:     `{"batch": 118}`,
		},
		{
			name:        "one constraint failing is enough",
			maxSize:     1024,
			mimes:       "text/plain",
			exts:        ".json",
			file:        "ledger.txt",
			contentType: "text/plain",
			content:     "opening balance",
			errContains: "extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := New(&Config{
				Driver:            "local",
				LocalBasePath:     tmpDir,
				MaxFileSize:       tt.maxSize,
				AllowedMimeTypes:  tt.mimes,
				AllowedExtensions: tt.exts,
				BlockedExtensions: tt.blocked,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = fs.Write(ctx, tt.file, strings.NewReader(tt.content), WithContentType(tt.contentType))
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			exists, err := fs.FileExists(ctx, tt.file)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !exists {
				t.Error("expected the file to exist after a clean write")
			}
			_ = fs.Delete(ctx, tt.file)
		})
	}
}

func TestWriteReportsSanitizedPath(t *testing.T) {
	fs, err := New(&Config{
		Driver:        "local",
		LocalBasePath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	result, err := fs.Write(ctx, "Scan Batch 118.pdf",
		strings.NewReader("%PDF-1.4 batch scan"), WithContentType("application/pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The content lands under the sanitized name and the result says so.
	if result.Path != "Scan_Batch_118.pdf" {
		t.Errorf("expected result path %q, got %q", "Scan_Batch_118.pdf", result.Path)
	}

	exists, err := fs.FileExists(ctx, result.Path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected the file under the sanitized name")
	}

	if exists, _ := fs.FileExists(ctx, "Scan Batch 118.pdf"); exists {
		t.Error("expected no file under the submitted name")
	}
}

func TestValidationWithEncryption(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	fs, err := New(&Config{
		Driver:            "local",
		LocalBasePath:     t.TempDir(),
		MaxFileSize:       1024,
		AllowedMimeTypes:  "text/plain,application/octet-stream",
		AllowedExtensions: ".txt",
		EncryptionEnabled: true,
		EncryptionKey:     base64.StdEncoding.EncodeToString(key),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	// Validation sits above encryption, so rejected content must never
	// reach the cipher layer.
	oversize := strings.Repeat("x", 2048)
	if _, err := fs.Write(ctx, "big.txt", strings.NewReader(oversize), WithContentType("text/plain")); err == nil {
		t.Error("expected the size ceiling to reject the write")
	}

	plaintext := "approved remittance summary"
	if _, err := fs.Write(ctx, "summary.txt", strings.NewReader(plaintext), WithContentType("text/plain")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, err := fs.Read(ctx, "summary.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	roundTrip, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(roundTrip) != plaintext {
		t.Errorf("expected round trip %q, got %q", plaintext, roundTrip)
	}
}
