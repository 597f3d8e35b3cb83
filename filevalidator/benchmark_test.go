package filevalidator

import (
	"bytes"
	"testing"
)

// pngFixture returns a 1KB buffer that opens with a complete PNG signature
// and the IHDR chunk of a 1x1 image.
func pngFixture() []byte {
	buf := make([]byte, 1024)
	copy(buf, []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00,
		0x1F, 0x15, 0xC4, 0x89,
	})
	return buf
}

// docxFixture returns a ZIP-signature buffer whose entry names identify a
// Word container, so detection has to run the refinement scan after the
// signature match.
func docxFixture() []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, 0x50, 0x4B, 0x03, 0x04)
	buf = append(buf, make([]byte, 26)...)
	buf = append(buf, "word/document.xml"...)
	return append(buf, make([]byte, 512-len(buf))...)
}

func BenchmarkNew(b *testing.B) {
	constraints := DefaultConstraints()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		New(constraints)
	}
}

func BenchmarkNewDefault(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewDefault()
	}
}

func BenchmarkValidate(b *testing.B) {
	cases := []struct {
		name      string
		validator *FileValidator
		content   []byte
		fileName  string
		mime      string
	}{
		// Clean pass through every check.
		{"small_pdf", NewDefault(), minimalPDF, "report.pdf", MIMETypePDF},
		// Sanitization rewrites the name and the post-rename checks re-run.
		{"sanitizing_rename", NewDefault(), minimalPDF, "scan 001 <final>.pdf", MIMETypePDF},
		{"image_preset", ForImages().Build(), pngFixture(), "page-001.png", MIMETypePNG},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			if res := tc.validator.ValidateBytes(tc.content, tc.fileName, tc.mime); !res.Valid {
				b.Fatalf("fixture rejected: %v", res.Err)
			}
			for i := 0; i < b.N; i++ {
				tc.validator.ValidateBytes(tc.content, tc.fileName, tc.mime)
			}
		})
	}

	// The rejection path matters too: garbage submissions should fail fast.
	b.Run("rejected_executable", func(b *testing.B) {
		validator := NewDefault()
		payload := []byte("MZ\x90\x00")
		if res := validator.ValidateBytes(payload, "invoice.exe", "application/x-msdownload"); res.Valid {
			b.Fatal("expected rejection")
		}
		for i := 0; i < b.N; i++ {
			validator.ValidateBytes(payload, "invoice.exe", "application/x-msdownload")
		}
	})
}

func BenchmarkSanitizeFileName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SanitizeFileName(`  report <final>: v2 / draft.pdf`, 255)
	}
}

func BenchmarkDetectMIME(b *testing.B) {
	reader := bytes.NewReader(pngFixture())
	if mime, err := DetectMIME(reader); err != nil || mime != "image/png" {
		b.Fatalf("expected image/png, got %s (err %v)", mime, err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader.Seek(0, 0)
		DetectMIME(reader)
	}
}

func BenchmarkDetectMIMEFromBytes(b *testing.B) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png_signature", pngFixture(), "image/png"},
		{"pdf_signature", minimalPDF, MIMETypePDF},
		{"zip_refined_to_docx", docxFixture(), MIMETypeDOCX},
		{"sniff_fallback_text", bytes.Repeat([]byte("remittance advice\n"), 28), "text/plain"},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			if got := DetectMIMEFromBytes(tc.data); got != tc.want {
				b.Fatalf("expected %s, got %s", tc.want, got)
			}
			for i := 0; i < b.N; i++ {
				DetectMIMEFromBytes(tc.data)
			}
		})
	}
}

func BenchmarkFormatSizeReadable(b *testing.B) {
	for i := 0; i < b.N; i++ {
		FormatSizeReadable(10747904)
	}
}
