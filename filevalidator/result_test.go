package filevalidator

import (
	"strings"
	"testing"
)

func TestResultBuilderValid(t *testing.T) {
	builder := NewResultBuilder("report.pdf", 1024)
	builder.SetDeclaredMIME(MIMETypePDF)
	builder.AddCheck("size", true, "within size limit")
	result := builder.Build()

	if !result.Valid {
		t.Error("Expected valid result")
	}
	if result.Err != nil {
		t.Errorf("Expected nil error, got %v", result.Err)
	}
	if result.Filename != "report.pdf" {
		t.Errorf("Expected filename report.pdf, got %s", result.Filename)
	}
	if result.DeclaredMIME != MIMETypePDF {
		t.Errorf("Expected declared MIME %s, got %s", MIMETypePDF, result.DeclaredMIME)
	}
	if result.Duration < 0 {
		t.Error("Expected non-negative duration")
	}
}

func TestResultBuilderFailClearsSanitized(t *testing.T) {
	sanitized := NewCandidate("clean.pdf", MIMETypePDF, nil)

	builder := NewResultBuilder("dirty.pdf", 1024)
	builder.SetSanitized(&sanitized)
	builder.Fail(NewValidationError(ErrorTypeExtension, "bad extension"))
	result := builder.Build()

	if result.Valid {
		t.Error("Expected invalid result after Fail")
	}
	if result.Sanitized != nil {
		t.Error("Fail must clear the sanitized candidate")
	}
	if result.Err == nil || result.Err.Type != ErrorTypeExtension {
		t.Errorf("Expected extension error, got %v", result.Err)
	}
}

func TestResultBuilderSanitizedIgnoredAfterFail(t *testing.T) {
	sanitized := NewCandidate("clean.pdf", MIMETypePDF, nil)

	builder := NewResultBuilder("dirty.pdf", 1024)
	builder.Fail(NewValidationError(ErrorTypeSize, "too big"))
	builder.SetSanitized(&sanitized)
	result := builder.Build()

	if result.Sanitized != nil {
		t.Error("SetSanitized after Fail must be ignored")
	}
}

func TestResultBuilderKeepsFirstError(t *testing.T) {
	builder := NewResultBuilder("x.pdf", 1024)
	builder.Fail(NewValidationError(ErrorTypeSize, "first"))
	builder.Fail(NewValidationError(ErrorTypeExtension, "second"))
	result := builder.Build()

	if result.Err.Type != ErrorTypeSize {
		t.Errorf("Expected the first error to win, got %s", result.Err.Type)
	}
	if len(result.FailedChecks()) != 2 {
		t.Errorf("Expected both failures recorded as checks, got %d", len(result.FailedChecks()))
	}
}

func TestResultSummary(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		result := NewResultBuilder("report.pdf", 2*KB).Build()
		summary := result.Summary()
		if !strings.HasPrefix(summary, "✓ report.pdf") {
			t.Errorf("Unexpected summary: %s", summary)
		}
		if !strings.Contains(summary, "2 KB") {
			t.Errorf("Expected readable size in summary: %s", summary)
		}
	})

	t.Run("renamed", func(t *testing.T) {
		sanitized := NewCandidate("My_File.pdf", MIMETypePDF, nil)
		builder := NewResultBuilder("My File.pdf", 2*KB)
		builder.SetSanitized(&sanitized)
		summary := builder.Build().Summary()
		if !strings.Contains(summary, "renamed to My_File.pdf") {
			t.Errorf("Expected rename note in summary: %s", summary)
		}
	})

	t.Run("failed", func(t *testing.T) {
		builder := NewResultBuilder("big.pdf", 20*MB)
		builder.Fail(NewValidationError(ErrorTypeSize, "file size 20 MB exceeds the maximum allowed size of 10 MB"))
		summary := builder.Build().Summary()
		if !strings.HasPrefix(summary, "✗ big.pdf failed:") {
			t.Errorf("Unexpected summary: %s", summary)
		}
	})
}

func TestResultAccessors(t *testing.T) {
	builder := NewResultBuilder("report.pdf", 1024)
	builder.AddCheck("size", true, "ok")
	builder.AddWarning("structural validation skipped")
	result := builder.Build()

	if result.Error() != nil {
		t.Errorf("Expected nil Error() on valid result, got %v", result.Error())
	}
	if result.ErrorMessage() != "" {
		t.Errorf("Expected empty ErrorMessage(), got %q", result.ErrorMessage())
	}
	if result.Renamed() {
		t.Error("Expected Renamed() false without a sanitized candidate")
	}
	if !result.HasWarnings() {
		t.Error("Expected HasWarnings() true")
	}
	if len(result.PassedChecks()) != 1 {
		t.Errorf("Expected one passed check, got %d", len(result.PassedChecks()))
	}

	builder = NewResultBuilder("bad.pdf", 1024)
	builder.Fail(NewValidationError(ErrorTypeContent, "missing %PDF signature"))
	failed := builder.Build()

	if failed.Error() == nil {
		t.Error("Expected Error() on invalid result")
	}
	if failed.ErrorMessage() != "missing %PDF signature" {
		t.Errorf("Unexpected ErrorMessage(): %q", failed.ErrorMessage())
	}
}
