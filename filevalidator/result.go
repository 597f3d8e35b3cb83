package filevalidator

import (
	"fmt"
	"time"
)

// ValidationResult is the outcome of validating a single candidate. A fresh
// result is constructed per call and has no lifecycle beyond being read.
//
// Exactly one of Err and Sanitized may be populated, never both: an invalid
// result carries Err and never Sanitized; a valid result never carries Err
// and carries Sanitized only when the name required normalization.
type ValidationResult struct {
	// Valid indicates whether the candidate passed all checks.
	Valid bool

	// Filename is the name of the validated candidate as submitted.
	Filename string

	// Size is the candidate size in bytes.
	Size int64

	// DeclaredMIME is the MIME type the submitter declared.
	DeclaredMIME string

	// DetectedMIME is the MIME type detected from content, when a content
	// check ran. Empty otherwise.
	DetectedMIME string

	// Err is the failure that terminated validation. Set iff Valid is false.
	Err *ValidationError

	// Sanitized is a copy of the candidate bearing the cleaned name (same
	// bytes, same declared type). Set iff Valid is true and the submitted
	// name required normalization.
	Sanitized *Candidate

	// Warnings contains non-blocking issues (e.g., structural validation
	// findings when not required).
	Warnings []string

	// Duration is how long validation took.
	Duration time.Duration

	// Checks records each executed check in execution order.
	Checks []CheckResult
}

// CheckResult is one executed check.
type CheckResult struct {
	Name    string // e.g., "size", "mime_type", "extension", "sanitize"
	Passed  bool   // whether this check passed
	Message string // human-readable result
}

// Error returns the terminating failure, or nil if the result is valid.
func (r *ValidationResult) Error() error {
	if r.Valid || r.Err == nil {
		return nil
	}
	return r.Err
}

// ErrorMessage returns the user-facing failure message, or "" when valid.
func (r *ValidationResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// Renamed reports whether validation produced a sanitized replacement.
func (r *ValidationResult) Renamed() bool {
	return r.Sanitized != nil
}

// Summary renders a one-line human-readable account of the outcome.
func (r *ValidationResult) Summary() string {
	if !r.Valid {
		return fmt.Sprintf("✗ %s failed: %s", r.Filename, r.Err.Message)
	}
	s := fmt.Sprintf("✓ %s (%s) validated in %v",
		r.Filename, FormatSizeReadable(r.Size), r.Duration.Round(time.Microsecond))
	if r.Renamed() {
		s += ", renamed to " + r.Sanitized.Name
	}
	return s
}

// HasWarnings reports whether any non-blocking findings were recorded.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// FailedChecks returns the checks that did not pass.
func (r *ValidationResult) FailedChecks() []CheckResult {
	return r.filterChecks(false)
}

// PassedChecks returns the checks that passed.
func (r *ValidationResult) PassedChecks() []CheckResult {
	return r.filterChecks(true)
}

func (r *ValidationResult) filterChecks(passed bool) []CheckResult {
	var out []CheckResult
	for _, check := range r.Checks {
		if check.Passed == passed {
			out = append(out, check)
		}
	}
	return out
}

// ResultBuilder accumulates a ValidationResult while enforcing its
// invariant: a failure clears any pending sanitized candidate, and a
// sanitized candidate can only be attached to a valid result.
type ResultBuilder struct {
	result    ValidationResult
	startTime time.Time
}

// NewResultBuilder starts a result for one candidate. The result stays
// valid until a check fails.
func NewResultBuilder(filename string, size int64) *ResultBuilder {
	return &ResultBuilder{
		result:    ValidationResult{Valid: true, Filename: filename, Size: size},
		startTime: time.Now(),
	}
}

// SetDeclaredMIME records the MIME type the submitter declared.
func (b *ResultBuilder) SetDeclaredMIME(mime string) *ResultBuilder {
	b.result.DeclaredMIME = mime
	return b
}

// SetDetectedMIME records the MIME type detected from content.
func (b *ResultBuilder) SetDetectedMIME(mime string) *ResultBuilder {
	b.result.DetectedMIME = mime
	return b
}

// AddCheck records one executed check. A failed check invalidates the
// result without setting the terminating error; use Fail for that.
func (b *ResultBuilder) AddCheck(name string, passed bool, message string) *ResultBuilder {
	b.result.Checks = append(b.result.Checks, CheckResult{Name: name, Passed: passed, Message: message})
	b.result.Valid = b.result.Valid && passed
	return b
}

// Fail records the terminating failure and marks the result invalid. Only the
// first failure is kept; validation short-circuits so later calls are bugs.
func (b *ResultBuilder) Fail(err *ValidationError) *ResultBuilder {
	b.result.Valid = false
	b.result.Sanitized = nil
	if b.result.Err == nil {
		b.result.Err = err
	}
	return b.AddCheck(string(err.Type), false, err.Message)
}

// SetSanitized attaches the sanitized replacement candidate. Ignored if the
// result has already failed.
func (b *ResultBuilder) SetSanitized(c *Candidate) *ResultBuilder {
	if b.result.Valid {
		b.result.Sanitized = c
	}
	return b
}

// AddWarning records a non-blocking finding.
func (b *ResultBuilder) AddWarning(message string) *ResultBuilder {
	b.result.Warnings = append(b.result.Warnings, message)
	return b
}

// Build stamps the duration and returns the accumulated result.
func (b *ResultBuilder) Build() *ValidationResult {
	b.result.Duration = time.Since(b.startTime)
	return &b.result
}
