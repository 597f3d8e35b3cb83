package filevalidator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// pdfSignature is the four-byte marker every PDF begins with.
var pdfSignature = []byte("%PDF")

// Validator is the interface for validating file candidates.
type Validator interface {
	// Validate runs the full check sequence against a candidate.
	Validate(candidate Candidate) *ValidationResult

	// ValidateWithContext validates a candidate, honoring context cancellation.
	ValidateWithContext(ctx context.Context, candidate Candidate) *ValidationResult

	// ValidateBytes validates an in-memory file with a name and declared type.
	ValidateBytes(content []byte, name, mimeType string) *ValidationResult

	// ValidateMultipart validates an uploaded multipart file part.
	ValidateMultipart(file *multipart.FileHeader) *ValidationResult

	// GetConstraints returns the current validation constraints.
	GetConstraints() Constraints
}

// FileValidator implements the Validator interface. It is immutable after
// construction and safe for concurrent use; every call is independent and
// constructs a fresh result.
type FileValidator struct {
	constraints Constraints
}

// New creates a new file validator with the given constraints
func New(constraints Constraints) *FileValidator {
	return &FileValidator{
		constraints: constraints,
	}
}

// NewDefault creates a new file validator with the standard intake constraints
func NewDefault() *FileValidator {
	return &FileValidator{
		constraints: DefaultConstraints(),
	}
}

// Validate runs the full check sequence against a candidate.
func (v *FileValidator) Validate(candidate Candidate) *ValidationResult {
	return v.ValidateWithContext(context.Background(), candidate)
}

// ValidateWithContext validates a candidate, honoring context cancellation.
//
// Checks run in a fixed order and the first failure terminates the call:
// size ceiling, declared MIME allowlist, extension allowlist, name
// sanitization, executable-suffix denylist, and the PDF content signature.
// A name rewrite does not end validation early: the remaining checks run
// against the sanitized candidate, and only if they pass does the result
// come back valid with Sanitized populated.
func (v *FileValidator) ValidateWithContext(ctx context.Context, candidate Candidate) *ValidationResult {
	b := NewResultBuilder(candidate.Name, candidate.Size)
	b.SetDeclaredMIME(candidate.MIMEType)

	select {
	case <-ctx.Done():
		return b.Fail(newInternalError()).Build()
	default:
	}

	// 1. Size ceiling.
	if v.constraints.MaxFileSize > 0 && candidate.Size > v.constraints.MaxFileSize {
		return b.Fail(NewValidationError(ErrorTypeSize, fmt.Sprintf(
			"file size %s exceeds the maximum allowed size of %s",
			FormatSizeReadable(candidate.Size),
			FormatSizeReadable(v.constraints.MaxFileSize),
		))).Build()
	}
	b.AddCheck("size", true, "within size limit")

	// 2. Declared MIME type allowlist.
	if err := v.checkDeclaredType(candidate.MIMEType); err != nil {
		return b.Fail(err).Build()
	}
	b.AddCheck("mime_type", true, "declared type accepted")

	// 3. Extension allowlist, against the submitted name.
	if err := v.checkExtension(candidate.Name); err != nil {
		return b.Fail(err).Build()
	}
	b.AddCheck("extension", true, "extension accepted")

	// 4. Name sanitization. The remaining checks run against whichever name
	// survives this step.
	name := candidate.Name
	clean := SanitizeFileName(candidate.Name, v.constraints.MaxNameLength)
	renamed := clean != candidate.Name
	if renamed {
		name = clean
		b.AddCheck("sanitize", true, fmt.Sprintf("name rewritten to %q", clean))
		// Truncation can cut the extension off, so re-check it.
		if err := v.checkExtension(name); err != nil {
			return b.Fail(err).Build()
		}
	} else {
		b.AddCheck("sanitize", true, "name already clean")
	}

	// 5. Executable-style suffix denylist.
	if err := v.checkBlockedSuffix(name); err != nil {
		return b.Fail(err).Build()
	}
	b.AddCheck("name_pattern", true, "no blocked suffix")

	// 6. Content signature for declared PDFs.
	if candidate.MIMEType == MIMETypePDF {
		if err := v.checkPDFSignature(&candidate); err != nil {
			return b.Fail(err).Build()
		}
		b.SetDetectedMIME(MIMETypePDF)
		b.AddCheck("content_signature", true, "PDF signature present")
	}

	// Optional structural validation beyond the standard sequence.
	if v.constraints.ContentValidationEnabled && v.constraints.ContentValidatorRegistry != nil {
		if err := v.runContentValidation(&candidate, b); err != nil {
			return b.Fail(err).Build()
		}
	}

	if renamed {
		sanitized := candidate.WithName(clean)
		b.SetSanitized(&sanitized)
	}
	return b.Build()
}

// ValidateBytes validates an in-memory file with a name and declared type.
func (v *FileValidator) ValidateBytes(content []byte, name, mimeType string) *ValidationResult {
	return v.Validate(NewCandidate(name, mimeType, content))
}

// ValidateMultipart validates an uploaded multipart file part, using the
// part's declared Content-Type header as the candidate's MIME type.
func (v *FileValidator) ValidateMultipart(file *multipart.FileHeader) *ValidationResult {
	candidate, err := CandidateFromMultipart(file)
	if err != nil {
		return NewResultBuilder(file.Filename, file.Size).
			SetDeclaredMIME(file.Header.Get("Content-Type")).
			Fail(newInternalError()).
			Build()
	}
	defer candidate.Content.(io.Closer).Close()
	return v.Validate(candidate)
}

// GetConstraints returns the current validation constraints
func (v *FileValidator) GetConstraints() Constraints {
	return v.constraints
}

// checkDeclaredType validates the declared MIME type against the allowlist.
func (v *FileValidator) checkDeclaredType(mimeType string) *ValidationError {
	if len(v.constraints.AcceptedTypes) == 0 {
		return nil
	}
	if v.isAcceptedMIMEType(mimeType) {
		return nil
	}
	return NewValidationError(ErrorTypeMIMEType, fmt.Sprintf(
		"file type %q is not allowed. Allowed types: %s",
		mimeType,
		strings.Join(v.constraints.AcceptedTypes, ", "),
	))
}

// checkExtension validates the substring after the last dot in name,
// case-insensitively. A name without a dot never passes.
func (v *FileValidator) checkExtension(name string) *ValidationError {
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return NewValidationError(ErrorTypeExtension, fmt.Sprintf(
			"file %q has no extension", name,
		))
	}

	ext := strings.ToLower(name[dot:])
	if len(v.constraints.AllowedExts) == 0 {
		return nil
	}
	for _, allowed := range v.constraints.AllowedExts {
		if strings.EqualFold(ext, allowed) {
			return nil
		}
	}
	return NewValidationError(ErrorTypeExtension, fmt.Sprintf(
		"file extension %q is not allowed. Allowed extensions: %s",
		ext,
		strings.Join(v.constraints.AllowedExts, ", "),
	))
}

// checkBlockedSuffix rejects names ending in any denylisted suffix. The
// denylist is independent of the extension allowlist: it exists to catch
// disguised double extensions and mismatched declared types.
func (v *FileValidator) checkBlockedSuffix(name string) *ValidationError {
	lower := strings.ToLower(name)
	for _, blocked := range v.constraints.BlockedExts {
		if strings.HasSuffix(lower, strings.ToLower(blocked)) {
			return NewValidationError(ErrorTypeNamePattern, fmt.Sprintf(
				"file name %q matches the blocked pattern %q", name, blocked,
			))
		}
	}
	return nil
}

// checkPDFSignature reads the first four bytes of the candidate's content and
// requires the %PDF marker. Unreadable content is an internal failure with a
// generic message; a readable mismatch is a content signature failure.
func (v *FileValidator) checkPDFSignature(candidate *Candidate) *ValidationError {
	header, err := sniffHeader(candidate, len(pdfSignature))
	if err != nil {
		return newInternalError()
	}
	if !bytes.Equal(header, pdfSignature) {
		return NewValidationError(ErrorTypeContent, fmt.Sprintf(
			"content does not match the declared type %s: missing %%PDF signature",
			MIMETypePDF,
		))
	}
	return nil
}

// sniffHeader reads up to n bytes from the candidate's content source. For
// seekable sources the position is restored afterwards; for non-seekable
// sources the consumed bytes are stitched back so candidate.Content still
// yields the full stream.
func sniffHeader(candidate *Candidate, n int) ([]byte, error) {
	if candidate.Content == nil {
		return nil, errors.New("no content source")
	}

	buf := make([]byte, n)
	if seeker, ok := candidate.Content.(io.Seeker); ok {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		read, err := io.ReadFull(candidate.Content, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
		return buf[:read], nil
	}

	read, err := io.ReadFull(candidate.Content, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	candidate.Content = io.MultiReader(bytes.NewReader(buf[:read]), candidate.Content)
	return buf[:read], nil
}

// runContentValidation performs deep structural validation through the
// registry. Requires a seekable source; the position is restored afterwards.
func (v *FileValidator) runContentValidation(candidate *Candidate, b *ResultBuilder) *ValidationError {
	registry := v.constraints.ContentValidatorRegistry

	seeker, ok := candidate.Content.(io.ReadSeeker)
	if !ok {
		if v.constraints.RequireContentValidation {
			return NewValidationError(ErrorTypeContent,
				"content validation requires a seekable content source")
		}
		b.AddWarning("content validation skipped: source is not seekable")
		return nil
	}

	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return newInternalError()
	}
	if detected, derr := DetectMIME(seeker); derr == nil {
		b.SetDetectedMIME(detected)
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return newInternalError()
	}

	// The validator is chosen by the declared type: the point is to verify
	// the submitter's claim, not whatever the bytes happen to be.
	vErr := registry.ValidateContent(candidate.MIMEType, seeker, candidate.Size)

	if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
		return newInternalError()
	}

	if vErr != nil {
		if v.constraints.RequireContentValidation {
			var validationErr *ValidationError
			if errors.As(vErr, &validationErr) {
				return validationErr
			}
			return NewValidationError(ErrorTypeContent, vErr.Error())
		}
		b.AddWarning(vErr.Error())
		return nil
	}

	b.AddCheck("content", true, "structural validation passed")
	return nil
}

// isAcceptedMIMEType checks if a MIME type is accepted by the validator
func (v *FileValidator) isAcceptedMIMEType(mimeType string) bool {
	for _, acceptedType := range ExpandAcceptedTypes(v.constraints.AcceptedTypes) {
		if acceptedType == mimeType || acceptedType == "*/*" {
			return true
		}

		// Handle wildcards like "image/*"
		if strings.HasSuffix(acceptedType, "/*") {
			prefix := strings.TrimSuffix(acceptedType, "/*")
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
		}
	}
	return false
}
