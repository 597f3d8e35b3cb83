package filevalidator

import (
	"io"
	"maps"
	"slices"
)

// ContentValidator is an interface for validating file contents beyond the
// standard check sequence. Implementations verify internal structure: ZIP
// directories, image headers, PDF trailers.
type ContentValidator interface {
	// ValidateContent checks the content read from reader, whose total
	// length is size.
	ValidateContent(reader io.Reader, size int64) error
	// SupportedMIMETypes lists the MIME types the validator understands.
	SupportedMIMETypes() []string
}

// checkContentSize enforces a validator's size ceiling. A zero limit means
// unlimited.
func checkContentSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return contentErrorf("file size %s exceeds maximum %s",
			FormatSizeReadable(size), FormatSizeReadable(limit))
	}
	return nil
}

// ContentValidatorRegistry maps MIME types to content validators. Build one
// up front and hand it to Constraints; the registry is not safe for
// concurrent mutation.
type ContentValidatorRegistry struct {
	validators map[string]ContentValidator
}

// NewContentValidatorRegistry returns an empty registry.
func NewContentValidatorRegistry() *ContentValidatorRegistry {
	return &ContentValidatorRegistry{validators: make(map[string]ContentValidator)}
}

// Register binds a validator to a single MIME type, replacing any
// previous binding.
func (r *ContentValidatorRegistry) Register(mimeType string, validator ContentValidator) {
	r.validators[mimeType] = validator
}

// RegisterAll registers a validator under every MIME type it supports.
func (r *ContentValidatorRegistry) RegisterAll(validator ContentValidator) {
	for _, mime := range validator.SupportedMIMETypes() {
		r.Register(mime, validator)
	}
}

// GetValidator returns the validator bound to the MIME type, or nil.
func (r *ContentValidatorRegistry) GetValidator(mimeType string) ContentValidator {
	return r.validators[mimeType]
}

// ValidateContent validates content using the validator registered for the
// MIME type. A type with no registered validator passes.
func (r *ContentValidatorRegistry) ValidateContent(mimeType string, reader io.Reader, size int64) error {
	validator := r.GetValidator(mimeType)
	if validator == nil {
		return nil
	}
	return validator.ValidateContent(reader, size)
}

// RegisteredMIMETypes lists every MIME type with a validator, sorted.
func (r *ContentValidatorRegistry) RegisteredMIMETypes() []string {
	return slices.Sorted(maps.Keys(r.validators))
}

// HasValidator reports whether the MIME type has a validator bound.
func (r *ContentValidatorRegistry) HasValidator(mimeType string) bool {
	return r.validators[mimeType] != nil
}

// Count returns the number of MIME type bindings.
func (r *ContentValidatorRegistry) Count() int {
	return len(r.validators)
}

// Clone returns a registry with the same bindings. The validator
// instances are shared, not copied.
func (r *ContentValidatorRegistry) Clone() *ContentValidatorRegistry {
	clone := NewContentValidatorRegistry()
	maps.Copy(clone.validators, r.validators)
	return clone
}
