package filevalidator

// Builder assembles Constraints through a fluent chain. Start from
// NewBuilder, Empty, or one of the presets, tighten what you need, then
// Build the validator.
type Builder struct {
	constraints Constraints
}

// NewBuilder starts from the standard intake policy.
func NewBuilder() *Builder { return &Builder{constraints: DefaultConstraints()} }

// Empty starts from a blank policy: no size ceiling, no type or extension
// lists, only a filename length cap.
func Empty() *Builder { return &Builder{constraints: Constraints{MaxNameLength: 255}} }

// ForImages starts from the scanned-image intake policy.
func ForImages() *Builder { return &Builder{constraints: ImageOnlyConstraints()} }

// ForDocuments starts from the document intake policy.
func ForDocuments() *Builder { return &Builder{constraints: DocumentConstraints()} }

// ForWeb starts from a policy for browser uploads: images plus common
// document formats, capped at 25MB, with structural validation on.
func ForWeb() *Builder {
	return Empty().
		AcceptImages().
		AcceptDocuments().
		Extensions(
			".jpg", ".jpeg", ".png", ".gif", ".webp",
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".csv",
		).
		BlockExtensions(DefaultBlockedExts()...).
		MaxSize(25 * MB).
		WithDefaultRegistry().
		WithContentValidation()
}

// Strict starts from the standard policy with structural findings promoted
// from warnings to rejections.
func Strict() *Builder {
	return NewBuilder().
		RequireContentValidation().
		WithDefaultRegistry()
}

// MaxSize caps the file size in bytes.
func (b *Builder) MaxSize(size int64) *Builder {
	b.constraints.MaxFileSize = size
	return b
}

// Accept adds MIME types, exact ("image/png") or grouped ("image/*").
func (b *Builder) Accept(mimeTypes ...string) *Builder {
	b.constraints.AcceptedTypes = append(b.constraints.AcceptedTypes, mimeTypes...)
	return b
}

// AcceptImages admits every image type.
func (b *Builder) AcceptImages() *Builder { return b.Accept(string(AllowAllImages)) }

// AcceptDocuments admits every document type.
func (b *Builder) AcceptDocuments() *Builder { return b.Accept(string(AllowAllDocuments)) }

// AcceptText admits every text type.
func (b *Builder) AcceptText() *Builder { return b.Accept(string(AllowAllText)) }

// AcceptAll admits any type.
func (b *Builder) AcceptAll() *Builder { return b.Accept(string(AllowAll)) }

// Extensions adds allowed file extensions, dot included.
func (b *Builder) Extensions(exts ...string) *Builder {
	b.constraints.AllowedExts = append(b.constraints.AllowedExts, exts...)
	return b
}

// BlockExtensions adds extensions to the denylist. Blocks win over allows.
func (b *Builder) BlockExtensions(exts ...string) *Builder {
	b.constraints.BlockedExts = append(b.constraints.BlockedExts, exts...)
	return b
}

// MaxNameLength caps the filename length in characters.
func (b *Builder) MaxNameLength(length int) *Builder {
	b.constraints.MaxNameLength = length
	return b
}

// WithContentValidation turns structural content validation on.
func (b *Builder) WithContentValidation() *Builder {
	b.constraints.ContentValidationEnabled = true
	return b
}

// WithoutContentValidation turns structural content validation off.
func (b *Builder) WithoutContentValidation() *Builder {
	b.constraints.ContentValidationEnabled = false
	return b
}

// RequireContentValidation turns structural validation on and makes its
// findings fail the result instead of becoming warnings.
func (b *Builder) RequireContentValidation() *Builder {
	b.constraints.ContentValidationEnabled = true
	b.constraints.RequireContentValidation = true
	return b
}

// WithRegistry installs a custom content validator registry.
func (b *Builder) WithRegistry(registry *ContentValidatorRegistry) *Builder {
	b.constraints.ContentValidatorRegistry = registry
	return b
}

// WithDefaultRegistry installs the full built-in validator set.
func (b *Builder) WithDefaultRegistry() *Builder {
	b.constraints.ContentValidatorRegistry = DefaultRegistry()
	return b
}

// WithMinimalRegistry installs PDF and image validation only.
func (b *Builder) WithMinimalRegistry() *Builder {
	b.constraints.ContentValidatorRegistry = MinimalRegistry()
	return b
}

// Build creates the validator.
func (b *Builder) Build() *FileValidator { return New(b.constraints) }

// Constraints returns the policy assembled so far.
func (b *Builder) Constraints() Constraints { return b.constraints }
