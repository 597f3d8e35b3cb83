package filevalidator

// Size constants for easier file size configuration
const (
	KB = int64(1024)
	MB = KB * 1024
	GB = MB * 1024
)

// Constraints defines the configuration for file validation. A Constraints
// value is immutable once handed to a validator and is safe to share across
// any number of concurrent validation calls.
type Constraints struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Use the provided constants for readable configuration, e.g., 10 * MB.
	// Zero means no ceiling is enforced.
	MaxFileSize int64

	// AcceptedTypes is the allowlist of declared MIME types (e.g.,
	// "application/pdf"). Wildcard entries like "image/*" are supported.
	// If empty, any declared type is accepted.
	AcceptedTypes []string

	// AllowedExts is the allowlist of file extensions including the dot,
	// lowercase (e.g., ".pdf"). Matching is case-insensitive against the
	// candidate name. If empty, any extension is accepted, but a name
	// without any extension always fails.
	AllowedExts []string

	// BlockedExts is the security denylist of executable-style suffixes
	// (e.g., ".exe"). A name whose lowercased form ends with any of these is
	// rejected regardless of AllowedExts. This exists to catch disguised
	// double extensions such as "invoice.pdf.exe".
	BlockedExts []string

	// MaxNameLength is the length sanitized names are truncated to.
	// If zero, names are not truncated.
	MaxNameLength int

	// ScanForMalware is reserved for a future scanner integration.
	// It is currently a no-op and no check reads it.
	ScanForMalware bool

	// ContentValidationEnabled enables deep structural content validation
	// through ContentValidatorRegistry after the standard checks pass.
	ContentValidationEnabled bool

	// RequireContentValidation makes structural validation failures reject
	// the candidate. When false, such failures are recorded as warnings.
	RequireContentValidation bool

	// ContentValidatorRegistry holds content validators for different file types
	ContentValidatorRegistry *ContentValidatorRegistry
}

// DefaultBlockedExts returns the standard executable-style suffix denylist.
func DefaultBlockedExts() []string {
	return []string{".exe", ".bat", ".cmd", ".scr", ".pif", ".com", ".vbs", ".js", ".jar"}
}

// DefaultConstraints creates the standard document-intake policy: a 10 MB
// ceiling, the common document and scan formats, and the executable suffix
// denylist. Structural content validation is off, so validation consists of
// exactly the standard check sequence.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxFileSize: 10 * MB,
		AcceptedTypes: []string{
			MIMETypePDF,
			MIMETypeJPEG,
			MIMETypePNG,
			MIMETypeTIFF,
			MIMETypeDOCX,
		},
		AllowedExts:   []string{".pdf", ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".docx"},
		BlockedExts:   DefaultBlockedExts(),
		MaxNameLength: 255,
	}
}

// DocumentConstraints creates the large-document policy used by batch intake
// callers: a 50 MB ceiling and structural validation of PDF and Office
// containers in addition to the standard checks.
func DocumentConstraints() Constraints {
	constraints := DefaultConstraints()
	constraints.MaxFileSize = 50 * MB
	constraints.ContentValidationEnabled = true
	constraints.ContentValidatorRegistry = DocumentRegistry()
	return constraints
}

// ImageOnlyConstraints creates constraints that only allow scanned-image files.
func ImageOnlyConstraints() Constraints {
	constraints := DefaultConstraints()
	constraints.AcceptedTypes = []string{"image/*"}
	constraints.AllowedExts = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff"}
	constraints.ContentValidationEnabled = true
	constraints.ContentValidatorRegistry = ImageOnlyRegistry()

	return constraints
}
