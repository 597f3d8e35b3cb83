// Package filevalidator decides whether an uploaded file is acceptable for
// document intake, and under what final name, before anything downstream
// touches it.
//
// FileValidator is part of [UploadKit] but can be used as a standalone package.
//
// [UploadKit]: https://github.com/gobeaver/uploadkit
//
// # Check Sequence
//
// Every candidate runs through the same ordered sequence, and the first
// failure terminates validation:
//
//	1. Size ceiling            (declared size vs. MaxFileSize)
//	2. MIME type allowlist     (declared type vs. AcceptedTypes)
//	3. Extension allowlist     (after the last dot, case-insensitive)
//	4. Name sanitization       (unsafe characters and whitespace to "_")
//	5. Suffix denylist         (.exe, .bat, .js and friends)
//	6. Content signature       (declared PDFs must start with %PDF)
//
// A rewritten name does not end validation early: steps 5 and 6 run against
// the sanitized name, so "report<v2>.exe " cannot slip past the denylist by
// arriving dirty. The outcome is a ValidationResult carrying either a typed
// error or, when the name changed, a sanitized copy of the candidate.
//
// # Quick Start
//
// Using presets:
//
//	validator := filevalidator.NewDefault()
//	result := validator.ValidateBytes(content, "scan 001.pdf", "application/pdf")
//	if !result.Valid {
//	    log.Fatal(result.Error())
//	}
//	if result.Renamed() {
//	    fmt.Println("stored as", result.Sanitized.Name)
//	}
//
// Using the builder API:
//
//	validator := filevalidator.NewBuilder().
//	    MaxSize(10 * filevalidator.MB).
//	    Accept("image/*").
//	    Extensions(".jpg", ".png").
//	    WithContentValidation().
//	    Build()
//
//	result := validator.Validate(candidate)
//
// # Validation Methods
//
// FileValidator provides multiple validation entry points:
//
//	// From a Candidate
//	result := validator.Validate(candidate)
//
//	// With context (cancellable)
//	result := validator.ValidateWithContext(ctx, candidate)
//
//	// From bytes
//	result := validator.ValidateBytes(data, "file.pdf", "application/pdf")
//
//	// From multipart.FileHeader (HTTP uploads)
//	result := validator.ValidateMultipart(header)
//
//	// Local file
//	result, err := filevalidator.ValidateLocalFile(validator, "/path/to/file.pdf")
//
// # Error Handling
//
// A failed result carries exactly one typed error. The type is stable and
// safe to branch on; the message names the offending value and the violated
// constraint:
//
//	if !result.Valid {
//	    switch result.Err.Type {
//	    case filevalidator.ErrorTypeSize:
//	        // over the ceiling
//	    case filevalidator.ErrorTypeMIMEType:
//	        // declared type not in the allowlist
//	    case filevalidator.ErrorTypeExtension:
//	        // extension missing or not in the allowlist
//	    case filevalidator.ErrorTypeNamePattern:
//	        // denylisted suffix
//	    case filevalidator.ErrorTypeContent:
//	        // content does not match the declared type
//	    case filevalidator.ErrorTypeInternal:
//	        // validation itself faulted; message is deliberately generic
//	    }
//	}
//
// # Content Validators
//
// Beyond the standard sequence, an opt-in registry of content validators
// inspects internal structure:
//
//   - PDF: header, cross-reference anchor, trailer
//   - Office: ZIP directory, required parts, macro detection
//   - Images: dimension limits, decompression bomb protection
//   - XML: XXE protection, depth limits
//
// All validators read headers and directories, never whole files. Findings
// surface as warnings unless RequireContentValidation is set.
//
// # MIME Detection
//
// Magic-byte detection with an http.DetectContentType fallback:
//
//	mime, err := filevalidator.DetectMIME(reader)
//	mime := filevalidator.DetectMIMEFromBytes(data)
//
// # UploadKit Integration
//
// When used with UploadKit, validation runs automatically on every write:
//
//	import (
//	    "github.com/gobeaver/uploadkit"
//	    "github.com/gobeaver/uploadkit/filevalidator"
//	    "github.com/gobeaver/uploadkit/driver/local"
//	)
//
//	fs, _ := local.New("/var/uploads")
//	validator := filevalidator.NewDefault()
//	validatedFS := uploadkit.NewValidatedFileSystem(fs, validator)
//
//	// Writes are validated; rewritten names are honored on the way through.
//	res, err := validatedFS.Write(ctx, "scan 001.pdf", reader)
//
// # Design Philosophy
//
// This package does type validation, not security scanning. It validates
// that files are what they claim to be and that their names are safe to
// store. For malware detection, use dedicated tools like ClamAV.
package filevalidator
