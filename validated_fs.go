package uploadkit

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/gobeaver/uploadkit/filevalidator"
)

// sniffLen is how much of a non-seekable stream is buffered for validation.
// 512 bytes covers every signature http.DetectContentType knows about.
const sniffLen = 512

// ValidatedFileSystem wraps a FileSystem so every write runs through a
// validator first. Rejected content never reaches the backend. When
// validation sanitizes the file name, the content is stored under the
// sanitized name and the WriteResult reports the path actually used.
// Only Write is intercepted; the read operations are promoted from the
// embedded backend.
type ValidatedFileSystem struct {
	FileSystem
	validator filevalidator.Validator
}

// NewValidatedFileSystem wraps fs so writes validate through validator.
func NewValidatedFileSystem(fs FileSystem, validator filevalidator.Validator) *ValidatedFileSystem {
	return &ValidatedFileSystem{FileSystem: fs, validator: validator}
}

// Write validates the candidate and stores it when it passes.
func (v *ValidatedFileSystem) Write(ctx context.Context, p string, content io.Reader, options ...Option) (*WriteResult, error) {
	opts := &Options{}
	for _, option := range options {
		option(opts)
	}

	// A validator provided per-call overrides the filesystem-level one.
	validator := v.validator
	if opts.Validator != nil {
		validator = opts.Validator
	}
	if validator == nil {
		return v.FileSystem.Write(ctx, p, content, options...)
	}

	name := path.Base(p)
	declared := opts.ContentType
	if declared == "" {
		declared = filevalidator.MIMETypeForExtension(path.Ext(name))
	}

	if seeker, ok := content.(io.ReadSeeker); ok {
		// Seekable source: the full check sequence can run against the
		// real size and content. The validator restores the position.
		size, err := getStreamSize(seeker)
		if err != nil {
			return nil, &PathError{Op: "write", Path: p, Err: err}
		}

		result := validator.ValidateWithContext(ctx, filevalidator.Candidate{
			Name:     name,
			MIMEType: declared,
			Size:     size,
			Content:  seeker,
		})
		if !result.Valid {
			return nil, &PathError{Op: "write", Path: p, Err: result.Err}
		}
		if result.Renamed() {
			p = storedPath(p, result.Sanitized.Name)
		}

		return v.FileSystem.Write(ctx, p, content, options...)
	}

	// Non-seekable source (e.g. an HTTP body): buffer enough of the head
	// for the content checks, validate against that, then stitch the
	// consumed bytes back in front of the remaining stream.
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(content, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, &PathError{Op: "write", Path: p, Err: err}
	}
	header = header[:n]

	result := validator.ValidateWithContext(ctx, filevalidator.Candidate{
		Name:     name,
		MIMEType: declared,
		Size:     int64(n), // at least this much; the limit reader enforces the rest
		Content:  bytes.NewReader(header),
	})
	if !result.Valid {
		return nil, &PathError{Op: "write", Path: p, Err: result.Err}
	}
	if result.Renamed() {
		p = storedPath(p, result.Sanitized.Name)
	}

	content = io.MultiReader(bytes.NewReader(header), content)

	// The size ceiling could not be checked upfront, so enforce it while
	// the backend drains the stream.
	if limit := validator.GetConstraints().MaxFileSize; limit > 0 {
		content = &SizeLimitReader{R: content, Limit: limit}
	}

	return v.FileSystem.Write(ctx, p, content, options...)
}

// storedPath swaps the base name of a requested path for the sanitized one.
func storedPath(requested, sanitized string) string {
	dir := path.Dir(requested)
	if dir == "." || dir == "/" {
		return sanitized
	}
	return path.Join(dir, sanitized)
}

// Validator returns the filesystem-level validator, or nil.
func (v *ValidatedFileSystem) Validator() filevalidator.Validator { return v.validator }

// Unwrap returns the underlying filesystem.
func (v *ValidatedFileSystem) Unwrap() FileSystem { return v.FileSystem }

var _ FileSystem = (*ValidatedFileSystem)(nil)
