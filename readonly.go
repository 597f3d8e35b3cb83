package uploadkit

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrReadOnly is returned for write operations on a read-only filesystem.
var ErrReadOnly = errors.New("filesystem is read-only")

// IsReadOnlyError reports whether err stems from a read-only restriction.
func IsReadOnlyError(err error) bool {
	return errors.Is(err, ErrReadOnly)
}

// ReadOnlyFileSystem blocks every mutating operation on the filesystem
// it wraps. It suits archives exposed to consumers that must not touch
// them, and tests that should never write.
//
//	archive := uploadkit.NewReadOnlyFileSystem(local.New("/archive"))
//	reader, _ := archive.Read(ctx, "2024/invoice_001.pdf") // fine
//	_, err := archive.Write(ctx, "2024/invoice_001.pdf", r)
//	// err wraps ErrReadOnly
//
// Read operations are promoted from the embedded backend; mutating ones
// are shadowed with guards.
type ReadOnlyFileSystem struct {
	FileSystem
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures which operations stay possible and how
// blocked ones fail.
type ReadOnlyOptions struct {
	// AllowCreateDir keeps directory creation working, for staging areas
	// that live inside an otherwise frozen tree. Default false.
	AllowCreateDir bool

	// AllowDelete keeps file deletion working. Default false.
	AllowDelete bool

	// OnWriteAttempt observes every blocked write, typically for audit
	// logging. Its error becomes the failure cause; returning nil lets
	// the write through.
	OnWriteAttempt func(op, path string) error

	// ErrorWrapper replaces the default PathError wrapping of blocked
	// writes.
	ErrorWrapper func(op, path string, err error) error
}

// ReadOnlyOption configures a ReadOnlyFileSystem.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreateDir keeps directory creation working.
func WithAllowCreateDir(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.AllowCreateDir = allow }
}

// WithAllowDelete keeps file deletion working.
func WithAllowDelete(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.AllowDelete = allow }
}

// WithWriteAttemptHandler observes blocked writes.
func WithWriteAttemptHandler(handler func(op, path string) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.OnWriteAttempt = handler }
}

// WithErrorWrapper replaces the default error wrapping.
func WithErrorWrapper(wrapper func(op, path string, err error) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.ErrorWrapper = wrapper }
}

// NewReadOnlyFileSystem wraps fs so that Write, Delete, CreateDir,
// DeleteDir, Copy, and Move fail with ErrReadOnly unless options say
// otherwise.
func NewReadOnlyFileSystem(fs FileSystem, opts ...ReadOnlyOption) *ReadOnlyFileSystem {
	ro := &ReadOnlyFileSystem{FileSystem: fs}
	for _, opt := range opts {
		opt(&ro.opts)
	}
	return ro
}

// Unwrap returns the wrapped FileSystem.
func (r *ReadOnlyFileSystem) Unwrap() FileSystem { return r.FileSystem }

// IsReadOnly reports true.
func (r *ReadOnlyFileSystem) IsReadOnly() bool { return true }

// deny produces the error for a blocked write. A nil return means the
// write-attempt handler explicitly allowed the operation.
func (r *ReadOnlyFileSystem) deny(op, path string) error {
	cause := error(ErrReadOnly)
	if r.opts.OnWriteAttempt != nil {
		cause = r.opts.OnWriteAttempt(op, path)
		if cause == nil {
			return nil
		}
	}
	if r.opts.ErrorWrapper != nil {
		return r.opts.ErrorWrapper(op, path, cause)
	}
	return &PathError{Op: op, Path: path, Err: cause}
}

// Write fails with ErrReadOnly unless a write-attempt handler allows it.
func (r *ReadOnlyFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error) {
	if err := r.deny("write", path); err != nil {
		return nil, err
	}
	return r.FileSystem.Write(ctx, path, content, options...)
}

// Delete fails with ErrReadOnly unless AllowDelete is set or a handler
// allows it.
func (r *ReadOnlyFileSystem) Delete(ctx context.Context, path string) error {
	if !r.opts.AllowDelete {
		if err := r.deny("delete", path); err != nil {
			return err
		}
	}
	return r.FileSystem.Delete(ctx, path)
}

// CreateDir fails with ErrReadOnly unless AllowCreateDir is set or a
// handler allows it.
func (r *ReadOnlyFileSystem) CreateDir(ctx context.Context, path string) error {
	if !r.opts.AllowCreateDir {
		if err := r.deny("createdir", path); err != nil {
			return err
		}
	}
	return r.FileSystem.CreateDir(ctx, path)
}

// DeleteDir fails with ErrReadOnly unless a handler allows it.
func (r *ReadOnlyFileSystem) DeleteDir(ctx context.Context, path string) error {
	if err := r.deny("deletedir", path); err != nil {
		return err
	}
	return r.FileSystem.DeleteDir(ctx, path)
}

// Copy fails with ErrReadOnly unless a handler allows it; the copy
// mutates the destination.
func (r *ReadOnlyFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := r.deny("copy", dst); err != nil {
		return err
	}
	if c, ok := r.FileSystem.(CanCopy); ok {
		return c.Copy(ctx, src, dst)
	}
	return &PathError{Op: "copy", Path: src, Err: ErrNotSupported}
}

// Move fails with ErrReadOnly unless a handler allows it.
func (r *ReadOnlyFileSystem) Move(ctx context.Context, src, dst string) error {
	if err := r.deny("move", dst); err != nil {
		return err
	}
	if m, ok := r.FileSystem.(CanMove); ok {
		return m.Move(ctx, src, dst)
	}
	return &PathError{Op: "move", Path: src, Err: ErrNotSupported}
}

// Checksum delegates when the backend supports it; checksums read, they
// do not write.
func (r *ReadOnlyFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	if cs, ok := r.FileSystem.(CanChecksum); ok {
		return cs.Checksum(ctx, path, algorithm)
	}
	return "", &PathError{Op: "checksum", Path: path, Err: ErrNotSupported}
}

// Checksums delegates when the backend supports it.
func (r *ReadOnlyFileSystem) Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if cs, ok := r.FileSystem.(CanChecksum); ok {
		return cs.Checksums(ctx, path, algorithms)
	}
	return nil, &PathError{Op: "checksums", Path: path, Err: ErrNotSupported}
}

// SignedURL delegates when the backend supports it. Download URLs only
// expose reads.
func (r *ReadOnlyFileSystem) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if s, ok := r.FileSystem.(CanSignURL); ok {
		return s.SignedURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-url", Path: path, Err: ErrNotSupported}
}

// SignedUploadURL fails with ErrReadOnly unless a handler allows it; an
// upload URL is a deferred write.
func (r *ReadOnlyFileSystem) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if err := r.deny("signed-upload-url", path); err != nil {
		return "", err
	}
	if s, ok := r.FileSystem.(CanSignURL); ok {
		return s.SignedUploadURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-upload-url", Path: path, Err: ErrNotSupported}
}

// Watch delegates when the backend supports it.
func (r *ReadOnlyFileSystem) Watch(ctx context.Context, filter string) (ChangeToken, error) {
	if w, ok := r.FileSystem.(CanWatch); ok {
		return w.Watch(ctx, filter)
	}
	return CancelledChangeToken{}, nil
}

var (
	_ FileSystem  = (*ReadOnlyFileSystem)(nil)
	_ FileReader  = (*ReadOnlyFileSystem)(nil)
	_ FileWriter  = (*ReadOnlyFileSystem)(nil)
	_ CanCopy     = (*ReadOnlyFileSystem)(nil)
	_ CanMove     = (*ReadOnlyFileSystem)(nil)
	_ CanChecksum = (*ReadOnlyFileSystem)(nil)
	_ CanSignURL  = (*ReadOnlyFileSystem)(nil)
	_ CanWatch    = (*ReadOnlyFileSystem)(nil)
)
