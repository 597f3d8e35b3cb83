package uploadkit

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a stored file or directory.
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
	Metadata    map[string]string
}

// WriteResult reports what a write actually stored. Path is the final
// stored path, which can differ from the requested path when validation
// sanitizes the file name.
type WriteResult struct {
	Path        string
	Size        int64
	ContentType string
}

// FileReader is the read-only half of a backend. Take a FileReader in
// function signatures to rule out writes at compile time.
type FileReader interface {
	// Read opens the file at path for streaming.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadAll buffers the whole file. Only for content known to be small.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// FileExists reports whether a file is stored at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirExists reports whether a directory exists at path.
	DirExists(ctx context.Context, path string) (bool, error)

	// Stat describes the file or directory at path.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// ListContents lists entries under path. When recursive is true,
	// entries of nested directories are included.
	ListContents(ctx context.Context, path string, recursive bool) ([]*FileInfo, error)
}

// FileWriter is the write half of a backend.
type FileWriter interface {
	// Write stores content at path and reports what was stored.
	Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error)

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// CreateDir creates a directory at path, including parents.
	CreateDir(ctx context.Context, path string) error

	// DeleteDir removes the directory at path and its contents.
	DeleteDir(ctx context.Context, path string) error
}

// FileSystem combines read and write access.
type FileSystem interface {
	FileReader
	FileWriter
}

// Capabilities beyond FileSystem are optional interfaces discovered by
// type assertion, so a driver only claims what it can actually do and
// callers degrade gracefully when it can't.

// CanCopy is implemented by backends with a native copy operation,
// cheaper than read-then-write when both paths live on the same backend.
type CanCopy interface {
	Copy(ctx context.Context, src, dst string) error
}

// CanMove is implemented by backends with a native move or rename.
type CanMove interface {
	Move(ctx context.Context, src, dst string) error
}

// ChecksumAlgorithm identifies a checksum algorithm.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// CanChecksum is implemented by backends that compute digests
// themselves, possibly server-side without transferring the content.
type CanChecksum interface {
	// Checksum returns the hex-encoded checksum of the file at path.
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)

	// Checksums returns hex-encoded checksums for multiple algorithms
	// in a single pass over the content.
	Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error)
}

// CanSignURL is implemented by backends that can mint pre-signed URLs,
// letting clients read or upload directly without proxying bytes
// through the application.
type CanSignURL interface {
	// SignedURL returns a URL granting temporary read access to path.
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// SignedUploadURL returns a URL granting temporary write access to path.
	SignedUploadURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// ChangeToken signals that a watched resource changed.
type ChangeToken interface {
	// HasChanged reports whether a change occurred.
	HasChanged() bool

	// ActiveChangeCallbacks reports whether the token invokes callbacks
	// proactively. When false, callers must poll HasChanged.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback invoked on change.
	// The returned function unregisters the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CanWatch is implemented by backends that can report changes to files
// matching a glob pattern, such as "inbox/*.pdf" or "**/*.docx".
//
//	watcher, ok := store.(CanWatch)
//	if !ok {
//	    return ErrNotSupported
//	}
//	token, err := watcher.Watch(ctx, "inbox/*.pdf")
//	if err != nil {
//	    return err
//	}
//	defer token.RegisterChangeCallback(onNewDocument)()
type CanWatch interface {
	// Watch creates a token that signals when a file matching pattern
	// is created, modified, or deleted.
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}
