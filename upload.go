package uploadkit

import (
	"context"
	"io"
)

// ProgressFunc receives transfer progress. total is the size the caller
// passed to Upload, zero when unknown.
type ProgressFunc func(transferred, total int64)

// UploadOptions controls how Upload moves content to the backend.
type UploadOptions struct {
	// ContentType declares the MIME type of the content.
	ContentType string

	// ChunkSize switches capable backends to a chunked upload session
	// with parts of this size. Zero keeps the single-write path.
	ChunkSize int64

	// Progress, when set, is called with the running transfer count as
	// content flows to the backend.
	Progress ProgressFunc

	// Metadata holds key/value pairs stored alongside the file.
	Metadata map[string]string

	// Visibility controls who may fetch the stored file.
	Visibility Visibility
}

// ChunkedUploader is implemented by backends with part-based upload
// sessions.
type ChunkedUploader interface {
	// InitiateUpload opens an upload session for path and returns its ID.
	InitiateUpload(ctx context.Context, path string) (string, error)

	// UploadPart stores one part. Parts are numbered from 1.
	UploadPart(ctx context.Context, uploadID string, partNumber int, data []byte) error

	// CompleteUpload assembles the stored parts into the final file.
	CompleteUpload(ctx context.Context, uploadID string) error

	// AbortUpload discards the session and any stored parts.
	AbortUpload(ctx context.Context, uploadID string) error
}

// Upload stores content at path. Backends implementing ChunkedUploader
// receive the content in parts when opts.ChunkSize is set; everything
// else gets a single Write carrying the translated options.
func Upload(ctx context.Context, fs FileSystem, path string, r io.Reader, size int64, opts *UploadOptions) (*WriteResult, error) {
	if opts == nil {
		opts = &UploadOptions{}
	}

	if opts.Progress != nil {
		r = newProgressReader(r, opts.Progress, size)
	}

	if chunked, ok := fs.(ChunkedUploader); ok && size > 0 && opts.ChunkSize > 0 {
		if err := uploadChunked(ctx, chunked, path, r, opts.ChunkSize); err != nil {
			return nil, err
		}
		return &WriteResult{Path: path, Size: size, ContentType: opts.ContentType}, nil
	}
	return fs.Write(ctx, path, r, opts.writeOptions()...)
}

// writeOptions translates the set fields into write options.
func (o *UploadOptions) writeOptions() []Option {
	var options []Option
	if o.ContentType != "" {
		options = append(options, WithContentType(o.ContentType))
	}
	if o.Metadata != nil {
		options = append(options, WithMetadata(o.Metadata))
	}
	if o.Visibility != "" {
		options = append(options, WithVisibility(o.Visibility))
	}
	return options
}

// uploadChunked streams content to the backend in parts. A failed or
// cancelled session is aborted so partial parts are not left behind.
func uploadChunked(ctx context.Context, fs ChunkedUploader, path string, r io.Reader, chunkSize int64) (err error) {
	id, err := fs.InitiateUpload(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fs.AbortUpload(ctx, id)
		}
	}()

	buf := make([]byte, chunkSize)
	for part := 1; ; part++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if err = fs.UploadPart(ctx, id, part, buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			err = readErr
			return err
		}
	}

	err = fs.CompleteUpload(ctx, id)
	return err
}

// progressReader invokes the callback as content flows through. Calls
// are throttled to roughly one per percent of the total, with a 64 KB
// floor so the callback is not hit on every small read.
type progressReader struct {
	reader   io.Reader
	progress ProgressFunc
	size     int64

	read     int64
	reported int64
	step     int64
}

func newProgressReader(r io.Reader, progress ProgressFunc, size int64) *progressReader {
	step := size / 100
	if step < 64<<10 {
		step = 64 << 10
	}
	return &progressReader{reader: r, progress: progress, size: size, step: step}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.read-r.reported >= r.step || err != nil {
			r.progress(r.read, r.size)
			r.reported = r.read
		}
	}
	if err == io.EOF && r.reported != r.read {
		// Final report so the caller always sees the complete count.
		r.progress(r.read, r.size)
		r.reported = r.read
	}
	return n, err
}
