// Package s3 stores files as objects in an Amazon S3 bucket, or any
// S3-compatible store such as MinIO. Multipart uploads back the chunked
// upload interface, CopyObject backs server-side copies, and pre-signed
// URLs hand downloads and uploads directly to clients. Watching is
// polling-based; S3 emits no change events to a plain client.
package s3

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/uploadkit"
	"github.com/gobwas/glob"
)

// Client is the subset of the S3 API the adapter calls. *s3.Client
// satisfies it; tests can substitute a fake to stay off the network.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

const (
	// deleteWaitTimeout bounds the wait for a deletion to become
	// visible to subsequent reads.
	deleteWaitTimeout = 30 * time.Second

	// watchInterval is how often Watch re-lists the bucket.
	watchInterval = 30 * time.Second

	// maxPartNumber is the highest part number S3 accepts.
	maxPartNumber = 10000
)

// Adapter implements uploadkit.FileSystem on an S3 bucket. Paths map to
// object keys, optionally under a fixed key prefix.
type Adapter struct {
	client  Client
	presign *s3.PresignClient
	bucket  string
	prefix  string

	mu      sync.Mutex
	uploads map[string]*upload
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithPrefix scopes the adapter to keys under prefix, so several
// adapters can share one bucket without seeing each other's objects.
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New builds an adapter for bucket on the given client. Pre-signed URLs
// need a real *s3.Client; with any other Client implementation,
// SignedURL and SignedUploadURL report ErrNotSupported.
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
	a := &Adapter{client: client, bucket: bucket}
	if c, ok := client.(*s3.Client); ok {
		a.presign = s3.NewPresignClient(c)
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// key maps an adapter path to its object key.
func (a *Adapter) key(filePath string) string {
	return path.Join(a.prefix, filePath)
}

// collectOptions folds functional options into one Options value.
func collectOptions(options ...uploadkit.Option) *uploadkit.Options {
	opts := &uploadkit.Options{}
	for _, apply := range options {
		apply(opts)
	}
	return opts
}

// isNotFound reports whether err is S3's way of saying the key is
// absent: HeadObject yields types.NotFound, GetObject types.NoSuchKey.
func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

// wrapErr dresses an SDK error as a PathError, translating absent-key
// errors to uploadkit.ErrNotExist so errors.Is works the same across
// drivers.
func wrapErr(op, filePath string, err error) error {
	if isNotFound(err) {
		return &uploadkit.PathError{Op: op, Path: filePath, Err: uploadkit.ErrNotExist}
	}
	return &uploadkit.PathError{Op: op, Path: filePath, Err: err}
}

// Write implements uploadkit.FileWriter. Existing objects are kept
// unless WithOverwrite(true) is given; the existence probe costs one
// HeadObject round-trip, which WithSkipExistingCheck(true) saves when
// the caller knows the key is fresh.
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	opts := collectOptions(options...)

	if !opts.Overwrite && !opts.SkipExistingCheck {
		switch exists, err := a.FileExists(ctx, filePath); {
		case err != nil:
			return nil, err
		case exists:
			return nil, &uploadkit.PathError{Op: "write", Path: filePath, Err: uploadkit.ErrExist}
		}
	}

	body, size, err := sizedBody(content)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "write", Path: filePath, Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket:            aws.String(a.bucket),
		Key:               aws.String(a.key(filePath)),
		Body:              body,
		ContentLength:     aws.Int64(size),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	applyWriteOptions(input, opts)

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return nil, wrapErr("write", filePath, err)
	}

	return &uploadkit.WriteResult{
		Path:        filePath,
		Size:        size,
		ContentType: opts.ContentType,
	}, nil
}

// sizedBody adapts content for PutObject, which wants the length up
// front. Readers that know their length pass through; seekable readers
// are measured; everything else is buffered, so large streams of
// unknown length belong on the ChunkedUploader path instead.
func sizedBody(content io.Reader) (io.Reader, int64, error) {
	switch r := content.(type) {
	case interface{ Len() int }:
		// bytes.Reader, bytes.Buffer, strings.Reader.
		return content, int64(r.Len()), nil
	case io.ReadSeeker:
		size, err := seekerLen(r)
		if err != nil {
			return nil, 0, err
		}
		return r, size, nil
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// seekerLen measures the bytes remaining in r and restores the read
// position afterwards.
func seekerLen(r io.ReadSeeker) (int64, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end - pos, nil
}

// applyWriteOptions copies the option fields PutObject understands onto
// the request. An explicit canned ACL wins over the Visibility mapping.
func applyWriteOptions(input *s3.PutObjectInput, opts *uploadkit.Options) {
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.ContentDisposition != "" {
		input.ContentDisposition = aws.String(opts.ContentDisposition)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = maps.Clone(opts.Metadata)
	}

	switch {
	case opts.ACL != "":
		input.ACL = types.ObjectCannedACL(opts.ACL)
	case opts.Visibility == uploadkit.Public:
		input.ACL = types.ObjectCannedACLPublicRead
	case opts.Visibility == uploadkit.Private:
		input.ACL = types.ObjectCannedACLPrivate
	}
}

// WriteFile uploads a local file. Unless WithContentType is given, the
// content type is inferred from the local file's extension.
func (a *Adapter) WriteFile(ctx context.Context, destPath, localPath string, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	if collectOptions(options...).ContentType == "" {
		if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
			options = append(options, uploadkit.WithContentType(ct))
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "writefile", Path: localPath, Err: err}
	}
	defer f.Close()

	return a.Write(ctx, destPath, f, options...)
}

// Read implements uploadkit.FileReader. The returned body is the HTTP
// response stream; the caller must close it.
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, wrapErr("read", filePath, err)
	}
	return resp.Body, nil
}

// ReadAll implements uploadkit.FileReader.
func (a *Adapter) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	r, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Stat implements uploadkit.FileReader from HeadObject metadata.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*uploadkit.FileInfo, error) {
	key := a.key(filePath)
	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapErr("stat", filePath, err)
	}

	return &uploadkit.FileInfo{
		Name:        filepath.Base(filePath),
		Path:        filePath,
		Size:        aws.ToInt64(resp.ContentLength),
		ModTime:     aws.ToTime(resp.LastModified),
		IsDir:       strings.HasSuffix(key, "/"),
		ContentType: aws.ToString(resp.ContentType),
		Metadata:    maps.Clone(resp.Metadata),
	}, nil
}

// FileExists implements uploadkit.FileReader with a HeadObject probe.
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	key := a.key(filePath)
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	switch {
	case isNotFound(err):
		return false, nil
	case err != nil:
		return false, wrapErr("fileexists", filePath, err)
	}

	// Trailing-slash keys are directory markers, not files.
	return !strings.HasSuffix(key, "/"), nil
}

// DirExists implements uploadkit.FileReader. A directory exists when
// its marker object does, or when any key lives under its prefix.
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	prefix := a.key(dirPath)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	resp, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, wrapErr("direxists", dirPath, err)
	}
	return len(resp.Contents) > 0 || len(resp.CommonPrefixes) > 0, nil
}

// ListContents implements uploadkit.FileReader. Non-recursive listings
// use a delimiter so S3 folds nested keys into common prefixes.
func (a *Adapter) ListContents(ctx context.Context, dirPath string, recursive bool) ([]*uploadkit.FileInfo, error) {
	listPrefix := a.key(dirPath)
	if listPrefix != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}

	if recursive {
		return a.listAll(ctx, dirPath, listPrefix)
	}
	return a.listShallow(ctx, dirPath, listPrefix)
}

func (a *Adapter) listAll(ctx context.Context, dirPath, listPrefix string) ([]*uploadkit.FileInfo, error) {
	var entries []*uploadkit.FileInfo

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("listcontents", dirPath, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == listPrefix {
				continue
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(key, a.prefix), "/")

			entries = append(entries, &uploadkit.FileInfo{
				Name:    filepath.Base(rel),
				Path:    rel,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
				IsDir:   strings.HasSuffix(key, "/"),
			})
		}
	}
	return entries, nil
}

func (a *Adapter) listShallow(ctx context.Context, dirPath, listPrefix string) ([]*uploadkit.FileInfo, error) {
	resp, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, wrapErr("listcontents", dirPath, err)
	}

	var entries []*uploadkit.FileInfo
	for _, p := range resp.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), listPrefix), "/")
		if name == "" {
			continue
		}
		entries = append(entries, &uploadkit.FileInfo{
			Name:  name,
			Path:  path.Join(dirPath, name),
			IsDir: true,
		})
	}
	for _, obj := range resp.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), listPrefix)
		// The directory's own marker object comes back as "".
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		entries = append(entries, &uploadkit.FileInfo{
			Name:    name,
			Path:    path.Join(dirPath, name),
			Size:    aws.ToInt64(obj.Size),
			ModTime: aws.ToTime(obj.LastModified),
		})
	}
	return entries, nil
}

// Delete implements uploadkit.FileWriter. DeleteObject can return
// before the deletion is visible, so a waiter confirms the object is
// gone before reporting success.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	key := a.key(filePath)
	if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapErr("delete", filePath, err)
	}

	waiter := s3.NewObjectNotExistsWaiter(a.client)
	head := &s3.HeadObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(key)}
	if err := waiter.Wait(ctx, head, deleteWaitTimeout); err != nil {
		return wrapErr("delete", filePath, err)
	}
	return nil
}

// CreateDir implements uploadkit.FileWriter. S3 has no directories; an
// empty object whose key ends in a slash marks one.
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	key := a.key(dirPath)
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String("application/x-directory"),
	})
	if err != nil {
		return wrapErr("createdir", dirPath, err)
	}
	return nil
}

// DeleteDir implements uploadkit.FileWriter, removing every key under
// the directory prefix page by page. DeleteObjects takes up to 1000
// keys, which is also the listing page size.
func (a *Adapter) DeleteDir(ctx context.Context, dirPath string) error {
	prefix := a.key(dirPath)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return wrapErr("deletedir", dirPath, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		batch := make([]types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			batch[i] = types.ObjectIdentifier{Key: obj.Key}
		}
		_, err = a.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(a.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return wrapErr("deletedir", dirPath, err)
		}
		deleted = true
	}

	if !deleted {
		return &uploadkit.PathError{Op: "deletedir", Path: dirPath, Err: uploadkit.ErrNotExist}
	}
	return nil
}

// Copy implements uploadkit.CanCopy with S3's server-side CopyObject,
// so content never round-trips through the client. An existing
// destination is replaced.
func (a *Adapter) Copy(ctx context.Context, src, dst string) error {
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		CopySource: aws.String(a.bucket + "/" + a.key(src)),
		Key:        aws.String(a.key(dst)),
	})
	if err != nil {
		return wrapErr("copy", src, err)
	}
	return nil
}

// Move implements uploadkit.CanMove as copy-then-delete; S3 has no
// native rename.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := a.Copy(ctx, src, dst); err != nil {
		return err
	}

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(src)),
	})
	if err != nil {
		return wrapErr("move", src, err)
	}
	return nil
}

// Checksum implements uploadkit.CanChecksum. S3 only reports checksums
// captured at write time, so the object is streamed and hashed client
// side.
func (a *Adapter) Checksum(ctx context.Context, filePath string, algorithm uploadkit.ChecksumAlgorithm) (string, error) {
	r, err := a.Read(ctx, filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	sum, err := uploadkit.CalculateChecksum(r, algorithm)
	if err != nil {
		return "", &uploadkit.PathError{Op: "checksum", Path: filePath, Err: err}
	}
	return sum, nil
}

// Checksums implements uploadkit.CanChecksum, hashing every requested
// algorithm in one pass over the object.
func (a *Adapter) Checksums(ctx context.Context, filePath string, algorithms []uploadkit.ChecksumAlgorithm) (map[uploadkit.ChecksumAlgorithm]string, error) {
	r, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sums, err := uploadkit.CalculateChecksums(r, algorithms)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "checksums", Path: filePath, Err: err}
	}
	return sums, nil
}

// SignedURL implements uploadkit.CanSignURL with a pre-signed GetObject
// request.
func (a *Adapter) SignedURL(ctx context.Context, filePath string, expiry time.Duration) (string, error) {
	if a.presign == nil {
		return "", &uploadkit.PathError{Op: "signed-url", Path: filePath, Err: uploadkit.ErrNotSupported}
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	}, withExpiry(expiry))
	if err != nil {
		return "", wrapErr("signed-url", filePath, err)
	}
	return req.URL, nil
}

// SignedUploadURL implements uploadkit.CanSignURL with a pre-signed
// PutObject request.
func (a *Adapter) SignedUploadURL(ctx context.Context, filePath string, expiry time.Duration) (string, error) {
	if a.presign == nil {
		return "", &uploadkit.PathError{Op: "signed-upload-url", Path: filePath, Err: uploadkit.ErrNotSupported}
	}

	req, err := a.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	}, withExpiry(expiry))
	if err != nil {
		return "", wrapErr("signed-upload-url", filePath, err)
	}
	return req.URL, nil
}

func withExpiry(expiry time.Duration) func(*s3.PresignOptions) {
	return func(o *s3.PresignOptions) { o.Expires = expiry }
}

// upload tracks one in-progress multipart upload: the object key and
// the ETags S3 returned per part, which CompleteMultipartUpload needs
// back in part-number order.
type upload struct {
	key string

	mu    sync.Mutex
	parts []types.CompletedPart
}

func (u *upload) addPart(p types.CompletedPart) {
	u.mu.Lock()
	u.parts = append(u.parts, p)
	u.mu.Unlock()
}

func (u *upload) sortedParts() []types.CompletedPart {
	u.mu.Lock()
	parts := slices.Clone(u.parts)
	u.mu.Unlock()

	slices.SortFunc(parts, func(a, b types.CompletedPart) int {
		return cmp.Compare(aws.ToInt32(a.PartNumber), aws.ToInt32(b.PartNumber))
	})
	return parts
}

func (a *Adapter) session(uploadID string) (*upload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.uploads[uploadID]
	return u, ok
}

// takeSession removes and returns a session, so completion and abort
// are each exactly-once.
func (a *Adapter) takeSession(uploadID string) (*upload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.uploads[uploadID]
	if ok {
		delete(a.uploads, uploadID)
	}
	return u, ok
}

// InitiateUpload implements uploadkit.ChunkedUploader by opening an S3
// multipart upload. The returned ID is S3's upload ID.
func (a *Adapter) InitiateUpload(ctx context.Context, filePath string) (string, error) {
	key := a.key(filePath)
	resp, err := a.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", wrapErr("initiate-upload", filePath, err)
	}

	id := aws.ToString(resp.UploadId)
	a.mu.Lock()
	if a.uploads == nil {
		a.uploads = make(map[string]*upload)
	}
	a.uploads[id] = &upload{key: key}
	a.mu.Unlock()

	return id, nil
}

// UploadPart implements uploadkit.ChunkedUploader. Parts may arrive in
// any order and from concurrent goroutines; the numbering is S3's, 1
// through 10000.
func (a *Adapter) UploadPart(ctx context.Context, uploadID string, partNumber int, data []byte) error {
	if partNumber < 1 || partNumber > maxPartNumber {
		return &uploadkit.PathError{
			Op:   "upload-part",
			Path: uploadID,
			Err:  fmt.Errorf("part number must be between 1 and %d, got %d", maxPartNumber, partNumber),
		}
	}

	u, ok := a.session(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "upload-part",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}

	number := int32(partNumber) // bounds-checked above
	resp, err := a.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(a.bucket),
		Key:        aws.String(u.key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(number),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return wrapErr("upload-part", u.key, err)
	}

	u.addPart(types.CompletedPart{ETag: resp.ETag, PartNumber: aws.Int32(number)})
	return nil
}

// CompleteUpload implements uploadkit.ChunkedUploader. The session ends
// here whether or not S3 accepts the completion.
func (a *Adapter) CompleteUpload(ctx context.Context, uploadID string) error {
	u, ok := a.takeSession(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "complete-upload",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}

	parts := u.sortedParts()
	if len(parts) == 0 {
		return &uploadkit.PathError{
			Op:   "complete-upload",
			Path: u.key,
			Err:  errors.New("no parts uploaded"),
		}
	}

	_, err := a.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(u.key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return wrapErr("complete-upload", u.key, err)
	}
	return nil
}

// AbortUpload implements uploadkit.ChunkedUploader, discarding the
// session and telling S3 to drop any stored parts.
func (a *Adapter) AbortUpload(ctx context.Context, uploadID string) error {
	u, ok := a.takeSession(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "abort-upload",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}

	_, err := a.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(a.bucket),
		Key:      aws.String(u.key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return wrapErr("abort-upload", u.key, err)
	}
	return nil
}

// Watch implements uploadkit.CanWatch by polling: the object listing
// under the adapter prefix is snapshotted and compared every
// watchInterval. The pattern is a glob over adapter paths, like
// "inbox/*.pdf".
func (a *Adapter) Watch(ctx context.Context, pattern string) (uploadkit.ChangeToken, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "watch", Path: pattern, Err: err}
	}

	baseline, err := a.snapshot(ctx, matcher)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "watch", Path: pattern, Err: err}
	}

	return uploadkit.NewPollingChangeToken(ctx, uploadkit.PollingConfig{
		Interval: watchInterval,
		CheckFunc: func() bool {
			current, err := a.snapshot(ctx, matcher)
			if err != nil {
				// A failed listing proves nothing changed.
				return false
			}
			return !maps.Equal(baseline, current)
		},
	}), nil
}

// objectState is what change detection compares per key. A new key, a
// vanished key, or a changed state all count as a change.
type objectState struct {
	modTime time.Time
	size    int64
}

func (a *Adapter) snapshot(ctx context.Context, matcher glob.Glob) (map[string]objectState, error) {
	state := make(map[string]objectState)

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), a.prefix)
			if rel == "" || !matcher.Match(rel) {
				continue
			}
			state[rel] = objectState{
				modTime: aws.ToTime(obj.LastModified),
				size:    aws.ToInt64(obj.Size),
			}
		}
	}
	return state, nil
}

var (
	_ uploadkit.FileSystem      = (*Adapter)(nil)
	_ uploadkit.FileReader      = (*Adapter)(nil)
	_ uploadkit.FileWriter      = (*Adapter)(nil)
	_ uploadkit.CanCopy         = (*Adapter)(nil)
	_ uploadkit.CanMove         = (*Adapter)(nil)
	_ uploadkit.CanSignURL      = (*Adapter)(nil)
	_ uploadkit.CanChecksum     = (*Adapter)(nil)
	_ uploadkit.CanWatch        = (*Adapter)(nil)
	_ uploadkit.ChunkedUploader = (*Adapter)(nil)
)
