// Package local stores files on the local disk under a fixed root
// directory. It backs intake staging and archive areas in single-host
// deployments and implements every optional uploadkit capability,
// including fsnotify-based watching and chunked uploads.
package local

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobeaver/uploadkit"
)

// Adapter implements uploadkit.FileSystem on a directory tree. Every
// operation resolves its path against the root and refuses to step
// outside it.
type Adapter struct {
	root string

	mu      sync.Mutex
	uploads map[string]*uploadSession
}

// New creates an adapter rooted at the given directory, creating it if
// needed.
func New(root string) (*Adapter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &Adapter{root: abs}, nil
}

// Root returns the absolute directory the adapter serves.
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a virtual path to an absolute one under the root. Paths
// that escape the root fail with ErrPermission.
func (a *Adapter) resolve(op, path string) (string, error) {
	abs := filepath.Join(a.root, filepath.Clean(path))
	rel, err := filepath.Rel(a.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &uploadkit.PathError{Op: op, Path: path, Err: uploadkit.ErrPermission}
	}
	return abs, nil
}

// osErr wraps an os error into a PathError, mapping not-exist onto the
// package sentinel so callers can test with IsNotExist.
func osErr(op, path string, err error) error {
	if os.IsNotExist(err) {
		err = uploadkit.ErrNotExist
	}
	return &uploadkit.PathError{Op: op, Path: path, Err: err}
}

// Write stores content at path, creating parent directories as needed.
// Existing files are only replaced with WithOverwrite(true);
// WithSkipExistingCheck(true) skips the existence probe entirely.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := a.resolve("write", path)
	if err != nil {
		return nil, err
	}

	var opts uploadkit.Options
	for _, option := range options {
		option(&opts)
	}

	if !opts.Overwrite && !opts.SkipExistingCheck {
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return nil, &uploadkit.PathError{Op: "write", Path: path, Err: uploadkit.ErrExist}
		}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, osErr("write", path, err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return nil, osErr("write", path, err)
	}
	written, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, osErr("write", path, err)
	}

	if mode, ok := visibilityMode(opts.Visibility); ok {
		if err := os.Chmod(abs, mode); err != nil {
			return nil, osErr("write", path, err)
		}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(abs)
	}

	return &uploadkit.WriteResult{
		Path:        path,
		Size:        written,
		ContentType: contentType,
	}, nil
}

// visibilityMode maps a visibility onto permission bits. The zero
// visibility leaves the umask-derived mode alone.
func visibilityMode(v uploadkit.Visibility) (os.FileMode, bool) {
	switch v {
	case uploadkit.Public:
		return 0644, true
	case uploadkit.Private:
		return 0600, true
	default:
		return 0, false
	}
}

// Read opens the file at path. The caller owns the returned handle.
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := a.resolve("read", path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, osErr("read", path, err)
	}
	return f, nil
}

// ReadAll reads the whole file at path into memory.
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete removes the file at path.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := a.resolve("delete", path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return osErr("delete", path, err)
	}
	return nil
}

// FileExists reports whether path names an existing regular file.
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := a.resolve("fileexists", path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, osErr("fileexists", path, err)
	}
	return !info.IsDir(), nil
}

// DirExists reports whether path names an existing directory.
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := a.resolve("direxists", path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, osErr("direxists", path, err)
	}
	return info.IsDir(), nil
}

// Stat describes the file or directory at path. Where the platform
// exposes them, the owner and creation time are reported through
// FileInfo.Metadata under the "owner" and "created" keys.
func (a *Adapter) Stat(ctx context.Context, path string) (*uploadkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := a.resolve("stat", path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, osErr("stat", path, err)
	}

	contentType := ""
	if !info.IsDir() {
		contentType = detectContentType(abs)
	}

	return &uploadkit.FileInfo{
		Name:        filepath.Base(path),
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: contentType,
		Metadata:    platformMetadata(info),
	}, nil
}

// ListContents lists the entries under a directory. Recursive listings
// walk the whole subtree and report paths relative to the adapter root.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]*uploadkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := a.resolve("listcontents", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, osErr("listcontents", path, err)
	}
	if !info.IsDir() {
		return nil, &uploadkit.PathError{Op: "listcontents", Path: path, Err: uploadkit.ErrNotDir}
	}

	if !recursive {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, osErr("listcontents", path, err)
		}
		files := make([]*uploadkit.FileInfo, 0, len(entries))
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, a.entryInfo(filepath.Join(path, entry.Name()), filepath.Join(abs, entry.Name()), info))
		}
		return files, nil
	}

	var files []*uploadkit.FileInfo
	err = filepath.WalkDir(abs, func(walkPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if walkPath == abs {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(a.root, walkPath)
		if err != nil {
			return err
		}
		files = append(files, a.entryInfo(rel, walkPath, info))
		return nil
	})
	if err != nil {
		return nil, &uploadkit.PathError{Op: "listcontents", Path: path, Err: err}
	}
	return files, nil
}

// entryInfo builds the exported view of one directory entry. Listings
// skip the platform metadata extraction; it costs a syscall per entry
// and Stat serves callers that need it.
func (a *Adapter) entryInfo(path, abs string, info os.FileInfo) *uploadkit.FileInfo {
	contentType := ""
	if !info.IsDir() {
		contentType = detectContentType(abs)
	}
	return &uploadkit.FileInfo{
		Name:        info.Name(),
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: contentType,
	}
}

// CreateDir creates a directory and any missing parents.
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := a.resolve("createdir", path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return osErr("createdir", path, err)
	}
	return nil
}

// DeleteDir removes a directory and everything under it.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := a.resolve("deletedir", path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return osErr("deletedir", path, err)
	}
	if !info.IsDir() {
		return &uploadkit.PathError{Op: "deletedir", Path: path, Err: uploadkit.ErrNotDir}
	}

	if err := os.RemoveAll(abs); err != nil {
		return osErr("deletedir", path, err)
	}
	return nil
}

// WriteFile copies an existing file from the local disk into the
// adapter, applying the same options as Write.
func (a *Adapter) WriteFile(ctx context.Context, path string, localPath string, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "writefile", Path: localPath, Err: err}
	}
	defer f.Close()
	return a.Write(ctx, path, f, options...)
}

// detectContentType guesses a file's MIME type: extension first, then a
// 512-byte content sniff.
func detectContentType(abs string) string {
	if ext := filepath.Ext(abs); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}

	f, err := os.Open(abs)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return http.DetectContentType(head[:n])
}

// Copy implements uploadkit.CanCopy. The destination is replaced if it
// exists; the source's permission bits carry over.
func (a *Adapter) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcAbs, err := a.resolve("copy", src)
	if err != nil {
		return err
	}
	dstAbs, err := a.resolve("copy", dst)
	if err != nil {
		return err
	}

	in, err := os.Open(srcAbs)
	if err != nil {
		return osErr("copy", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return osErr("copy", dst, err)
	}
	out, err := os.Create(dstAbs)
	if err != nil {
		return osErr("copy", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return osErr("copy", dst, err)
	}

	if info, err := os.Stat(srcAbs); err == nil {
		os.Chmod(dstAbs, info.Mode())
	}
	return nil
}

// Move implements uploadkit.CanMove. Rename is tried first; a
// cross-device failure falls back to copy and delete.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcAbs, err := a.resolve("move", src)
	if err != nil {
		return err
	}
	dstAbs, err := a.resolve("move", dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcAbs); err != nil {
		return osErr("move", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return osErr("move", dst, err)
	}

	if err := os.Rename(srcAbs, dstAbs); err != nil {
		if err := a.Copy(ctx, src, dst); err != nil {
			return err
		}
		if err := os.Remove(srcAbs); err != nil {
			return osErr("move", src, err)
		}
	}
	return nil
}

// Checksum implements uploadkit.CanChecksum by streaming the file
// through the requested hash.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm uploadkit.ChecksumAlgorithm) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := a.resolve("checksum", path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", osErr("checksum", path, err)
	}
	defer f.Close()

	sum, err := uploadkit.CalculateChecksum(f, algorithm)
	if err != nil {
		return "", &uploadkit.PathError{Op: "checksum", Path: path, Err: err}
	}
	return sum, nil
}

// Checksums computes several hashes in one pass over the file.
func (a *Adapter) Checksums(ctx context.Context, path string, algorithms []uploadkit.ChecksumAlgorithm) (map[uploadkit.ChecksumAlgorithm]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := a.resolve("checksums", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, osErr("checksums", path, err)
	}
	defer f.Close()

	sums, err := uploadkit.CalculateChecksums(f, algorithms)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "checksums", Path: path, Err: err}
	}
	return sums, nil
}

// Watch implements uploadkit.CanWatch with fsnotify events. The token is
// spent on the first change matching the filter.
func (a *Adapter) Watch(ctx context.Context, filter string) (uploadkit.ChangeToken, error) {
	dir, pattern := a.watchTarget(filter)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &uploadkit.PathError{Op: "watch", Path: filter, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, &uploadkit.PathError{Op: "watch", Path: filter, Err: err}
	}

	// Deep patterns need every subdirectory registered; fsnotify does
	// not recurse on its own.
	if strings.Contains(filter, "**") {
		filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err == nil && entry.IsDir() {
				watcher.Add(path)
			}
			return nil
		})
	}

	token := uploadkit.NewCallbackChangeToken()
	go a.pumpEvents(ctx, watcher, token, filter, pattern)
	return token, nil
}

// pumpEvents forwards fsnotify events until one matches, the context
// ends, or the watcher closes. Watcher errors are transient; watching
// continues through them.
func (a *Adapter) pumpEvents(ctx context.Context, watcher *fsnotify.Watcher, token *uploadkit.CallbackChangeToken, filter, pattern string) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			rel, err := filepath.Rel(a.root, event.Name)
			if err != nil {
				continue
			}
			if matchGlob(rel, filter) || matchGlob(filepath.Base(rel), pattern) {
				token.SignalChange()
				return
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// watchTarget splits a filter into the directory to register with
// fsnotify and the name pattern to match events against.
func (a *Adapter) watchTarget(filter string) (dir, pattern string) {
	dir, pattern = a.root, filter
	if strings.HasPrefix(filter, "*") {
		return dir, pattern
	}

	idx := strings.IndexAny(filter, "*?[")
	if idx < 0 {
		// Plain path: watch its parent for the exact name.
		return filepath.Join(a.root, filepath.Dir(filter)), filepath.Base(filter)
	}
	if slash := strings.LastIndex(filter[:idx], "/"); slash >= 0 {
		return filepath.Join(a.root, filter[:slash]), filter[slash+1:]
	}
	return dir, pattern
}

// matchGlob matches a path against a glob, treating ** as any depth.
func matchGlob(path, pattern string) bool {
	if before, after, found := strings.Cut(pattern, "**"); found {
		prefix := strings.TrimSuffix(before, "/")
		suffix := strings.TrimPrefix(after, "/")
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			return false
		}
		if suffix == "" {
			return true
		}
		ok, _ := filepath.Match(suffix, filepath.Base(path))
		return ok
	}

	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(path))
	return ok
}

// uploadSession tracks one in-progress chunked upload. Parts accumulate
// in a temp directory outside the root until CompleteUpload stitches
// them into the target.
type uploadSession struct {
	target   string
	partsDir string
}

func newUploadID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (a *Adapter) session(uploadID string) (*uploadSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.uploads[uploadID]
	return s, ok
}

// takeSession removes and returns a session, so completion and abort
// are each exactly-once.
func (a *Adapter) takeSession(uploadID string) (*uploadSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.uploads[uploadID]
	if ok {
		delete(a.uploads, uploadID)
	}
	return s, ok
}

// InitiateUpload starts a chunked upload targeting path and returns the
// session ID.
func (a *Adapter) InitiateUpload(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := a.resolve("initiate-upload", path); err != nil {
		return "", err
	}

	id, err := newUploadID()
	if err != nil {
		return "", &uploadkit.PathError{Op: "initiate-upload", Path: path, Err: err}
	}
	partsDir, err := os.MkdirTemp("", "uploadkit-parts-"+id+"-")
	if err != nil {
		return "", &uploadkit.PathError{Op: "initiate-upload", Path: path, Err: err}
	}

	a.mu.Lock()
	if a.uploads == nil {
		a.uploads = make(map[string]*uploadSession)
	}
	a.uploads[id] = &uploadSession{target: path, partsDir: partsDir}
	a.mu.Unlock()

	return id, nil
}

// UploadPart stores one numbered part. Parts may arrive in any order;
// numbering starts at 1.
func (a *Adapter) UploadPart(ctx context.Context, uploadID string, partNumber int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if partNumber < 1 {
		return &uploadkit.PathError{
			Op:   "upload-part",
			Path: uploadID,
			Err:  fmt.Errorf("part number must be >= 1, got %d", partNumber),
		}
	}

	s, ok := a.session(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "upload-part",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}

	part := filepath.Join(s.partsDir, strconv.Itoa(partNumber))
	if err := os.WriteFile(part, data, 0600); err != nil {
		return &uploadkit.PathError{Op: "upload-part", Path: uploadID, Err: err}
	}
	return nil
}

// CompleteUpload joins the parts in ascending number order into the
// target file and ends the session. Gaps in the numbering are
// tolerated.
func (a *Adapter) CompleteUpload(ctx context.Context, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s, ok := a.takeSession(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "complete-upload",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}
	defer os.RemoveAll(s.partsDir)

	numbers, err := partNumbers(s.partsDir)
	if err != nil {
		return &uploadkit.PathError{Op: "complete-upload", Path: uploadID, Err: err}
	}
	if len(numbers) == 0 {
		return &uploadkit.PathError{
			Op:   "complete-upload",
			Path: uploadID,
			Err:  errors.New("no parts uploaded"),
		}
	}

	abs, err := a.resolve("complete-upload", s.target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return osErr("complete-upload", s.target, err)
	}
	target, err := os.Create(abs)
	if err != nil {
		return osErr("complete-upload", s.target, err)
	}
	defer target.Close()

	for _, n := range numbers {
		if err := appendPart(target, filepath.Join(s.partsDir, strconv.Itoa(n)), n); err != nil {
			return &uploadkit.PathError{Op: "complete-upload", Path: s.target, Err: err}
		}
	}
	return nil
}

// partNumbers lists the numeric part files in ascending order.
func partNumbers(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	numbers := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	return numbers, nil
}

func appendPart(dst io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open part %d: %w", n, err)
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("write part %d: %w", n, err)
	}
	return nil
}

// AbortUpload ends a session and discards its buffered parts.
func (a *Adapter) AbortUpload(ctx context.Context, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, ok := a.takeSession(uploadID)
	if !ok {
		return &uploadkit.PathError{
			Op:   "abort-upload",
			Path: uploadID,
			Err:  fmt.Errorf("upload not found: %s", uploadID),
		}
	}
	if err := os.RemoveAll(s.partsDir); err != nil {
		return &uploadkit.PathError{Op: "abort-upload", Path: uploadID, Err: err}
	}
	return nil
}

var (
	_ uploadkit.FileSystem      = (*Adapter)(nil)
	_ uploadkit.FileReader      = (*Adapter)(nil)
	_ uploadkit.FileWriter      = (*Adapter)(nil)
	_ uploadkit.CanCopy         = (*Adapter)(nil)
	_ uploadkit.CanMove         = (*Adapter)(nil)
	_ uploadkit.CanChecksum     = (*Adapter)(nil)
	_ uploadkit.CanWatch        = (*Adapter)(nil)
	_ uploadkit.ChunkedUploader = (*Adapter)(nil)
)
