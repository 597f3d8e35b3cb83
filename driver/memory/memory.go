// Package memory implements the uploadkit filesystem on in-process
// maps. It backs hermetic tests and staging areas for documents that
// never need to touch disk, with an optional capacity cap.
package memory

import (
	"bytes"
	"context"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/uploadkit"
	"github.com/gobwas/glob"
)

// blob is one stored file. The data slice is only ever replaced
// wholesale on overwrite, never mutated in place, so readers may hold
// it without copying.
type blob struct {
	data        []byte
	contentType string
	meta        map[string]string
	modTime     time.Time
	visibility  uploadkit.Visibility
}

func (f *blob) info(path string) *uploadkit.FileInfo {
	return &uploadkit.FileInfo{
		Name:        filepath.Base(path),
		Path:        path,
		Size:        int64(len(f.data)),
		ModTime:     f.modTime,
		ContentType: f.contentType,
		Metadata:    f.meta,
	}
}

func dirInfo(path string, mod time.Time) *uploadkit.FileInfo {
	return &uploadkit.FileInfo{
		Name:    filepath.Base(path),
		Path:    path,
		ModTime: mod,
		IsDir:   true,
	}
}

// Adapter implements uploadkit.FileSystem in memory.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*blob
	dirs    map[string]time.Time
	maxSize int64
	size    int64

	watchMu  sync.RWMutex
	watchers map[*uploadkit.CallbackChangeToken]glob.Glob
}

// Config holds configuration for the memory adapter.
type Config struct {
	// MaxSize caps total stored bytes; zero means unlimited.
	MaxSize int64
}

// New creates an empty in-memory filesystem.
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}
	a := &Adapter{
		files:   make(map[string]*blob),
		dirs:    make(map[string]time.Time),
		maxSize: maxSize,
	}
	a.dirs[""] = time.Now()
	a.dirs["/"] = time.Now()
	return a
}

// canon strips the leading slash and cleans the path. The empty string
// addresses the root.
func canon(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" || path == "." {
		return ""
	}
	return filepath.Clean(path)
}

func rejectTraversal(op, path string) error {
	if strings.Contains(path, "..") {
		return &uploadkit.PathError{Op: op, Path: path, Err: uploadkit.ErrPermission}
	}
	return nil
}

// snapshot fetches the blob for a canonical path under the read lock.
func (a *Adapter) snapshot(op, path string) (*blob, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.files[path]
	if !ok {
		return nil, &uploadkit.PathError{Op: op, Path: path, Err: uploadkit.ErrNotExist}
	}
	return f, nil
}

// fits checks the capacity cap against a pending size delta. Must be
// called with the write lock held.
func (a *Adapter) fits(delta int64) bool {
	return a.maxSize == 0 || a.size+delta <= a.maxSize
}

// mkParents records every missing ancestor directory. Must be called
// with the write lock held.
func (a *Adapter) mkParents(path string) {
	for dir := filepath.Dir(path); dir != "" && dir != "." && dir != "/"; dir = filepath.Dir(dir) {
		if _, ok := a.dirs[dir]; !ok {
			a.dirs[dir] = time.Now()
		}
	}
}

// Write stores content at path. Existing files are only replaced with
// WithOverwrite(true); WithSkipExistingCheck(true) skips the existence
// probe entirely.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = canon(path)
	if err := rejectTraversal("write", path); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "write", Path: path, Err: err}
	}

	var opts uploadkit.Options
	for _, option := range options {
		option(&opts)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = uploadkit.GuessContentType(path, data)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var replaced int64
	if existing, ok := a.files[path]; ok {
		if !opts.Overwrite && !opts.SkipExistingCheck {
			return nil, &uploadkit.PathError{Op: "write", Path: path, Err: uploadkit.ErrExist}
		}
		replaced = int64(len(existing.data))
	}
	if !a.fits(int64(len(data)) - replaced) {
		return nil, &uploadkit.PathError{Op: "write", Path: path, Err: uploadkit.ErrNoSpace}
	}

	a.mkParents(path)
	a.files[path] = &blob{
		data:        data,
		contentType: contentType,
		meta:        maps.Clone(opts.Metadata),
		modTime:     time.Now(),
		visibility:  opts.Visibility,
	}
	a.size += int64(len(data)) - replaced

	go a.notifyWatchers(path)

	return &uploadkit.WriteResult{
		Path:        path,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Read opens the file at path.
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := a.snapshot("read", canon(path))
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ReadAll reads the whole file at path.
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
	path = canon(path)

	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.files[path]
	if !ok {
		return &uploadkit.PathError{Op: "delete", Path: path, Err: uploadkit.ErrNotExist}
	}
	a.size -= int64(len(f.data))
	delete(a.files, path)

	go a.notifyWatchers(path)
	return nil
}

// FileExists reports whether path names a stored file.
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.files[canon(path)]
	return ok, nil
}

// DirExists reports whether path names a known directory.
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.dirs[canon(path)]
	return ok, nil
}

// Stat describes the file or directory at path.
func (a *Adapter) Stat(ctx context.Context, path string) (*uploadkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = canon(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if f, ok := a.files[path]; ok {
		return f.info(path), nil
	}
	if mod, ok := a.dirs[path]; ok {
		return dirInfo(path, mod), nil
	}
	return nil, &uploadkit.PathError{Op: "stat", Path: path, Err: uploadkit.ErrNotExist}
}

// under reports whether full sits anywhere below base.
func under(full, base string) bool {
	if base == "" || base == "/" {
		return true
	}
	return strings.HasPrefix(full, base+"/")
}

// directChild reports the immediate child of base that full sits under.
// leaf is true when full is that child itself rather than something
// nested below it.
func directChild(full, base string) (name string, leaf bool, ok bool) {
	rel := full
	if base != "" && base != "/" {
		var found bool
		rel, found = strings.CutPrefix(full, base+"/")
		if !found {
			return "", false, false
		}
	}
	if rel == "" {
		return "", false, false
	}
	name, _, nested := strings.Cut(rel, "/")
	return name, !nested, true
}

// ListContents lists a directory, sorted by name. Recursive listings
// report every file and directory below it with full paths.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]*uploadkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := canon(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.dirs[base]; !ok {
		err := uploadkit.ErrNotExist
		if _, isFile := a.files[base]; isFile {
			err = uploadkit.ErrNotDir
		}
		return nil, &uploadkit.PathError{Op: "listcontents", Path: base, Err: err}
	}

	var out []*uploadkit.FileInfo
	if recursive {
		for p, f := range a.files {
			if under(p, base) {
				out = append(out, f.info(p))
			}
		}
		for p, mod := range a.dirs {
			if p == base || p == "" || p == "/" {
				continue
			}
			if under(p, base) {
				out = append(out, dirInfo(p, mod))
			}
		}
	} else {
		seen := make(map[string]bool)
		for p, f := range a.files {
			name, leaf, ok := directChild(p, base)
			if !ok || !leaf || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, f.info(filepath.Join(base, name)))
		}
		for p, mod := range a.dirs {
			if p == base || p == "" || p == "/" {
				continue
			}
			name, leaf, ok := directChild(p, base)
			if !ok || !leaf || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, dirInfo(filepath.Join(base, name), mod))
		}
	}

	slices.SortFunc(out, func(x, y *uploadkit.FileInfo) int { return strings.Compare(x.Name, y.Name) })
	return out, nil
}

// CreateDir records a directory and its missing ancestors.
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = canon(path)
	if err := rejectTraversal("createdir", path); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.files[path]; ok {
		return &uploadkit.PathError{Op: "createdir", Path: path, Err: uploadkit.ErrExist}
	}
	a.mkParents(path)
	a.dirs[path] = time.Now()
	return nil
}

// DeleteDir removes a directory and everything under it.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = canon(path)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.dirs[path]; !ok {
		err := uploadkit.ErrNotExist
		if _, isFile := a.files[path]; isFile {
			err = uploadkit.ErrNotDir
		}
		return &uploadkit.PathError{Op: "deletedir", Path: path, Err: err}
	}

	prefix := strings.TrimSuffix(path, "/") + "/"

	var removed []string
	for p, f := range a.files {
		if strings.HasPrefix(p, prefix) {
			a.size -= int64(len(f.data))
			delete(a.files, p)
			removed = append(removed, p)
		}
	}
	for p := range a.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(a.dirs, p)
		}
	}

	if len(removed) > 0 {
		go a.notifyWatchers(removed...)
	}
	return nil
}

// WriteFile is not supported: the adapter stays off the local disk so
// tests built on it remain hermetic.
func (a *Adapter) WriteFile(ctx context.Context, path string, localPath string, options ...uploadkit.Option) (*uploadkit.WriteResult, error) {
	return nil, &uploadkit.PathError{
		Op:   "writefile",
		Path: localPath,
		Err:  uploadkit.ErrNotSupported,
	}
}

// Clear drops every file and directory, leaving an empty root.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*blob)
	a.dirs = make(map[string]time.Time)
	a.size = 0
	a.dirs[""] = time.Now()
	a.dirs["/"] = time.Now()
}

// Size returns the total bytes currently stored.
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of stored files.
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Copy implements uploadkit.CanCopy. The destination is replaced if it
// exists.
func (a *Adapter) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, dst = canon(src), canon(dst)
	if err := rejectTraversal("copy", src); err != nil {
		return err
	}
	if err := rejectTraversal("copy", dst); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srcFile, ok := a.files[src]
	if !ok {
		return &uploadkit.PathError{Op: "copy", Path: src, Err: uploadkit.ErrNotExist}
	}

	var replaced int64
	if existing, ok := a.files[dst]; ok {
		replaced = int64(len(existing.data))
	}
	if !a.fits(int64(len(srcFile.data)) - replaced) {
		return &uploadkit.PathError{Op: "copy", Path: dst, Err: uploadkit.ErrNoSpace}
	}

	a.mkParents(dst)
	a.files[dst] = &blob{
		data:        bytes.Clone(srcFile.data),
		contentType: srcFile.contentType,
		meta:        maps.Clone(srcFile.meta),
		modTime:     time.Now(),
		visibility:  srcFile.visibility,
	}
	a.size += int64(len(srcFile.data)) - replaced

	go a.notifyWatchers(dst)
	return nil
}

// Move implements uploadkit.CanMove by rekeying the stored blob.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, dst = canon(src), canon(dst)
	if err := rejectTraversal("move", src); err != nil {
		return err
	}
	if err := rejectTraversal("move", dst); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srcFile, ok := a.files[src]
	if !ok {
		return &uploadkit.PathError{Op: "move", Path: src, Err: uploadkit.ErrNotExist}
	}
	if existing, ok := a.files[dst]; ok {
		a.size -= int64(len(existing.data))
	}

	a.mkParents(dst)
	srcFile.modTime = time.Now()
	a.files[dst] = srcFile
	delete(a.files, src)

	go a.notifyWatchers(src, dst)
	return nil
}

// Checksum implements uploadkit.CanChecksum over the stored bytes.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm uploadkit.ChecksumAlgorithm) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := a.snapshot("checksum", canon(path))
	if err != nil {
		return "", err
	}
	sum, err := uploadkit.CalculateChecksum(bytes.NewReader(f.data), algorithm)
	if err != nil {
		return "", &uploadkit.PathError{Op: "checksum", Path: path, Err: err}
	}
	return sum, nil
}

// Checksums computes several hashes in one pass over the stored bytes.
func (a *Adapter) Checksums(ctx context.Context, path string, algorithms []uploadkit.ChecksumAlgorithm) (map[uploadkit.ChecksumAlgorithm]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := a.snapshot("checksums", canon(path))
	if err != nil {
		return nil, err
	}
	sums, err := uploadkit.CalculateChecksums(bytes.NewReader(f.data), algorithms)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "checksums", Path: path, Err: err}
	}
	return sums, nil
}

// Watch implements uploadkit.CanWatch. Filters are glob patterns such
// as "inbox/*.pdf" or "scans/**"; the token fires on any write, delete,
// or move touching a matching path. The subscription lasts until the
// context ends.
func (a *Adapter) Watch(ctx context.Context, filter string) (uploadkit.ChangeToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := glob.Compile(filter)
	if err != nil {
		return nil, &uploadkit.PathError{Op: "watch", Path: filter, Err: err}
	}

	token := uploadkit.NewCallbackChangeToken()
	a.watchMu.Lock()
	if a.watchers == nil {
		a.watchers = make(map[*uploadkit.CallbackChangeToken]glob.Glob)
	}
	a.watchers[token] = g
	a.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		a.watchMu.Lock()
		delete(a.watchers, token)
		a.watchMu.Unlock()
	}()

	return token, nil
}

// notifyWatchers signals every subscription matching any of the paths.
func (a *Adapter) notifyWatchers(paths ...string) {
	a.watchMu.RLock()
	defer a.watchMu.RUnlock()
	for token, g := range a.watchers {
		for _, p := range paths {
			if g.Match(p) {
				token.SignalChange()
				break
			}
		}
	}
}

var (
	_ uploadkit.FileSystem  = (*Adapter)(nil)
	_ uploadkit.FileReader  = (*Adapter)(nil)
	_ uploadkit.FileWriter  = (*Adapter)(nil)
	_ uploadkit.CanCopy     = (*Adapter)(nil)
	_ uploadkit.CanMove     = (*Adapter)(nil)
	_ uploadkit.CanChecksum = (*Adapter)(nil)
	_ uploadkit.CanWatch    = (*Adapter)(nil)
)
