package uploadkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrMountNotFound reports that no mount owns the given path.
	ErrMountNotFound = errors.New("no mount point found for path")
	// ErrMountExists reports that the mount path is already taken.
	ErrMountExists = errors.New("mount point already exists")
	// ErrEmptyMountPath reports an empty mount path.
	ErrEmptyMountPath = errors.New("mount path cannot be empty")
	// ErrNilDriver reports an attempt to mount a nil filesystem.
	ErrNilDriver = errors.New("driver cannot be nil")
)

// MountManager joins several filesystems into one virtual path space.
// Each backend is mounted under a prefix ("/staging", "/archive") and
// every operation routes to the longest matching mount, so nested mounts
// shadow their parents. An intake pipeline can stage uploads on local
// disk and archive accepted documents to object storage without callers
// tracking which backend holds what.
type MountManager struct {
	mu     sync.RWMutex
	mounts map[string]FileSystem

	// byLength caches the mount paths longest-first, ties broken
	// lexically, for prefix routing.
	byLength []string
}

// NewMountManager returns a manager with no mounts.
func NewMountManager() *MountManager {
	return &MountManager{mounts: make(map[string]FileSystem)}
}

// Mount attaches fs under mountPath. Paths are rooted at "/" and must be
// unique; mounting below an existing mount is allowed and shadows it.
//
//	mounts.Mount("/staging", localDriver)
//	mounts.Mount("/archive", s3Driver)
//	mounts.Mount("/archive/coldline", glacierDriver)
func (m *MountManager) Mount(mountPath string, fs FileSystem) error {
	if fs == nil {
		return ErrNilDriver
	}
	mountPath = cleanMountPath(mountPath)
	if mountPath == "" {
		return ErrEmptyMountPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.mounts[mountPath]; taken {
		return fmt.Errorf("%w: %s", ErrMountExists, mountPath)
	}
	m.mounts[mountPath] = fs
	m.reindex()
	return nil
}

// Unmount detaches the filesystem at mountPath.
func (m *MountManager) Unmount(mountPath string) error {
	mountPath = cleanMountPath(mountPath)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.mounts[mountPath]; !ok {
		return fmt.Errorf("%w: %s", ErrMountNotFound, mountPath)
	}
	delete(m.mounts, mountPath)
	m.reindex()
	return nil
}

// Mounts returns a snapshot of the mount table.
func (m *MountManager) Mounts() map[string]FileSystem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.mounts)
}

// MountPaths returns the mount paths, longest first.
func (m *MountManager) MountPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.byLength)
}

// GetMount returns the filesystem mounted exactly at mountPath.
func (m *MountManager) GetMount(mountPath string) (FileSystem, error) {
	mountPath = cleanMountPath(mountPath)

	m.mu.RLock()
	defer m.mu.RUnlock()
	fs, ok := m.mounts[mountPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMountNotFound, mountPath)
	}
	return fs, nil
}

// route maps a virtual path to the mount that owns it. It returns the
// backend, the path relative to it, and the winning mount path.
func (m *MountManager) route(virtual string) (FileSystem, string, string, error) {
	virtual = cleanMountPath(virtual)
	if virtual == "" {
		return nil, "", "", ErrEmptyMountPath
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mountPath := range m.byLength {
		rel, ok := routeUnder(virtual, mountPath)
		if !ok {
			continue
		}
		return m.mounts[mountPath], rel, mountPath, nil
	}
	return nil, "", "", fmt.Errorf("%w: %s", ErrMountNotFound, virtual)
}

// routeUnder reports whether virtual falls under mountPath and returns
// the remainder relative to it.
func routeUnder(virtual, mountPath string) (string, bool) {
	if virtual == mountPath {
		return "", true
	}
	return strings.CutPrefix(virtual, mountPath+"/")
}

// reindex rebuilds byLength. Callers hold the write lock.
func (m *MountManager) reindex() {
	paths := slices.Collect(maps.Keys(m.mounts))
	slices.SortFunc(paths, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	m.byLength = paths
}

// cleanMountPath roots p at "/" and collapses empty and dot segments.
// The root itself stays "/"; every other result has no trailing slash.
func cleanMountPath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean("/" + p)
}

// Write stores content at the path, routed to the owning mount. The
// result's Path is reported back in the virtual namespace, including any
// sanitized rename applied by a validating mount.
func (m *MountManager) Write(ctx context.Context, filePath string, content io.Reader, options ...Option) (*WriteResult, error) {
	fs, rel, mountPath, err := m.route(filePath)
	if err != nil {
		return nil, err
	}
	result, err := fs.Write(ctx, rel, content, options...)
	if err != nil {
		return nil, err
	}
	if result != nil {
		result.Path = path.Join(mountPath, result.Path)
	}
	return result, nil
}

// Read opens the file at the path, routed to the owning mount.
func (m *MountManager) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return nil, err
	}
	return fs.Read(ctx, rel)
}

// ReadAll reads the whole file at the path.
func (m *MountManager) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return nil, err
	}
	return fs.ReadAll(ctx, rel)
}

// Delete removes the file at the path.
func (m *MountManager) Delete(ctx context.Context, filePath string) error {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return err
	}
	return fs.Delete(ctx, rel)
}

// FileExists reports whether a file exists at the path.
func (m *MountManager) FileExists(ctx context.Context, filePath string) (bool, error) {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return false, err
	}
	return fs.FileExists(ctx, rel)
}

// DirExists reports whether a directory exists at the path.
func (m *MountManager) DirExists(ctx context.Context, dirPath string) (bool, error) {
	fs, rel, _, err := m.route(dirPath)
	if err != nil {
		return false, err
	}
	return fs.DirExists(ctx, rel)
}

// Stat describes the file at the path. The returned Path carries the
// mount prefix.
func (m *MountManager) Stat(ctx context.Context, filePath string) (*FileInfo, error) {
	fs, rel, mountPath, err := m.route(filePath)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}
	if info != nil {
		info.Path = path.Join(mountPath, info.Path)
	}
	return info, nil
}

// ListContents lists files under the prefix. Listing "/" yields a
// virtual directory per root-level mount; listing an unmounted ancestor
// of nested mounts yields their next components. Listed paths carry the
// mount prefix.
func (m *MountManager) ListContents(ctx context.Context, prefix string, recursive bool) ([]*FileInfo, error) {
	norm := cleanMountPath(prefix)
	if norm == "/" {
		return m.virtualDirs("/"), nil
	}

	fs, rel, mountPath, err := m.route(norm)
	if err != nil {
		// No mount owns the prefix; it may still sit above one.
		if dirs := m.virtualDirs(norm); len(dirs) > 0 {
			return dirs, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMountNotFound, norm)
	}

	files, err := fs.ListContents(ctx, rel, recursive)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		f.Path = path.Join(mountPath, f.Path)
	}
	return files, nil
}

// CreateDir creates a directory at the path.
func (m *MountManager) CreateDir(ctx context.Context, dirPath string) error {
	fs, rel, _, err := m.route(dirPath)
	if err != nil {
		return err
	}
	return fs.CreateDir(ctx, rel)
}

// DeleteDir removes the directory at the path.
func (m *MountManager) DeleteDir(ctx context.Context, dirPath string) error {
	fs, rel, _, err := m.route(dirPath)
	if err != nil {
		return err
	}
	return fs.DeleteDir(ctx, rel)
}

// virtualDirs lists the next path component of every mount below prefix
// as a synthetic directory entry, sorted by name.
func (m *MountManager) virtualDirs(prefix string) []*FileInfo {
	base := prefix
	if base == "/" {
		base = ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var dirs []*FileInfo
	for mountPath := range m.mounts {
		rest, ok := strings.CutPrefix(mountPath, base+"/")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		dirs = append(dirs, &FileInfo{
			Name:  name,
			Path:  base + "/" + name,
			IsDir: true,
		})
	}

	slices.SortFunc(dirs, func(a, b *FileInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return dirs
}

// Copy copies a file, natively when both paths share a mount that
// supports it, otherwise by streaming between the two backends.
func (m *MountManager) Copy(ctx context.Context, srcPath, dstPath string) error {
	srcFS, srcRel, _, err := m.route(srcPath)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dstFS, dstRel, _, err := m.route(dstPath)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	if srcFS == dstFS {
		if cp, ok := srcFS.(CanCopy); ok {
			return cp.Copy(ctx, srcRel, dstRel)
		}
	}
	return transfer(ctx, srcFS, srcRel, dstFS, dstRel)
}

// Move moves a file, natively when both paths share a mount that
// supports it, otherwise by streaming to the destination and deleting
// the source.
func (m *MountManager) Move(ctx context.Context, srcPath, dstPath string) error {
	srcFS, srcRel, _, err := m.route(srcPath)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dstFS, dstRel, _, err := m.route(dstPath)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	if srcFS == dstFS {
		if mv, ok := srcFS.(CanMove); ok {
			return mv.Move(ctx, srcRel, dstRel)
		}
	}
	if err := transfer(ctx, srcFS, srcRel, dstFS, dstRel); err != nil {
		return err
	}
	if err := srcFS.Delete(ctx, srcRel); err != nil {
		return fmt.Errorf("delete source after move: %w", err)
	}
	return nil
}

// transfer streams a file between backends, carrying the source's
// content type and metadata along. The destination is replaced, same as
// a native driver copy.
func transfer(ctx context.Context, src FileSystem, srcPath string, dst FileSystem, dstPath string) error {
	info, err := src.Stat(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	reader, err := src.Read(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	defer reader.Close()

	opts := []Option{WithOverwrite(true)}
	if info.ContentType != "" {
		opts = append(opts, WithContentType(info.ContentType))
	}
	if len(info.Metadata) > 0 {
		opts = append(opts, WithMetadata(info.Metadata))
	}

	if _, err := dst.Write(ctx, dstPath, reader, opts...); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	return nil
}

// Checksum delegates to the owning mount when it supports checksums.
func (m *MountManager) Checksum(ctx context.Context, filePath string, algorithm ChecksumAlgorithm) (string, error) {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return "", err
	}
	if cs, ok := fs.(CanChecksum); ok {
		return cs.Checksum(ctx, rel, algorithm)
	}
	return "", &PathError{Op: "checksum", Path: filePath, Err: ErrNotSupported}
}

// Checksums delegates to the owning mount when it supports checksums.
func (m *MountManager) Checksums(ctx context.Context, filePath string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	fs, rel, _, err := m.route(filePath)
	if err != nil {
		return nil, err
	}
	if cs, ok := fs.(CanChecksum); ok {
		return cs.Checksums(ctx, rel, algorithms)
	}
	return nil, &PathError{Op: "checksums", Path: filePath, Err: ErrNotSupported}
}

// Watch routes the filter to its mount when one owns it. A recursive
// glob that no mount owns fans out across every watchable mount, with a
// CompositeChangeToken combining the per-mount tokens.
func (m *MountManager) Watch(ctx context.Context, filter string) (ChangeToken, error) {
	norm := cleanMountPath(filter)

	fs, rel, _, err := m.route(norm)
	if err != nil {
		if strings.Contains(norm, "**") || norm == "" {
			return m.fanOutWatch(ctx, norm)
		}
		return nil, err
	}

	if w, ok := fs.(CanWatch); ok {
		return w.Watch(ctx, rel)
	}
	// An already-changed token signals that watching is unsupported.
	return CancelledChangeToken{}, nil
}

// fanOutWatch subscribes the filter on every mount that can watch. A
// mount that fails to watch does not block the rest.
func (m *MountManager) fanOutWatch(ctx context.Context, filter string) (ChangeToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []ChangeToken
	for _, fs := range m.mounts {
		w, ok := fs.(CanWatch)
		if !ok {
			continue
		}
		token, err := w.Watch(ctx, filter)
		if err != nil {
			continue
		}
		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		return CancelledChangeToken{}, nil
	}
	return NewCompositeChangeToken(tokens...), nil
}

var (
	_ FileSystem  = (*MountManager)(nil)
	_ CanCopy     = (*MountManager)(nil)
	_ CanMove     = (*MountManager)(nil)
	_ CanChecksum = (*MountManager)(nil)
	_ CanWatch    = (*MountManager)(nil)
)
