package uploadkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// The root package cannot import the driver packages (they import this
// package), so the factory tests run against these in-package stand-ins.
// They mirror the real drivers' contract: writes honor the overwrite
// options and report a WriteResult.
func init() {
	RegisterDriver("local", newLocalDriver)
	RegisterDriver("s3", newS3Driver)
}

func newLocalDriver(cfg *Config) (FileSystem, error) {
	if cfg.LocalBasePath == "" {
		return nil, fmt.Errorf("local base path is required")
	}
	return &diskStubFS{base: cfg.LocalBasePath}, nil
}

func newS3Driver(cfg *Config) (FileSystem, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	return &bucketStubFS{objects: make(map[string][]byte)}, nil
}

// diskStubFS keeps files under a base directory like the real local driver,
// minus its watcher and checksum extras.
type diskStubFS struct {
	base string
}

func (d *diskStubFS) abs(path string) string {
	return filepath.Join(d.base, path)
}

func (d *diskStubFS) Write(ctx context.Context, path string, reader io.Reader, options ...Option) (*WriteResult, error) {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	full := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}

	// O_EXCL makes the existence check atomic instead of stat-then-write.
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite && !opts.SkipExistingCheck {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, &PathError{Op: "write", Path: path, Err: ErrExist}
	}
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	return &WriteResult{
		Path:        path,
		Size:        n,
		ContentType: opts.ContentType,
	}, nil
}

func (d *diskStubFS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(d.abs(path))
}

func (d *diskStubFS) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(d.abs(path))
}

func (d *diskStubFS) FileExists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(d.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (d *diskStubFS) DirExists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(d.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (d *diskStubFS) Delete(ctx context.Context, path string) error {
	return os.Remove(d.abs(path))
}

func (d *diskStubFS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := os.Stat(d.abs(path))
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

func (d *diskStubFS) ListContents(ctx context.Context, path string, recursive bool) ([]*FileInfo, error) {
	if recursive {
		var files []*FileInfo
		err := filepath.WalkDir(d.abs(path), func(p string, entry fs.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return err
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(d.base, p)
			if err != nil {
				return err
			}
			files = append(files, &FileInfo{
				Name:    entry.Name(),
				Path:    rel,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			return nil
		})
		return files, err
	}

	entries, err := os.ReadDir(d.abs(path))
	if err != nil {
		return nil, err
	}
	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, &FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(path, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   entry.IsDir(),
		})
	}
	return files, nil
}

func (d *diskStubFS) CreateDir(ctx context.Context, path string) error {
	return os.MkdirAll(d.abs(path), 0o755)
}

func (d *diskStubFS) DeleteDir(ctx context.Context, path string) error {
	return os.RemoveAll(d.abs(path))
}

// bucketStubFS is a keyed object map standing in for the S3 driver.
// Directories never really exist; prefixes only live through the keys.
type bucketStubFS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *bucketStubFS) get(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	return data, ok
}

func (b *bucketStubFS) Write(ctx context.Context, path string, reader io.Reader, options ...Option) (*WriteResult, error) {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; ok && !opts.Overwrite && !opts.SkipExistingCheck {
		return nil, &PathError{Op: "write", Path: path, Err: ErrExist}
	}
	b.objects[path] = data

	return &WriteResult{
		Path:        path,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
	}, nil
}

func (b *bucketStubFS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := b.get(path)
	if !ok {
		return nil, &PathError{Op: "read", Path: path, Err: ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *bucketStubFS) ReadAll(ctx context.Context, path string) ([]byte, error) {
	data, ok := b.get(path)
	if !ok {
		return nil, &PathError{Op: "read", Path: path, Err: ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (b *bucketStubFS) FileExists(ctx context.Context, path string) (bool, error) {
	_, ok := b.get(path)
	return ok, nil
}

func (b *bucketStubFS) DirExists(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (b *bucketStubFS) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	return nil
}

func (b *bucketStubFS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	data, ok := b.get(path)
	if !ok {
		return nil, &PathError{Op: "stat", Path: path, Err: ErrNotExist}
	}
	return &FileInfo{
		Name: filepath.Base(path),
		Path: path,
		Size: int64(len(data)),
	}, nil
}

func (b *bucketStubFS) ListContents(ctx context.Context, path string, recursive bool) ([]*FileInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var files []*FileInfo
	for key, data := range b.objects {
		if strings.HasPrefix(key, path) {
			files = append(files, &FileInfo{
				Name: filepath.Base(key),
				Path: key,
				Size: int64(len(data)),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (b *bucketStubFS) CreateDir(ctx context.Context, path string) error {
	return nil
}

func (b *bucketStubFS) DeleteDir(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.objects {
		if strings.HasPrefix(key, path+"/") {
			delete(b.objects, key)
		}
	}
	return nil
}
