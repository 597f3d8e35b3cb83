package uploadkit

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// countingFS is an in-memory backend that counts calls, so tests can
// tell which operations were served from cache.
type countingFS struct {
	mu    sync.Mutex
	files map[string][]byte
	calls map[string]int
	token *CallbackChangeToken
}

func newCountingFS() *countingFS {
	return &countingFS{
		files: make(map[string][]byte),
		calls: make(map[string]int),
	}
}

func (f *countingFS) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *countingFS) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *countingFS) Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error) {
	f.count("write")
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.files[path] = data
	f.mu.Unlock()
	return &WriteResult{Path: path, Size: int64(len(data))}, nil
}

func (f *countingFS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	f.count("read")
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return nil, &PathError{Op: "read", Path: path, Err: ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *countingFS) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := f.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *countingFS) Delete(ctx context.Context, path string) error {
	f.count("delete")
	f.mu.Lock()
	delete(f.files, path)
	f.mu.Unlock()
	return nil
}

func (f *countingFS) FileExists(ctx context.Context, path string) (bool, error) {
	f.count("fileexists")
	f.mu.Lock()
	_, ok := f.files[path]
	f.mu.Unlock()
	return ok, nil
}

func (f *countingFS) DirExists(ctx context.Context, path string) (bool, error) {
	f.count("direxists")
	return false, nil
}

func (f *countingFS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	f.count("stat")
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return nil, &PathError{Op: "stat", Path: path, Err: ErrNotExist}
	}
	return &FileInfo{Name: path, Path: path, Size: int64(len(data))}, nil
}

func (f *countingFS) ListContents(ctx context.Context, path string, recursive bool) ([]*FileInfo, error) {
	f.count("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FileInfo
	for p, data := range f.files {
		out = append(out, &FileInfo{Name: p, Path: p, Size: int64(len(data))})
	}
	return out, nil
}

func (f *countingFS) CreateDir(ctx context.Context, path string) error {
	f.count("createdir")
	return nil
}

func (f *countingFS) DeleteDir(ctx context.Context, path string) error {
	f.count("deletedir")
	return nil
}

func (f *countingFS) Move(ctx context.Context, src, dst string) error {
	f.count("move")
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[src]
	if !ok {
		return &PathError{Op: "move", Path: src, Err: ErrNotExist}
	}
	f.files[dst] = data
	delete(f.files, src)
	return nil
}

func (f *countingFS) Watch(ctx context.Context, filter string) (ChangeToken, error) {
	f.count("watch")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = NewCallbackChangeToken()
	return f.token, nil
}

func TestMemoryCache(t *testing.T) {
	t.Run("stores and retrieves", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("k", "v", 0)
		got, ok := c.Get("k")
		if !ok || got != "v" {
			t.Errorf("expected (v, true), got (%v, %v)", got, ok)
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("k", 42, 0)
		time.Sleep(20 * time.Millisecond)
		if _, ok := c.Get("k"); !ok {
			t.Error("expected entry without TTL to persist")
		}
	})

	t.Run("expired entries are evicted on read", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("k", "v", 10*time.Millisecond)
		time.Sleep(30 * time.Millisecond)

		if _, ok := c.Get("k"); ok {
			t.Error("expected expired entry to be gone")
		}
		stats := c.Stats()
		if stats.Evictions != 1 {
			t.Errorf("expected 1 eviction, got %d", stats.Evictions)
		}
		if stats.Size != 0 {
			t.Errorf("expected size=0, got %d", stats.Size)
		}
	})

	t.Run("delete and clear", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("a", 1, 0)
		c.Set("b", 2, 0)

		c.Delete("a")
		if _, ok := c.Get("a"); ok {
			t.Error("expected deleted key to be gone")
		}

		c.Clear()
		if _, ok := c.Get("b"); ok {
			t.Error("expected cleared cache to be empty")
		}
	})

	t.Run("cleanup sweeps expired entries", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("stale1", 1, 10*time.Millisecond)
		c.Set("stale2", 2, 10*time.Millisecond)
		c.Set("fresh", 3, 0)
		time.Sleep(30 * time.Millisecond)

		c.Cleanup()

		stats := c.Stats()
		if stats.Size != 1 {
			t.Errorf("expected 1 surviving entry, got %d", stats.Size)
		}
		if stats.Evictions != 2 {
			t.Errorf("expected 2 evictions, got %d", stats.Evictions)
		}
	})

	t.Run("hit rate", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set("k", "v", 0)
		c.Get("k")
		c.Get("missing")

		stats := c.Stats()
		if stats.Hits != 1 || stats.Misses != 1 {
			t.Errorf("expected 1 hit and 1 miss, got %d/%d", stats.Hits, stats.Misses)
		}
		if stats.HitRate != 0.5 {
			t.Errorf("expected hit rate 0.5, got %f", stats.HitRate)
		}
	})
}

func TestCachingStat(t *testing.T) {
	ctx := context.Background()

	t.Run("second stat is served from cache", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["doc.pdf"] = []byte("%PDF-1.4")
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		for i := 0; i < 3; i++ {
			info, err := cached.Stat(ctx, "doc.pdf")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.Size != 8 {
				t.Errorf("expected size=8, got %d", info.Size)
			}
		}
		if calls := backend.callCount("stat"); calls != 1 {
			t.Errorf("expected 1 backend stat, got %d", calls)
		}
	})

	t.Run("callers cannot mutate the cached entry", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["doc.pdf"] = []byte("%PDF-1.4")
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		first, _ := cached.Stat(ctx, "doc.pdf")
		first.Name = "mutated"

		second, _ := cached.Stat(ctx, "doc.pdf")
		if second.Name != "doc.pdf" {
			t.Errorf("expected cached name 'doc.pdf', got %q", second.Name)
		}
	})

	t.Run("entries expire with the ttl", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["doc.pdf"] = []byte("%PDF-1.4")
		cached := NewCachingFileSystem(backend, NewMemoryCache(), WithCacheTTL(10*time.Millisecond))

		cached.Stat(ctx, "doc.pdf")
		time.Sleep(30 * time.Millisecond)
		cached.Stat(ctx, "doc.pdf")

		if calls := backend.callCount("stat"); calls != 2 {
			t.Errorf("expected 2 backend stats after expiry, got %d", calls)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		backend := newCountingFS()
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		for i := 0; i < 2; i++ {
			if _, err := cached.Stat(ctx, "missing.pdf"); !IsNotExist(err) {
				t.Fatalf("expected not exist error, got: %v", err)
			}
		}
		if calls := backend.callCount("stat"); calls != 2 {
			t.Errorf("expected every failing stat to reach the backend, got %d calls", calls)
		}
	})
}

func TestCachingExists(t *testing.T) {
	ctx := context.Background()

	t.Run("existence probes are cached", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["doc.pdf"] = []byte("x")
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		for i := 0; i < 3; i++ {
			exists, err := cached.FileExists(ctx, "doc.pdf")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !exists {
				t.Error("expected file to exist")
			}
		}
		if calls := backend.callCount("fileexists"); calls != 1 {
			t.Errorf("expected 1 backend probe, got %d", calls)
		}
	})

	t.Run("write through the wrapper invalidates", func(t *testing.T) {
		backend := newCountingFS()
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		exists, _ := cached.FileExists(ctx, "new.pdf")
		if exists {
			t.Fatal("expected file to be absent")
		}

		if _, err := cached.Write(ctx, "new.pdf", bytes.NewReader([]byte("%PDF-1.4"))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		exists, _ = cached.FileExists(ctx, "new.pdf")
		if !exists {
			t.Error("expected fresh probe to see the new file")
		}
	})

	t.Run("move invalidates both ends", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["inbox/doc.pdf"] = []byte("x")
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		cached.FileExists(ctx, "inbox/doc.pdf")
		cached.FileExists(ctx, "archive/doc.pdf")

		if err := cached.Move(ctx, "inbox/doc.pdf", "archive/doc.pdf"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		gone, _ := cached.FileExists(ctx, "inbox/doc.pdf")
		if gone {
			t.Error("expected source probe to be fresh after move")
		}
		arrived, _ := cached.FileExists(ctx, "archive/doc.pdf")
		if !arrived {
			t.Error("expected destination probe to be fresh after move")
		}
	})
}

func TestCachingList(t *testing.T) {
	ctx := context.Background()

	t.Run("listings pass through by default", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["a.pdf"] = []byte("x")
		cached := NewCachingFileSystem(backend, NewMemoryCache())

		cached.ListContents(ctx, "", false)
		cached.ListContents(ctx, "", false)

		if calls := backend.callCount("list"); calls != 2 {
			t.Errorf("expected 2 backend listings, got %d", calls)
		}
	})

	t.Run("opt-in listing cache", func(t *testing.T) {
		backend := newCountingFS()
		backend.files["a.pdf"] = []byte("x")
		cached := NewCachingFileSystem(backend, NewMemoryCache(), WithCacheList(true))

		first, err := cached.ListContents(ctx, "", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := cached.ListContents(ctx, "", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(first) != 1 || len(second) != 1 {
			t.Errorf("expected 1 entry per listing, got %d and %d", len(first), len(second))
		}
		if calls := backend.callCount("list"); calls != 1 {
			t.Errorf("expected 1 backend listing, got %d", calls)
		}
	})
}

func TestCachingCallbacks(t *testing.T) {
	ctx := context.Background()
	backend := newCountingFS()
	backend.files["doc.pdf"] = []byte("x")

	var hits, misses int
	cached := NewCachingFileSystem(backend, NewMemoryCache(),
		WithCacheHitCallback(func(op, path string) { hits++ }),
		WithCacheMissCallback(func(op, path string) { misses++ }),
	)

	cached.Stat(ctx, "doc.pdf")
	cached.Stat(ctx, "doc.pdf")

	if misses != 1 {
		t.Errorf("expected 1 miss, got %d", misses)
	}
	if hits != 1 {
		t.Errorf("expected 1 hit, got %d", hits)
	}
}

func TestCachingPathFilter(t *testing.T) {
	ctx := context.Background()
	backend := newCountingFS()
	backend.files["tmp/scratch.pdf"] = []byte("x")
	backend.files["archive/doc.pdf"] = []byte("x")

	cached := NewCachingFileSystem(backend, NewMemoryCache(),
		WithCachePathFilter(func(path string) bool {
			return path != "tmp/scratch.pdf"
		}),
	)

	cached.Stat(ctx, "tmp/scratch.pdf")
	cached.Stat(ctx, "tmp/scratch.pdf")
	if calls := backend.callCount("stat"); calls != 2 {
		t.Errorf("expected filtered path to bypass the cache, got %d calls", calls)
	}

	cached.Stat(ctx, "archive/doc.pdf")
	cached.Stat(ctx, "archive/doc.pdf")
	if calls := backend.callCount("stat"); calls != 3 {
		t.Errorf("expected unfiltered path to be cached, got %d calls", calls)
	}
}

func TestWarmCache(t *testing.T) {
	ctx := context.Background()
	backend := newCountingFS()
	backend.files["a.pdf"] = []byte("1")
	backend.files["b.pdf"] = []byte("22")

	cached := NewCachingFileSystem(backend, NewMemoryCache())
	if err := WarmCache(ctx, cached, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, path := range []string{"a.pdf", "b.pdf"} {
		if _, err := cached.Stat(ctx, path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		exists, err := cached.FileExists(ctx, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Errorf("expected %s to exist", path)
		}
	}

	if calls := backend.callCount("stat"); calls != 0 {
		t.Errorf("expected warmed stats to skip the backend, got %d calls", calls)
	}
	if calls := backend.callCount("fileexists"); calls != 0 {
		t.Errorf("expected warmed probes to skip the backend, got %d calls", calls)
	}
}

func TestCachingWatchFlushes(t *testing.T) {
	ctx := context.Background()
	backend := newCountingFS()
	backend.files["inbox/doc.pdf"] = []byte("x")
	cached := NewCachingFileSystem(backend, NewMemoryCache())

	token, err := cached.Watch(ctx, "inbox/*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fired := make(chan struct{})
	token.RegisterChangeCallback(func() { close(fired) })

	// Prime the cache, then signal a change behind the wrapper's back.
	cached.Stat(ctx, "inbox/doc.pdf")
	backend.token.SignalChange()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}

	cached.Stat(ctx, "inbox/doc.pdf")
	if calls := backend.callCount("stat"); calls != 2 {
		t.Errorf("expected the change to flush the cache, got %d backend stats", calls)
	}
}
