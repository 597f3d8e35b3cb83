package uploadkit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is the backend contract for metadata caching. Implementations
// must be safe for concurrent use; Redis or Memcached backends can slot
// in behind the same four methods.
type Cache interface {
	// Get retrieves a value, reporting whether it was present.
	Get(key string) (any, bool)

	// Set stores a value. A zero TTL means the entry never expires.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value.
	Delete(key string)

	// Clear removes every value.
	Clear()
}

// CacheStats is optionally implemented by caches that track usage.
type CacheStats interface {
	Stats() CacheStatistics
}

// CacheStatistics reports cache performance counters.
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Size      int64
	Evictions int64
	HitRate   float64
}

type cacheEntry struct {
	value   any
	expires time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryCache is a process-local Cache with TTL expiration.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get retrieves a value, evicting it first if it has expired.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && e.expired(time.Now()) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry with a live one.
		if cur, still := c.entries[key]; still && cur.expired(time.Now()) {
			delete(c.entries, key)
			c.evicted.Add(1)
		}
		c.mu.Unlock()
		ok = false
	}

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores a value. A zero TTL keeps it until deleted.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes a value.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every value.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Stats reports usage counters.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	size := int64(len(c.entries))
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStatistics{
		Hits:      hits,
		Misses:    misses,
		Size:      size,
		Evictions: c.evicted.Load(),
		HitRate:   hitRate,
	}
}

// Cleanup evicts expired entries. Run it periodically on long-lived
// caches; expired entries are otherwise only evicted when read.
func (c *MemoryCache) Cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			c.evicted.Add(1)
		}
	}
}

var (
	_ Cache      = (*MemoryCache)(nil)
	_ CacheStats = (*MemoryCache)(nil)
)

// CachingFileSystem decorates a FileSystem with metadata caching:
// FileExists, DirExists, Stat, and optionally ListContents results are
// served from the cache within their TTL. File content is never cached.
// The main win is cutting round trips to remote backends, where every
// existence probe is a network call.
//
//	view := uploadkit.NewCachingFileSystem(archive, uploadkit.NewMemoryCache(),
//	    uploadkit.WithCacheTTL(5*time.Minute),
//	)
//
// Read and ReadAll are promoted untouched from the embedded backend;
// the metadata and write operations are shadowed.
type CachingFileSystem struct {
	FileSystem
	cache Cache
	opts  CacheOptions
}

// CacheOptions configures a CachingFileSystem.
type CacheOptions struct {
	// TTL bounds the life of every cache entry. Default 5 minutes.
	TTL time.Duration

	// CacheExists covers FileExists and DirExists. Default true.
	CacheExists bool

	// CacheFileInfo covers Stat. Default true.
	CacheFileInfo bool

	// CacheList covers ListContents. Default false: listings are large
	// and churn with every intake.
	CacheList bool

	// InvalidateOnWrite drops affected entries when the filesystem is
	// written through this wrapper. Default true.
	InvalidateOnWrite bool

	// PathFilter limits which paths are cached. Nil caches everything.
	PathFilter func(path string) bool

	// KeyPrefix namespaces cache keys when one Cache backs several
	// filesystems. Default "uploadkit:".
	KeyPrefix string

	// OnCacheHit and OnCacheMiss observe cache traffic, typically for
	// metrics counters.
	OnCacheHit  func(op, path string)
	OnCacheMiss func(op, path string)
}

// CacheOption configures a CachingFileSystem.
type CacheOption func(*CacheOptions)

// WithCacheTTL sets the entry TTL.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) { o.TTL = ttl }
}

// WithCacheExists toggles caching of existence checks.
func WithCacheExists(enabled bool) CacheOption {
	return func(o *CacheOptions) { o.CacheExists = enabled }
}

// WithCacheFileInfo toggles caching of Stat results.
func WithCacheFileInfo(enabled bool) CacheOption {
	return func(o *CacheOptions) { o.CacheFileInfo = enabled }
}

// WithCacheList toggles caching of directory listings.
func WithCacheList(enabled bool) CacheOption {
	return func(o *CacheOptions) { o.CacheList = enabled }
}

// WithInvalidateOnWrite toggles write-through invalidation.
func WithInvalidateOnWrite(enabled bool) CacheOption {
	return func(o *CacheOptions) { o.InvalidateOnWrite = enabled }
}

// WithCachePathFilter limits caching to paths the filter accepts.
func WithCachePathFilter(filter func(path string) bool) CacheOption {
	return func(o *CacheOptions) { o.PathFilter = filter }
}

// WithCacheKeyPrefix sets the cache key namespace.
func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(o *CacheOptions) { o.KeyPrefix = prefix }
}

// WithCacheHitCallback observes cache hits.
func WithCacheHitCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) { o.OnCacheHit = callback }
}

// WithCacheMissCallback observes cache misses.
func WithCacheMissCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) { o.OnCacheMiss = callback }
}

// NewCachingFileSystem wraps fs with metadata caching backed by cache.
func NewCachingFileSystem(fs FileSystem, cache Cache, opts ...CacheOption) *CachingFileSystem {
	options := CacheOptions{
		TTL:               5 * time.Minute,
		CacheExists:       true,
		CacheFileInfo:     true,
		InvalidateOnWrite: true,
		KeyPrefix:         "uploadkit:",
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &CachingFileSystem{FileSystem: fs, cache: cache, opts: options}
}

// Unwrap returns the decorated FileSystem.
func (c *CachingFileSystem) Unwrap() FileSystem { return c.FileSystem }

// Cache returns the backing Cache.
func (c *CachingFileSystem) Cache() Cache { return c.cache }

func (c *CachingFileSystem) key(op, path string) string {
	return c.opts.KeyPrefix + op + ":" + path
}

func (c *CachingFileSystem) cacheable(path string) bool {
	return c.opts.PathFilter == nil || c.opts.PathFilter(path)
}

func report(cb func(op, path string), op, path string) {
	if cb != nil {
		cb(op, path)
	}
}

// lookup serves op from the cache when enabled, falling back to fetch
// and storing its result. A stale or foreign-typed entry counts as a
// miss.
func lookup[T any](c *CachingFileSystem, op, path string, enabled bool, fetch func() (T, error)) (T, error) {
	if !enabled || !c.cacheable(path) {
		return fetch()
	}

	key := c.key(op, path)
	if hit, ok := c.cache.Get(key); ok {
		if v, ok := hit.(T); ok {
			report(c.opts.OnCacheHit, op, path)
			return v, nil
		}
	}
	report(c.opts.OnCacheMiss, op, path)

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	c.cache.Set(key, v, c.opts.TTL)
	return v, nil
}

// forget drops the metadata entries for one path.
func (c *CachingFileSystem) forget(path string) {
	if !c.opts.InvalidateOnWrite {
		return
	}
	c.cache.Delete(c.key("fileexists", path))
	c.cache.Delete(c.key("direxists", path))
	c.cache.Delete(c.key("stat", path))
	// Listing entries would need prefix matching to drop selectively;
	// they age out with the TTL instead.
}

func (c *CachingFileSystem) forgetAll() {
	if c.opts.InvalidateOnWrite {
		c.cache.Clear()
	}
}

// FileExists reports file existence, served from cache when possible.
func (c *CachingFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	return lookup(c, "fileexists", path, c.opts.CacheExists, func() (bool, error) {
		return c.FileSystem.FileExists(ctx, path)
	})
}

// DirExists reports directory existence, served from cache when possible.
func (c *CachingFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	return lookup(c, "direxists", path, c.opts.CacheExists, func() (bool, error) {
		return c.FileSystem.DirExists(ctx, path)
	})
}

// Stat describes a file, served from cache when possible. Callers get
// a copy so cached entries stay immutable.
func (c *CachingFileSystem) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := lookup(c, "stat", path, c.opts.CacheFileInfo, func() (*FileInfo, error) {
		return c.FileSystem.Stat(ctx, path)
	})
	if err != nil || info == nil {
		return nil, err
	}
	out := *info
	return &out, nil
}

// ListContents lists a directory, served from cache when enabled. The
// recursive flag keys separately from flat listings. Callers get
// copies so cached entries stay immutable.
func (c *CachingFileSystem) ListContents(ctx context.Context, path string, recursive bool) ([]*FileInfo, error) {
	op := "list"
	if recursive {
		op = "list-recursive"
	}
	files, err := lookup(c, op, path, c.opts.CacheList, func() ([]*FileInfo, error) {
		return c.FileSystem.ListContents(ctx, path, recursive)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*FileInfo, len(files))
	for i, f := range files {
		cp := *f
		out[i] = &cp
	}
	return out, nil
}

// Write passes through and drops the affected cache entries.
func (c *CachingFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) (*WriteResult, error) {
	result, err := c.FileSystem.Write(ctx, path, content, options...)
	if err == nil {
		c.forget(path)
		// A validating filesystem below may have stored under a
		// sanitized name, so drop the reported path too.
		if result != nil && result.Path != path {
			c.forget(result.Path)
		}
	}
	return result, err
}

// Delete passes through and drops the affected cache entries.
func (c *CachingFileSystem) Delete(ctx context.Context, path string) error {
	err := c.FileSystem.Delete(ctx, path)
	if err == nil {
		c.forget(path)
	}
	return err
}

// CreateDir passes through and drops the affected cache entries.
func (c *CachingFileSystem) CreateDir(ctx context.Context, path string) error {
	err := c.FileSystem.CreateDir(ctx, path)
	if err == nil {
		c.forget(path)
	}
	return err
}

// DeleteDir passes through. The whole cache is dropped: a subtree
// removal touches an unknown set of paths.
func (c *CachingFileSystem) DeleteDir(ctx context.Context, path string) error {
	err := c.FileSystem.DeleteDir(ctx, path)
	if err == nil {
		c.forgetAll()
	}
	return err
}

// Copy delegates when the backend supports it and drops the destination
// entries.
func (c *CachingFileSystem) Copy(ctx context.Context, src, dst string) error {
	cp, ok := c.FileSystem.(CanCopy)
	if !ok {
		return &PathError{Op: "copy", Path: src, Err: ErrNotSupported}
	}
	err := cp.Copy(ctx, src, dst)
	if err == nil {
		c.forget(dst)
	}
	return err
}

// Move delegates when the backend supports it and drops both entries.
func (c *CachingFileSystem) Move(ctx context.Context, src, dst string) error {
	mv, ok := c.FileSystem.(CanMove)
	if !ok {
		return &PathError{Op: "move", Path: src, Err: ErrNotSupported}
	}
	err := mv.Move(ctx, src, dst)
	if err == nil {
		c.forget(src)
		c.forget(dst)
	}
	return err
}

// Checksum delegates when the backend supports it.
func (c *CachingFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	if cs, ok := c.FileSystem.(CanChecksum); ok {
		return cs.Checksum(ctx, path, algorithm)
	}
	return "", &PathError{Op: "checksum", Path: path, Err: ErrNotSupported}
}

// Checksums delegates when the backend supports it.
func (c *CachingFileSystem) Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if cs, ok := c.FileSystem.(CanChecksum); ok {
		return cs.Checksums(ctx, path, algorithms)
	}
	return nil, &PathError{Op: "checksums", Path: path, Err: ErrNotSupported}
}

// SignedURL delegates when the backend supports it.
func (c *CachingFileSystem) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if s, ok := c.FileSystem.(CanSignURL); ok {
		return s.SignedURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-url", Path: path, Err: ErrNotSupported}
}

// SignedUploadURL delegates when the backend supports it.
func (c *CachingFileSystem) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if s, ok := c.FileSystem.(CanSignURL); ok {
		return s.SignedUploadURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-upload-url", Path: path, Err: ErrNotSupported}
}

// Watch delegates when the backend supports it and wraps the token so a
// detected change flushes the cache before callbacks run.
func (c *CachingFileSystem) Watch(ctx context.Context, filter string) (ChangeToken, error) {
	w, ok := c.FileSystem.(CanWatch)
	if !ok {
		return CancelledChangeToken{}, nil
	}
	token, err := w.Watch(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &flushingToken{token: token, view: c}, nil
}

// flushingToken invalidates the cache when its change fires.
type flushingToken struct {
	token ChangeToken
	view  *CachingFileSystem
}

func (t *flushingToken) HasChanged() bool { return t.token.HasChanged() }

func (t *flushingToken) ActiveChangeCallbacks() bool { return t.token.ActiveChangeCallbacks() }

func (t *flushingToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return t.token.RegisterChangeCallback(func() {
		t.view.forgetAll()
		callback()
	})
}

var (
	_ FileSystem  = (*CachingFileSystem)(nil)
	_ FileReader  = (*CachingFileSystem)(nil)
	_ FileWriter  = (*CachingFileSystem)(nil)
	_ CanCopy     = (*CachingFileSystem)(nil)
	_ CanMove     = (*CachingFileSystem)(nil)
	_ CanChecksum = (*CachingFileSystem)(nil)
	_ CanSignURL  = (*CachingFileSystem)(nil)
	_ CanWatch    = (*CachingFileSystem)(nil)
)

// WarmCache walks the tree under prefix and seeds existence and stat
// entries, so a traffic spike starts against a hot cache.
func WarmCache(ctx context.Context, fs *CachingFileSystem, prefix string) error {
	entries, err := fs.FileSystem.ListContents(ctx, prefix, false)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		existsOp := "fileexists"
		if entry.IsDir {
			existsOp = "direxists"
		}
		fs.cache.Set(fs.key(existsOp, entry.Path), true, fs.opts.TTL)
		fs.cache.Set(fs.key("stat", entry.Path), entry, fs.opts.TTL)

		if entry.IsDir {
			if err := WarmCache(ctx, fs, entry.Path); err != nil {
				return err
			}
		}
	}
	return nil
}
