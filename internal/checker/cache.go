package checker

import (
	"context"
	"crypto/md5"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

const cacheFileName = "checker_cache.gob"

type CacheEntry struct {
	Report       Report
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache stores checker reports keyed by the hash of the checked program
// text and the checker identity.
type Cache struct {
	CacheDir string
	entries  map[string]CacheEntry
	mutex    sync.RWMutex
	maxAge   time.Duration
}

func NewCache(cacheDir string, maxAge time.Duration) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]CacheEntry),
		maxAge:   maxAge,
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.CacheDir, cacheFileName))
	if os.IsNotExist(err) {
		return nil // first run
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(filepath.Join(c.CacheDir, cacheFileName))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

func (c *Cache) Set(key string, report *Report) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[key] = CacheEntry{
		Report:       *report,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

func (c *Cache) Get(key string) (*Report, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry

	report := entry.Report
	return &report, true
}

func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	_ = c.save() // manual operation, nothing to report to
}

// Len returns the number of cached reports.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// CacheKey hashes the program text together with the checker identity.
func CacheKey(identity string, prog *bpl.Program) string {
	hash := md5.New()
	fmt.Fprintln(hash, identity)
	_ = bpl.Fprint(hash, prog)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// Cached wraps a checker with a report cache.
type Cached struct {
	inner    Checker
	identity string
	cache    *Cache
	logger   *zap.Logger
}

func NewCached(logger *zap.Logger, inner Checker, identity string, cache *Cache) *Cached {
	return &Cached{inner: inner, identity: identity, cache: cache, logger: logger}
}

func (c *Cached) Check(ctx context.Context, path string, prog *bpl.Program) (*Report, error) {
	key := CacheKey(c.identity, prog)
	if report, ok := c.cache.Get(key); ok {
		c.logger.Debug("checker cache hit", zap.String("key", key))
		return report, nil
	}

	report, err := c.inner.Check(ctx, path, prog)
	if err != nil {
		return nil, err
	}
	// an incomplete run may succeed next time
	if !report.Incomplete {
		if err := c.cache.Set(key, report); err != nil {
			c.logger.Warn("failed to store checker report", zap.Error(err))
		}
	}
	return report, nil
}
