package dedup

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/fsutil"
	"IntelBrief/internal/ports"
)

// cacheFile is the on-disk layout of the fingerprint cache.
type cacheFile struct {
	LastUpdated  string   `json:"lastUpdated"`
	Fingerprints []string `json:"fingerprints"`
}

// Cache is a file-backed set of content fingerprints. It only grows; pruning
// is left to whoever owns the file.
type Cache struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu  sync.RWMutex
	set map[string]struct{}
}

var _ ports.FingerprintStore = (*Cache)(nil)

// NewCache returns an empty cache bound to path. Call Load to read it.
func NewCache(path string, logger *slog.Logger) *Cache {
	return &Cache{
		path:   path,
		logger: logger,
		now:    time.Now,
		set:    map[string]struct{}{},
	}
}

// Seen reports whether fp has been recorded.
func (c *Cache) Seen(fp string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.set[fp]
	return ok
}

// Record adds fp to the set. Recording a known fingerprint is a no-op.
func (c *Cache) Record(fp string) {
	if fp == "" {
		return
	}
	c.mu.Lock()
	c.set[fp] = struct{}{}
	c.mu.Unlock()
}

// Len returns the number of known fingerprints.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.set)
}

// Load merges the fingerprints stored on disk into memory. A missing file is
// an empty cache. Fingerprints already in memory are kept, so a run that
// could not persist does not forget what it saw.
func (c *Cache) Load() error {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		c.debug("no cache file, starting fresh", "path", c.path)
		return nil
	}
	if err != nil {
		return &domain.CacheIOFailure{Op: "load", Path: c.path, Err: err}
	}

	var stored cacheFile
	if err := json.Unmarshal(raw, &stored); err != nil {
		return &domain.CacheIOFailure{Op: "decode", Path: c.path, Err: err}
	}

	c.mu.Lock()
	for _, fp := range stored.Fingerprints {
		if fp != "" {
			c.set[fp] = struct{}{}
		}
	}
	total := len(c.set)
	c.mu.Unlock()

	c.debug("cache loaded", "path", c.path, "fingerprints", total)
	return nil
}

// Persist atomically rewrites the cache file with the full set. On failure the
// in-memory set is left untouched and the error is returned.
func (c *Cache) Persist() error {
	c.mu.RLock()
	fps := make([]string, 0, len(c.set))
	for fp := range c.set {
		fps = append(fps, fp)
	}
	c.mu.RUnlock()
	sort.Strings(fps)

	payload, err := json.MarshalIndent(cacheFile{
		LastUpdated:  c.now().UTC().Format(time.RFC3339),
		Fingerprints: fps,
	}, "", "  ")
	if err != nil {
		return &domain.CacheIOFailure{Op: "encode", Path: c.path, Err: err}
	}

	if err := fsutil.WriteFileAtomic(c.path, payload); err != nil {
		return &domain.CacheIOFailure{Op: "persist", Path: c.path, Err: err}
	}

	c.debug("cache persisted", "path", c.path, "fingerprints", len(fps))
	return nil
}

func (c *Cache) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
