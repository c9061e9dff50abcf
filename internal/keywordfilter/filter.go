// Package keywordfilter implements C2: per-file literal-match patterns
// with mtime-driven reload and a bounded FIFO cache of filter instances.
package keywordfilter

import (
	"bufio"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Filter is a compiled set of case-insensitive literal patterns loaded
// from one keywords file, reloaded whenever the file's mtime changes.
type Filter struct {
	path string

	mu       sync.Mutex
	mtime    int64
	patterns []string
}

func newFilter(path string) *Filter {
	f := &Filter{path: path}
	f.reloadIfNeeded()
	return f
}

func (f *Filter) reloadIfNeeded() {
	info, err := os.Stat(f.path)
	if err != nil {
		f.mu.Lock()
		f.patterns = nil
		f.mu.Unlock()
		return
	}

	mtime := info.ModTime().UnixNano()

	f.mu.Lock()
	defer f.mu.Unlock()
	if mtime == f.mtime {
		return
	}
	f.mtime = mtime
	f.patterns = loadPatterns(f.path)
}

func loadPatterns(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		kw := strings.TrimSpace(scanner.Text())
		if kw == "" || strings.HasPrefix(kw, "#") {
			continue
		}
		patterns = append(patterns, kw)
	}
	return patterns
}

// Match returns the first pattern found in text (case-insensitive
// literal search), or "" if none match.
func (f *Filter) Match(text string) string {
	f.reloadIfNeeded()

	f.mu.Lock()
	patterns := f.patterns
	f.mu.Unlock()

	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

// Cache is the process-wide FIFO-evicted registry of Filters, keyed by
// keywords file path, cap 100 per §4.4.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Filter]
}

const maxFilters = 100

// NewCache builds an empty Cache.
func NewCache() *Cache {
	c, _ := lru.New[string, *Filter](maxFilters)
	return &Cache{cache: c}
}

// Get returns the Filter for path, creating and caching it if absent.
// Lookups use Peek rather than Get so a hit never bumps recency —
// combined with only ever Add-ing a key once, RemoveOldest's eviction
// order degrades to pure FIFO by insertion.
func (c *Cache) Get(path string) *Filter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.cache.Peek(path); ok {
		return f
	}

	f := newFilter(path)
	c.cache.Add(path, f)
	return f
}

// ApproxSize estimates the cache's footprint as the total byte length of
// every cached pattern string, satisfying memguard.Tracked.
func (c *Cache) ApproxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, key := range c.cache.Keys() {
		f, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		f.mu.Lock()
		for _, p := range f.patterns {
			total += int64(len(p))
		}
		f.mu.Unlock()
	}
	return total
}

// Clear evicts every cached Filter, satisfying memguard.Tracked.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
