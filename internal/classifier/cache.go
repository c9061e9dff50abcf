package classifier

import (
	"os"
	"path/filepath"
	"sync"
)

// Loaded bundles a profile's vectorizer and model as loaded from disk.
type Loaded struct {
	Vectorizer *Vectorizer
	Model      *Model
}

// Cache serves the most recent Loaded artifacts for each profile
// directory, reloading only when model.bin's mtime advances. Unlike
// keywordfilter.Cache this has no bound: the key space is one entry
// per configured profile, not per arbitrary file path.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mtime  int64
	loaded *Loaded
}

// NewCache builds an empty artifact Cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]*cacheEntry{}}
}

// Get returns the current artifacts for dir, reloading from disk if the
// model file's mtime has changed since the last load, or if nothing has
// been loaded yet. Returns ok=false if no artifacts are persisted.
func (c *Cache) Get(dir string) (*Loaded, bool) {
	info, err := os.Stat(filepath.Join(dir, "model.bin"))
	if err != nil {
		return nil, false
	}
	mtime := info.ModTime().UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[dir]; ok && e.mtime == mtime {
		return e.loaded, true
	}

	v, m, err := LoadArtifacts(dir)
	if err != nil {
		return nil, false
	}
	loaded := &Loaded{Vectorizer: v, Model: m}
	c.entries[dir] = &cacheEntry{mtime: mtime, loaded: loaded}
	return loaded, true
}

// Predict returns P(label=1 | text) under l's vectorizer/model,
// tokenized the same way training tokenized its documents.
func (l *Loaded) Predict(text string, opts TokenizeOptions) float64 {
	x := l.Vectorizer.Transform([]string{Tokenize(text, opts)})[0]
	return l.Model.PredictProba(x)
}

// Invalidate drops any cached entry for dir, forcing the next Get to
// reload from disk regardless of mtime. Used right after a training run
// completes in the same process that will next serve predictions.
func (c *Cache) Invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dir)
}

// ApproxSize estimates the cache's footprint as the total vocabulary and
// weight vector lengths across every loaded profile, satisfying
// memguard.Tracked. Vectorizer artifacts (vocabulary strings plus IDF
// floats) dominate a trained profile's footprint.
func (c *Cache) ApproxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, e := range c.entries {
		if e.loaded == nil {
			continue
		}
		for token := range e.loaded.Vectorizer.Vocabulary {
			total += int64(len(token)) + 8 // token bytes + its IDF float64
		}
		total += int64(len(e.loaded.Model.Weights)) * 8
	}
	return total
}

// Clear evicts every loaded profile's artifacts, satisfying
// memguard.Tracked.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*cacheEntry{}
}
