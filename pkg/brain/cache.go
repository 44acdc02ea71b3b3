// Package brain manages the in-memory cache of loaded brains. A brain is the
// pairing of a vector index and its file range ledger; loading one means
// downloading the saved index from blob storage and opening it locally.
//
// Concurrency model: one lock per brain serializes every operation that
// touches that brain, including generation, so at most one load of a given
// brain can ever be in flight. The cache map itself is guarded by a separate
// mutex, and clear-all takes each brain's lock in turn so it cannot race a
// handler that is mid-request on that brain.
package brain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/blob"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/vector"
)

// Entry is one loaded brain. Valid only inside the WithEntry callback that
// produced it.
type Entry struct {
	// Index is the brain's open vector index.
	Index vector.Index

	// Ledger maps chunk id ranges back to filenames.
	Ledger *ledger.Ledger

	// Dir is the local directory the index was restored into. It stays on
	// disk for as long as the entry is cached; embedded indexes read from
	// it lazily.
	Dir string
}

// Config wires a Cache.
type Config struct {
	// Store is durable blob storage holding saved indexes.
	Store blob.Store

	// Factory opens restored indexes.
	Factory vector.Factory

	// Ledgers is the local ledger store, the source of truth for file
	// ranges.
	Ledgers *ledger.Store

	// CacheDir is the root for per-brain restore directories.
	CacheDir string

	// IndexPrefix is the blob key prefix saved indexes live under.
	IndexPrefix string
}

// Cache holds loaded brains keyed by name. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	locks   map[string]*sync.Mutex

	store       blob.Store
	factory     vector.Factory
	ledgers     *ledger.Store
	cacheDir    string
	indexPrefix string
	logger      *zap.Logger
}

// NewCache creates an empty cache.
func NewCache(cfg Config, logger *zap.Logger) (*Cache, error) {
	if cfg.Store == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.Factory == nil {
		return nil, errors.New("vector factory is required")
	}
	if cfg.Ledgers == nil {
		return nil, errors.New("ledger store is required")
	}
	if cfg.CacheDir == "" {
		return nil, errors.New("cache dir is required")
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	return &Cache{
		entries:     make(map[string]*Entry),
		locks:       make(map[string]*sync.Mutex),
		store:       cfg.Store,
		factory:     cfg.Factory,
		ledgers:     cfg.Ledgers,
		cacheDir:    cfg.CacheDir,
		indexPrefix: cfg.IndexPrefix,
		logger:      logger,
	}, nil
}

// IndexPrefixFor returns the blob prefix the named brain's index lives under.
func (c *Cache) IndexPrefixFor(name string) string {
	return path.Join(c.indexPrefix, name)
}

// lockFor returns the named brain's lock, creating it on first use. Locks
// are never removed; a stale lock for a deleted brain is only a few bytes.
func (c *Cache) lockFor(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

// WithEntry runs fn while holding the named brain's lock, loading the brain
// into the cache first if needed. The lock is held across the whole of fn,
// so search and generation on a brain are serialized with its mutations.
func (c *Cache) WithEntry(ctx context.Context, name string, fn func(*Entry) error) error {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	entry, err := c.ensureLoaded(ctx, name)
	if err != nil {
		return err
	}

	return fn(entry)
}

// ensureLoaded returns the cached entry for name, populating it from durable
// storage on a miss. Caller must hold the brain's lock.
func (c *Cache) ensureLoaded(ctx context.Context, name string) (*Entry, error) {
	c.mu.Lock()
	entry, ok := c.entries[name]
	c.mu.Unlock()
	if ok {
		return entry, nil
	}

	led, err := c.ledgers.Load(name)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBrainNotFound, name)
		}
		return nil, fmt.Errorf("%w: reading ledger for %s: %v", ErrBrainLoad, name, err)
	}

	dir := filepath.Join(c.cacheDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: allocating restore dir for %s: %v", ErrBrainLoad, name, err)
	}

	if err := c.store.DownloadPrefix(ctx, c.IndexPrefixFor(name), dir); err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s has no saved index", ErrBrainNotFound, name)
		}
		return nil, fmt.Errorf("%w: downloading index for %s: %v", ErrBrainLoad, name, err)
	}

	idx, err := c.factory.Open(ctx, dir)
	if err != nil {
		if errors.Is(err, vector.ErrIndexLoad) {
			return nil, fmt.Errorf("%w: %s", ErrBrainNotFound, name)
		}
		return nil, fmt.Errorf("%w: opening index for %s: %v", ErrBrainLoad, name, err)
	}

	entry = &Entry{Index: idx, Ledger: led, Dir: dir}

	c.mu.Lock()
	c.entries[name] = entry
	c.mu.Unlock()

	c.logger.Info("brain loaded",
		zap.String("brain", name),
		zap.Int("files", led.Len()),
	)
	return entry, nil
}

// Evict drops the named brain from the cache and reports whether it was
// loaded. Evicting an absent brain is a harmless no-op. The next WithEntry
// reloads from durable storage.
func (c *Cache) Evict(name string) bool {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	return c.evictLocked(name)
}

// evictLocked removes and tears down one entry. Caller must hold the brain's
// lock.
func (c *Cache) evictLocked(name string) bool {
	c.mu.Lock()
	entry, ok := c.entries[name]
	delete(c.entries, name)
	c.mu.Unlock()

	if !ok {
		return false
	}

	if err := entry.Index.Close(); err != nil {
		c.logger.Warn("failed to close index on evict",
			zap.String("brain", name),
			zap.Error(err),
		)
	}
	if err := os.RemoveAll(entry.Dir); err != nil {
		c.logger.Warn("failed to remove restore dir on evict",
			zap.String("brain", name),
			zap.Error(err),
		)
	}

	c.logger.Info("brain evicted", zap.String("brain", name))
	return true
}

// EvictAll drops every loaded brain. Each brain's lock is taken in turn, so
// a request mid-flight on some brain finishes before that brain is torn
// down.
func (c *Cache) EvictAll() {
	c.mu.Lock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		c.Evict(name)
	}
}

// BrainStatus describes one loaded brain for cache inspection.
type BrainStatus struct {
	Name            string   `json:"name"`
	PersonalityName string   `json:"personality_name"`
	Files           []string `json:"files"`
}

// Snapshot reports the currently loaded brains. Each brain's lock is held
// while its ledger is read, so a snapshot never observes a mutation midway.
func (c *Cache) Snapshot() []BrainStatus {
	c.mu.Lock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.Unlock()

	statuses := make([]BrainStatus, 0, len(names))
	for _, name := range names {
		l := c.lockFor(name)
		l.Lock()

		c.mu.Lock()
		entry, ok := c.entries[name]
		c.mu.Unlock()

		if ok {
			statuses = append(statuses, BrainStatus{
				Name:            name,
				PersonalityName: entry.Ledger.PersonalityName,
				Files:           entry.Ledger.Files(),
			})
		}
		l.Unlock()
	}
	return statuses
}

// Close evicts everything.
func (c *Cache) Close() error {
	c.EvictAll()
	return nil
}
