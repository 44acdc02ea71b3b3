// Package keypool rotates a fixed set of upstream API keys under a per-key
// token budget. Every key accrues usage inside a sliding window; once a key
// reaches the ceiling it is skipped until its window expires. Callers ask for
// the next usable key, report usage after each request, and force-saturate a
// key when the upstream signals a rate limit.
package keypool

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCeiling is the per-key token budget inside one window.
	DefaultCeiling = 30000

	// DefaultWindow is the usage window length.
	DefaultWindow = 60 * time.Second
)

type entry struct {
	key         string
	used        int
	windowStart time.Time
}

// Pool rotates keys cyclically, skipping saturated ones. Safe for concurrent
// use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	cursor  int

	ceiling int
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithCeiling overrides the per-key token budget.
func WithCeiling(ceiling int) Option {
	return func(p *Pool) { p.ceiling = ceiling }
}

// WithWindow overrides the usage window length.
func WithWindow(window time.Duration) Option {
	return func(p *Pool) { p.window = window }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New creates a pool over the given keys.
func New(keys []string, logger *zap.Logger, opts ...Option) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	p := &Pool{
		ceiling: DefaultCeiling,
		window:  DefaultWindow,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	start := p.now()
	for _, key := range keys {
		p.entries = append(p.entries, &entry{key: key, windowStart: start})
	}
	return p, nil
}

// Len returns the number of keys in the pool.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Next returns a key with budget remaining, advancing cyclically past
// saturated keys. Expired windows across the whole pool are reset first, so
// a key saturated more than one window ago becomes usable again. Returns
// ErrAllSaturated when every key is at the ceiling.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetExpired()

	for i := 0; i < len(p.entries); i++ {
		e := p.entries[p.cursor]
		if e.used < p.ceiling {
			return e.key, nil
		}

		p.logger.Debug("key saturated, rotating",
			zap.Int("slot", p.cursor),
			zap.Int("used", e.used),
		)
		p.cursor = (p.cursor + 1) % len(p.entries)
	}

	return "", ErrAllSaturated
}

// Record adds token usage to the given key. Unknown keys are ignored.
func (p *Pool) Record(key string, tokens int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e := p.find(key); e != nil {
		e.used += tokens
	}
}

// Saturate marks the key as having spent its whole budget for the current
// window. Used when the upstream rate-limits a request before the pool's own
// accounting would have cut the key off.
func (p *Pool) Saturate(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e := p.find(key); e != nil {
		e.used = p.ceiling
		p.logger.Warn("key saturated by upstream rate limit")
	}
}

func (p *Pool) find(key string) *entry {
	for _, e := range p.entries {
		if e.key == key {
			return e
		}
	}
	return nil
}

func (p *Pool) resetExpired() {
	now := p.now()
	for _, e := range p.entries {
		if now.Sub(e.windowStart) >= p.window {
			e.used = 0
			e.windowStart = now
		}
	}
}
