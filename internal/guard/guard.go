// Package guard coordinates writes to host config files so that a file
// observer can tell self-caused changes from external edits.
//
// Every write acquires a [Lease] for its path. While a lease is held, and
// for a short suppression window after it is released, [Guard.IsInternalWrite]
// reports true for that path.
package guard

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSuppression is how long a path stays flagged after a write.
const DefaultSuppression = 2 * time.Second

// Guard holds the process-wide write state: the set of paths being written
// and the suppression deadline of recently written paths. A single mutex
// serializes access to both.
type Guard struct {
	mu          sync.Mutex
	active      map[string]chan struct{}
	suppressed  map[string]time.Time
	suppression time.Duration
	now         func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithSuppression overrides the suppression window.
func WithSuppression(d time.Duration) Option {
	return func(g *Guard) { g.suppression = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a Guard.
func New(opts ...Option) *Guard {
	g := &Guard{
		active:      make(map[string]chan struct{}),
		suppressed:  make(map[string]time.Time),
		suppression: DefaultSuppression,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var (
	defaultOnce  sync.Once
	defaultGuard *Guard
)

// Default returns the process-wide Guard used by the atomic writer and the
// change observer.
func Default() *Guard {
	defaultOnce.Do(func() { defaultGuard = New() })
	return defaultGuard
}

// Lease is held by the single writer of a path.
type Lease struct {
	g    *Guard
	path string
	done chan struct{}
	once sync.Once
}

// Acquire blocks until no other writer holds path, then marks it active.
// It returns ctx.Err() if ctx is done first.
func (g *Guard) Acquire(ctx context.Context, path string) (*Lease, error) {
	key := normalize(path)
	for {
		g.mu.Lock()
		wait, busy := g.active[key]
		if !busy {
			done := make(chan struct{})
			g.active[key] = done
			g.mu.Unlock()
			return &Lease{g: g, path: key, done: done}, nil
		}
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release removes the path from the active set and starts its suppression
// window. Calling Release more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		g := l.g
		g.mu.Lock()
		delete(g.active, l.path)
		g.suppressed[l.path] = g.now().Add(g.suppression)
		g.mu.Unlock()
		close(l.done)
	})
}

// Path returns the normalized path held by the lease.
func (l *Lease) Path() string {
	return l.path
}

// IsInternalWrite reports whether path is being written or was written
// within the suppression window. Expired entries are pruned on each call.
func (g *Guard) IsInternalWrite(path string) bool {
	key := normalize(path)
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for p, until := range g.suppressed {
		if !now.Before(until) {
			delete(g.suppressed, p)
		}
	}

	if _, ok := g.active[key]; ok {
		return true
	}
	_, ok := g.suppressed[key]
	return ok
}

// normalize makes path absolute and clean so that different spellings of
// the same file share one entry.
func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Lock adapts Acquire to the fileutil.LockFunc shape.
func (g *Guard) Lock(ctx context.Context, path string) (func(), error) {
	l, err := g.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}
