package progress

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	progress Progress
	expires  time.Time
}

// MemoryTracker is the in-process TTL map used when no Redis is
// configured. Safe for a writer and concurrent pollers.
type MemoryTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{
		ttl:     ttl,
		entries: map[string]*memoryEntry{},
		now:     time.Now,
	}
}

func (t *MemoryTracker) Set(_ context.Context, token string, p Progress) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Drop entries whose window lapsed; the map only ever holds one
	// entry per concurrent run, so the sweep is cheap.
	for key, entry := range t.entries {
		if now.After(entry.expires) {
			delete(t.entries, key)
		}
	}

	t.entries[token] = &memoryEntry{progress: p, expires: now.Add(t.ttl)}
}

func (t *MemoryTracker) Get(_ context.Context, token string) Progress {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[token]
	if !ok || now.After(entry.expires) {
		return NotFound()
	}
	return entry.progress
}
