package geometry

import (
	"sync"

	"github.com/spaghettifunk/geopool/engine/core"
)

type cachedRecord interface {
	retain()
	release()
	refCount() int32
}

// recordCache maps a content hash to a record, constructing at most once
// per distinct hash even under concurrent callers. The cache holds one
// reference of its own on every entry; a purge scan runs every
// purgeInterval lookups and evicts entries nobody else references.
//
// Keys are 64-bit content digests with no equality fallback: two distinct
// payloads colliding on the same digest would alias one record. The risk
// is accepted and the pool reports a suspected collision when a hit's
// element count disagrees with the request.
type recordCache[T cachedRecord] struct {
	mu            sync.Mutex
	entries       map[uint64]T
	gets          int
	purgeInterval int
}

func newRecordCache[T cachedRecord](purgeInterval int) *recordCache[T] {
	return &recordCache[T]{
		entries:       make(map[uint64]T),
		purgeInterval: purgeInterval,
	}
}

// getOrCreate returns the record for hash, invoking factory exactly once
// per distinct hash while a live entry exists. The construction runs under
// the cache lock, which serializes racing callers on the same content; the
// factory must therefore stay CPU-cheap and must not touch the GPU.
// The returned record carries one reference owned by the caller. The
// second return value reports whether the entry already existed.
func (c *recordCache[T]) getOrCreate(hash uint64, factory func() (T, error)) (T, bool, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if c.gets >= c.purgeInterval {
		c.gets = 0
		c.purgeLocked()
	}

	if existing, ok := c.entries[hash]; ok {
		existing.retain()
		return existing, true, nil
	}

	created, err := factory()
	if err != nil {
		return zero, false, err
	}
	// One reference for the cache itself, one for the caller.
	created.retain()
	created.retain()
	c.entries[hash] = created
	return created, false, nil
}

// purgeLocked evicts entries whose only reference is the cache's own.
// Handles held by callers are untouched; they keep their record alive
// independently of cache membership.
func (c *recordCache[T]) purgeLocked() {
	evicted := 0
	for hash, entry := range c.entries {
		if entry.refCount() == 1 {
			entry.release()
			delete(c.entries, hash)
			evicted++
		}
	}
	if evicted > 0 {
		core.LogDebug("cache purge evicted %d unreferenced records", evicted)
	}
}

// clear releases the cache's reference on every entry. Records still held
// by outside handles survive until those handles release them.
func (c *recordCache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, entry := range c.entries {
		entry.release()
		delete(c.entries, hash)
	}
}

// size returns the number of live cache entries.
func (c *recordCache[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
