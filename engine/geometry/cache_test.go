package geometry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecord struct {
	refs atomic.Int32
}

func (r *fakeRecord) retain()         { r.refs.Add(1) }
func (r *fakeRecord) release()        { r.refs.Add(-1) }
func (r *fakeRecord) refCount() int32 { return r.refs.Load() }

func TestCacheGetOrCreate(t *testing.T) {
	cache := newRecordCache[*fakeRecord](128)

	built := 0
	first, existed, err := cache.getOrCreate(42, func() (*fakeRecord, error) {
		built++
		return &fakeRecord{}, nil
	})
	require.NoError(t, err)
	assert.False(t, existed)
	// One reference for the cache, one for the caller.
	assert.Equal(t, int32(2), first.refCount())

	second, existed, err := cache.getOrCreate(42, func() (*fakeRecord, error) {
		built++
		return &fakeRecord{}, nil
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
	assert.Equal(t, int32(3), first.refCount())
}

func TestCacheConstructsAtMostOnceUnderConcurrency(t *testing.T) {
	cache := newRecordCache[*fakeRecord](128)

	var built atomic.Int32
	var wg sync.WaitGroup
	records := make([]*fakeRecord, 32)
	for i := range records {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec, _, err := cache.getOrCreate(7, func() (*fakeRecord, error) {
				built.Add(1)
				return &fakeRecord{}, nil
			})
			assert.NoError(t, err)
			records[n] = rec
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, rec := range records {
		assert.Same(t, records[0], rec)
	}
}

func TestCachePurgeEvictsUnreferenced(t *testing.T) {
	cache := newRecordCache[*fakeRecord](3)

	dead, _, err := cache.getOrCreate(1, func() (*fakeRecord, error) { return &fakeRecord{}, nil })
	require.NoError(t, err)
	live, _, err := cache.getOrCreate(2, func() (*fakeRecord, error) { return &fakeRecord{}, nil })
	require.NoError(t, err)

	dead.release() // caller drops its reference, cache ref remains

	// Third lookup crosses the purge interval and triggers the scan.
	_, _, err = cache.getOrCreate(3, func() (*fakeRecord, error) { return &fakeRecord{}, nil })
	require.NoError(t, err)

	assert.Equal(t, 2, cache.size())
	assert.Equal(t, int32(0), dead.refCount())
	assert.Equal(t, int32(2), live.refCount())

	// Evicted content is constructed again on the next request.
	rebuilt := false
	again, existed, err := cache.getOrCreate(1, func() (*fakeRecord, error) {
		rebuilt = true
		return &fakeRecord{}, nil
	})
	require.NoError(t, err)
	assert.False(t, existed)
	assert.True(t, rebuilt)
	assert.NotSame(t, dead, again)
}

func TestCacheClearReleasesOwnReferencesOnly(t *testing.T) {
	cache := newRecordCache[*fakeRecord](128)

	held, _, err := cache.getOrCreate(1, func() (*fakeRecord, error) { return &fakeRecord{}, nil })
	require.NoError(t, err)

	cache.clear()
	assert.Equal(t, 0, cache.size())
	// The caller's reference survives the clear.
	assert.Equal(t, int32(1), held.refCount())
}
