package geometry

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/geopool/engine/config"
	"github.com/spaghettifunk/geopool/engine/containers"
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/renderer"
	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

// vertexStagingEntry pairs a newly constructed record with the CPU data it
// still owes the GPU. Pushed exactly once, consumed exactly once.
type vertexStagingEntry struct {
	rec *VertexRecord
	// Per-slot payloads in the record's stream order.
	payload [][]byte
}

type indexStagingEntry struct {
	rec *IndexRecord
	// Rebased, GPU-ready index payload.
	payload []byte
}

/**
 * @brief GeometryPool turns per-primitive vertex/index source data into
 * deduplicated, suballocated GPU buffers.
 *
 * AllocateVertices/AllocateIndices are safe to call from parallel traversal
 * threads. Commit must be called by exactly one thread, once per frame,
 * after all allocation calls for that frame have completed; the surrounding
 * scheduler owns that barrier.
 */
type GeometryPool struct {
	backend  renderer.Backend
	suballoc Suballocator
	metrics  *core.Metrics

	vertexCache *recordCache[*VertexRecord]
	indexCache  *recordCache[*IndexRecord]

	vertexStaging *containers.Queue[*vertexStagingEntry]
	indexStaging  *containers.Queue[*indexStagingEntry]

	// Buffers and pooled regions whose last reference died on a traversal
	// thread; collected on the commit thread, after the staging drains, so
	// no page recycles while an upload for this frame is still in flight.
	garbage       *containers.Queue[*metadata.RenderBuffer]
	regionGarbage *containers.Queue[pooledRegion]
}

// pooledRegion is the commit-thread release hook shared by vertex and
// index regions.
type pooledRegion interface {
	Release()
}

func NewGeometryPool(backend renderer.Backend, cfg config.PoolConfig) *GeometryPool {
	var suballoc Suballocator
	if cfg.Enabled {
		suballoc = NewBufferPool(cfg.VertexPageElements, cfg.IndexPageBytes)
	} else {
		core.LogInfo("buffer pooling disabled, every record gets standalone buffers")
	}

	return &GeometryPool{
		backend:       backend,
		suballoc:      suballoc,
		metrics:       core.NewMetrics(),
		vertexCache:   newRecordCache[*VertexRecord](cfg.CachePurgeInterval),
		indexCache:    newRecordCache[*IndexRecord](cfg.CachePurgeInterval),
		vertexStaging: containers.NewQueue[*vertexStagingEntry](64),
		indexStaging:  containers.NewQueue[*indexStagingEntry](64),
		garbage:       containers.NewQueue[*metadata.RenderBuffer](16),
		regionGarbage: containers.NewQueue[pooledRegion](16),
	}
}

// Metrics exposes the pool's counters.
func (p *GeometryPool) Metrics() *core.Metrics {
	return p.metrics
}

/**
 * @brief Deduplicates and stages one logical vertex set.
 *
 * Sources may be passed in any order; the pool sorts them by stream name so
 * identical content always maps to the same record. All sources must report
 * the same element count. The source data must stay valid and untouched
 * until the next Commit.
 *
 * A non-nil reuse handle skips the cache and restages data for the handle's
 * existing record (a refreshed upload); the element count must match.
 *
 * Thread-safe. No GPU work happens here; the returned handle answers
 * size/slot queries immediately, but the underlying buffer content is only
 * correct after the next Commit.
 */
func (p *GeometryPool) AllocateVertices(name string, sources []VertexSource, reuse *VertexHandle) (*VertexHandle, error) {
	if len(sources) == 0 {
		core.LogError("AllocateVertices %s: %s", name, core.ErrEmptySourceSet.Error())
		return nil, core.ErrEmptySourceSet
	}

	ordered := make([]VertexSource, len(sources))
	copy(ordered, sources)
	slices.SortFunc(ordered, func(a, b VertexSource) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})

	count := ordered[0].ElementCount()
	for i := range ordered {
		if ordered[i].ElementCount() != count {
			// Caller bug, not scene data. Report and refuse the whole set
			// rather than staging a record with unspecified contents.
			core.LogError("AllocateVertices %s: stream %s has %d elements, expected %d: %s",
				name, ordered[i].Name, ordered[i].ElementCount(), count, core.ErrElementCountMismatch.Error())
			return nil, core.ErrElementCountMismatch
		}
	}

	payload := make([][]byte, len(ordered))
	for i := range ordered {
		payload[i] = ordered[i].Data
	}

	if reuse != nil && reuse.rec != nil {
		return p.refreshVertices(name, reuse, ordered, payload)
	}

	hash := hashVertexSources(ordered)
	rec, existed, err := p.vertexCache.getOrCreate(hash, func() (*VertexRecord, error) {
		return p.buildVertexRecord(name, hash, count, ordered), nil
	})
	if err != nil {
		return nil, err
	}

	if existed {
		if rec.numVertices != count {
			// Either a topology-change bug in the caller or a genuine hash
			// collision; both alias wrong data, so refuse the record.
			core.LogError("AllocateVertices %s: hash hit with %d vertices but request has %d (suspected collision)",
				name, rec.numVertices, count)
			rec.release()
			return nil, core.ErrTopologyChanged
		}
		p.metrics.CacheHits.Add(1)
		return &VertexHandle{rec: rec}, nil
	}

	p.metrics.CacheMisses.Add(1)
	p.metrics.RecordsBuilt.Add(1)
	p.stageVertexPayload(rec, payload)
	return &VertexHandle{rec: rec}, nil
}

// refreshVertices restages data for an already materialized record. The
// request must match the record's layout exactly: element count, stream
// count and every stream's name and format. A record's pooled region is
// sized by that layout, so a refresh with a wider format would overrun it
// and bleed into a neighboring record's range.
func (p *GeometryPool) refreshVertices(name string, reuse *VertexHandle, ordered []VertexSource, payload [][]byte) (*VertexHandle, error) {
	rec := reuse.rec
	count := ordered[0].ElementCount()
	if rec.numVertices != count {
		core.LogError("AllocateVertices %s: refresh with %d vertices on a record of %d, update rejected",
			name, count, rec.numVertices)
		return reuse, core.ErrTopologyChanged
	}
	if len(ordered) != len(rec.streams) {
		core.LogError("AllocateVertices %s: refresh with %d streams on a record of %d, update rejected",
			name, len(ordered), len(rec.streams))
		return reuse, core.ErrTopologyChanged
	}
	for i := range ordered {
		if ordered[i].Name != rec.streams[i].Name || ordered[i].Format != rec.streams[i].Format {
			core.LogError("AllocateVertices %s: refresh changes stream %d from %s/%s to %s/%s, update rejected",
				name, i, rec.streams[i].Name, rec.streams[i].Format, ordered[i].Name, ordered[i].Format)
			return reuse, core.ErrTopologyChanged
		}
	}
	p.stageVertexPayload(rec, payload)
	return reuse, nil
}

// buildVertexRecord runs under the cache lock: CPU-side layout plus an
// optional pool reservation only, never a GPU call.
func (p *GeometryPool) buildVertexRecord(name string, hash uint64, count int, ordered []VertexSource) *VertexRecord {
	streams := make([]streamLayout, len(ordered))
	sizes := make([]uint64, len(ordered))
	for i := range ordered {
		streams[i] = streamLayout{Name: ordered[i].Name, Format: ordered[i].Format}
		sizes[i] = ordered[i].Format.ElementSize()
	}

	rec := &VertexRecord{
		id:          uuid.New(),
		name:        name,
		hash:        hash,
		numVertices: count,
		streams:     streams,
		pool:        p,
	}

	if p.suballoc != nil {
		rec.region = p.suballoc.AllocateVertexRegion(LayoutKey{ElementSizes: sizes}, count)
	}
	if rec.region == nil {
		// Pooling disabled or the suballocator declined. Normal path: the
		// record gets one standalone buffer per stream at commit time.
		rec.buffers = make([]*metadata.RenderBuffer, len(streams))
		p.metrics.StandaloneFallbacks.Add(1)
	}
	return rec
}

func (p *GeometryPool) stageVertexPayload(rec *VertexRecord, payload [][]byte) {
	staged := uint64(0)
	for _, data := range payload {
		staged += uint64(len(data))
	}
	p.metrics.StagedBytes.Add(staged)
	p.vertexStaging.Enqueue(&vertexStagingEntry{rec: rec, payload: payload})
}

/**
 * @brief Deduplicates and stages one logical index buffer.
 *
 * Every index value is biased by startVertex before hashing and staging,
 * so the staged payload is already GPU-ready and the same topology placed
 * at two different vertex-pool offsets yields two distinct records.
 *
 * Thread-safe; same two-phase contract as AllocateVertices.
 */
func (p *GeometryPool) AllocateIndices(name string, indices IndexArray, startVertex uint32, reuse *IndexHandle) (*IndexHandle, error) {
	if indices == nil || indices.Count() == 0 {
		core.LogError("AllocateIndices %s: %s", name, core.ErrEmptyIndexArray.Error())
		return nil, core.ErrEmptyIndexArray
	}

	var flat []uint32
	switch arr := indices.(type) {
	case PointIndices:
		flat = arr.flatten(startVertex)
	case LineIndices:
		flat = arr.flatten(startVertex)
	case TriangleIndices:
		flat = arr.flatten(startVertex)
	default:
		// Index buffers with unrebased or zero-filled content corrupt
		// silently, so an unknown variant is refused loudly here.
		core.LogError("AllocateIndices %s: %T: %s", name, indices, core.ErrUnknownIndexVariant.Error())
		return nil, core.ErrUnknownIndexVariant
	}

	payload := Uint32Bytes(flat)

	if reuse != nil && reuse.rec != nil {
		rec := reuse.rec
		if rec.numIndices != len(flat) {
			core.LogError("AllocateIndices %s: refresh with %d indices on a record of %d, update rejected",
				name, len(flat), rec.numIndices)
			return reuse, core.ErrTopologyChanged
		}
		p.stageIndexPayload(rec, payload)
		return reuse, nil
	}

	hash := hashBytes(payload)
	rec, existed, err := p.indexCache.getOrCreate(hash, func() (*IndexRecord, error) {
		return p.buildIndexRecord(name, hash, flat), nil
	})
	if err != nil {
		return nil, err
	}

	if existed {
		if rec.numIndices != len(flat) {
			core.LogError("AllocateIndices %s: hash hit with %d indices but request has %d (suspected collision)",
				name, rec.numIndices, len(flat))
			rec.release()
			return nil, core.ErrTopologyChanged
		}
		p.metrics.CacheHits.Add(1)
		return &IndexHandle{rec: rec}, nil
	}

	p.metrics.CacheMisses.Add(1)
	p.metrics.RecordsBuilt.Add(1)
	p.stageIndexPayload(rec, payload)
	return &IndexHandle{rec: rec}, nil
}

func (p *GeometryPool) buildIndexRecord(name string, hash uint64, flat []uint32) *IndexRecord {
	rec := &IndexRecord{
		id:         uuid.New(),
		name:       name,
		hash:       hash,
		numIndices: len(flat),
		pool:       p,
	}
	if p.suballoc != nil {
		rec.region = p.suballoc.AllocateIndexRegion(uint64(len(flat)) * 4)
	}
	if rec.region == nil {
		p.metrics.StandaloneFallbacks.Add(1)
	}
	return rec
}

func (p *GeometryPool) stageIndexPayload(rec *IndexRecord, payload []byte) {
	p.metrics.StagedBytes.Add(uint64(len(payload)))
	p.indexStaging.Enqueue(&indexStagingEntry{rec: rec, payload: payload})
}

/**
 * @brief Performs all pending GPU buffer creation and uploads.
 *
 * Single-threaded; call exactly once per frame, after all traversal work
 * has completed and before any draw that references the allocated buffers.
 * Calling Commit while allocations are in flight is undefined behavior by
 * contract. Handles may be released from any thread at any time: a record
 * fully released before its upload forfeits it, and its region or buffers
 * are collected here, never on the releasing thread.
 */
func (p *GeometryPool) Commit() error {
	start := time.Now()

	if p.suballoc != nil {
		if err := p.suballoc.Materialize(p.backend); err != nil {
			core.LogError("commit: pool materialization failed: %s", err.Error())
			return err
		}
	}

	for _, entry := range p.vertexStaging.Drain() {
		p.commitVertexEntry(entry)
	}
	for _, entry := range p.indexStaging.Drain() {
		p.commitIndexEntry(entry)
	}

	// Resources whose records died since the last frame. Regions go first
	// so their page space is reusable by the next frame's reservations.
	for _, region := range p.regionGarbage.Drain() {
		region.Release()
	}
	for _, buf := range p.garbage.Drain() {
		p.backend.RenderBufferDestroy(buf)
	}

	p.metrics.RecordCommit(time.Since(start).Seconds())
	return nil
}

func (p *GeometryPool) commitVertexEntry(entry *vertexStagingEntry) {
	rec := entry.rec
	if entry.payload == nil {
		core.LogWarn("commit: vertex record %s: %s", rec.name, core.ErrStagingExhausted.Error())
		return
	}
	// Snapshot the backing before the liveness check. A release on another
	// thread clears these fields, but region teardown is deferred to this
	// thread's garbage drain, so a non-nil snapshot stays valid below.
	region := rec.region
	buffers := rec.buffers
	if rec.refCount() == 0 {
		// Every handle died between allocation and commit; the upload is
		// forfeited and the backing is collected by the garbage drain.
		core.LogDebug("commit: vertex record %s released before upload, skipping", rec.name)
		return
	}

	if region != nil {
		for slot, data := range entry.payload {
			buf := region.StreamBuffer(slot)
			if buf == nil {
				core.LogError("commit: vertex record %s slot %d has no pooled buffer", rec.name, slot)
				continue
			}
			if err := p.backend.RenderBufferLoadRange(buf, region.ByteOffset(slot), data); err != nil {
				core.LogError("commit: vertex record %s slot %d upload failed: %s", rec.name, slot, err.Error())
			}
		}
	} else if buffers != nil {
		for slot, data := range entry.payload {
			buf := buffers[slot]
			if buf == nil {
				created, err := p.backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, uint64(len(data)))
				if err != nil {
					core.LogError("commit: vertex record %s slot %d create failed: %s", rec.name, slot, err.Error())
					continue
				}
				buffers[slot] = created
				buf = created
			}
			if err := p.backend.RenderBufferLoadRange(buf, 0, data); err != nil {
				core.LogError("commit: vertex record %s slot %d upload failed: %s", rec.name, slot, err.Error())
				continue
			}
			if err := p.backend.RenderBufferTransition(buf, metadata.RENDERBUFFER_TYPE_VERTEX); err != nil {
				core.LogError("commit: vertex record %s slot %d transition failed: %s", rec.name, slot, err.Error())
			}
		}
	} else {
		core.LogWarn("commit: vertex record %s lost its backing before upload, skipping", rec.name)
		return
	}

	rec.committed.Store(true)
	entry.payload = nil
}

func (p *GeometryPool) commitIndexEntry(entry *indexStagingEntry) {
	rec := entry.rec
	if entry.payload == nil {
		core.LogWarn("commit: index record %s: %s", rec.name, core.ErrStagingExhausted.Error())
		return
	}
	region := rec.region
	if rec.refCount() == 0 {
		core.LogDebug("commit: index record %s released before upload, skipping", rec.name)
		return
	}

	if region != nil {
		buf := region.Buffer()
		if buf == nil {
			core.LogError("commit: index record %s has no pooled buffer", rec.name)
			return
		}
		if err := p.backend.RenderBufferLoadRange(buf, region.ByteOffset(), entry.payload); err != nil {
			core.LogError("commit: index record %s upload failed: %s", rec.name, err.Error())
		}
	} else {
		if rec.buffer == nil {
			created, err := p.backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, uint64(len(entry.payload)))
			if err != nil {
				core.LogError("commit: index record %s create failed: %s", rec.name, err.Error())
				return
			}
			rec.buffer = created
		}
		if err := p.backend.RenderBufferLoadRange(rec.buffer, 0, entry.payload); err != nil {
			core.LogError("commit: index record %s upload failed: %s", rec.name, err.Error())
			return
		}
		if err := p.backend.RenderBufferTransition(rec.buffer, metadata.RENDERBUFFER_TYPE_INDEX); err != nil {
			core.LogError("commit: index record %s transition failed: %s", rec.name, err.Error())
		}
	}

	rec.committed.Store(true)
	entry.payload = nil
}

/**
 * @brief Tears the pool down. Commit-thread only.
 *
 * Drops the caches' own references, discards pending staging payloads and
 * destroys pooled pages. Records still held by outside handles stay valid
 * CPU-side but lose their GPU backing.
 */
func (p *GeometryPool) Shutdown() {
	p.vertexStaging.Drain()
	p.indexStaging.Drain()

	p.vertexCache.clear()
	p.indexCache.clear()

	for _, region := range p.regionGarbage.Drain() {
		region.Release()
	}
	for _, buf := range p.garbage.Drain() {
		p.backend.RenderBufferDestroy(buf)
	}

	if p.suballoc != nil {
		p.suballoc.Shutdown(p.backend)
	}
}
