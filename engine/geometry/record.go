package geometry

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

type streamLayout struct {
	Name   string
	Format VertexFormat
}

/**
 * @brief One logical vertex set: the pooled-vs-standalone storage decision,
 * the per-stream layout and the GPU buffers backing it once committed.
 *
 * The element count is fixed at construction. Geometry whose vertex count
 * changes must get a new record, never mutate an existing one.
 */
type VertexRecord struct {
	id          uuid.UUID
	name        string
	hash        uint64
	numVertices int
	// Streams in deterministic (lexicographic) order; the slice index is
	// the layout slot.
	streams []streamLayout
	// Pooled storage. Nil means the record is standalone.
	region *VertexRegion
	// Standalone per-stream buffers, created at commit time.
	buffers []*metadata.RenderBuffer

	committed atomic.Bool
	refs      atomic.Int32
	pool      *GeometryPool
}

// GetNumVertices returns the element count fixed at construction.
func (r *VertexRecord) GetNumVertices() int {
	return r.numVertices
}

// GetStartVertex returns the element offset inside the pooled buffers, or
// 0 for standalone records.
func (r *VertexRecord) GetStartVertex() uint32 {
	if r.region != nil {
		return r.region.StartVertex()
	}
	return 0
}

// GetBuffer returns the buffer backing the named stream, or nil if the
// stream is unknown or the backing is not yet GPU-resident.
func (r *VertexRecord) GetBuffer(stream string) *metadata.RenderBuffer {
	for slot := range r.streams {
		if r.streams[slot].Name == stream {
			return r.bufferForSlot(slot)
		}
	}
	return nil
}

func (r *VertexRecord) bufferForSlot(slot int) *metadata.RenderBuffer {
	if r.region != nil {
		return r.region.StreamBuffer(slot)
	}
	if slot < len(r.buffers) {
		return r.buffers[slot]
	}
	return nil
}

// IsPooled reports whether the record lives inside shared pooled buffers.
func (r *VertexRecord) IsPooled() bool {
	return r.region != nil
}

// IsCommitted reports whether the record's GPU backing holds its data.
func (r *VertexRecord) IsCommitted() bool {
	return r.committed.Load()
}

func (r *VertexRecord) retain() {
	r.refs.Add(1)
}

func (r *VertexRecord) release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	// Last reference gone: queue the pooled region and any standalone
	// buffers for collection on the commit thread. The region must not be
	// recycled here; an upload for this frame may still be in flight.
	if r.region != nil {
		r.pool.regionGarbage.Enqueue(r.region)
		r.region = nil
	}
	for _, buf := range r.buffers {
		if buf != nil {
			r.pool.garbage.Enqueue(buf)
		}
	}
	r.buffers = nil
	r.pool.metrics.RecordsReleased.Add(1)
}

func (r *VertexRecord) refCount() int32 {
	return r.refs.Load()
}

/**
 * @brief One logical index buffer with its rebased payload placement.
 * The index count never changes after construction; a topology change
 * requires a new record.
 */
type IndexRecord struct {
	id         uuid.UUID
	name       string
	hash       uint64
	numIndices int
	// Pooled storage. Nil means the record is standalone.
	region *IndexRegion
	// Standalone buffer, created at commit time.
	buffer *metadata.RenderBuffer

	committed atomic.Bool
	refs      atomic.Int32
	pool      *GeometryPool
}

// GetNumIndices returns the index count fixed at construction.
func (r *IndexRecord) GetNumIndices() int {
	return r.numIndices
}

// GetStartIndex returns the index offset inside the pooled buffer, or 0
// for standalone records.
func (r *IndexRecord) GetStartIndex() uint32 {
	if r.region != nil {
		return uint32(r.region.ByteOffset() / 4)
	}
	return 0
}

// GetBuffer returns the backing index buffer, nil until GPU-resident.
func (r *IndexRecord) GetBuffer() *metadata.RenderBuffer {
	if r.region != nil {
		return r.region.Buffer()
	}
	return r.buffer
}

// IsPooled reports whether the record lives inside a shared pooled buffer.
func (r *IndexRecord) IsPooled() bool {
	return r.region != nil
}

// IsCommitted reports whether the record's GPU backing holds its data.
func (r *IndexRecord) IsCommitted() bool {
	return r.committed.Load()
}

func (r *IndexRecord) retain() {
	r.refs.Add(1)
}

func (r *IndexRecord) release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	if r.region != nil {
		r.pool.regionGarbage.Enqueue(r.region)
		r.region = nil
	}
	if r.buffer != nil {
		r.pool.garbage.Enqueue(r.buffer)
		r.buffer = nil
	}
	r.pool.metrics.RecordsReleased.Add(1)
}

func (r *IndexRecord) refCount() int32 {
	return r.refs.Load()
}
