package geometry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/renderer"
	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

// LayoutKey identifies the per-stream element sizes of a vertex set, in
// deterministic stream order. Vertex sets with equal keys can share pages.
type LayoutKey struct {
	ElementSizes []uint64
}

func (k LayoutKey) String() string {
	parts := make([]string, len(k.ElementSizes))
	for i, s := range k.ElementSizes {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, "+")
}

// Suballocator reserves ref-counted regions inside shared pooled buffers.
// A nil region means the request was declined and the caller should fall
// back to standalone buffers; that is a normal path, not an error.
type Suballocator interface {
	AllocateVertexRegion(key LayoutKey, elementCount int) *VertexRegion
	AllocateIndexRegion(byteSize uint64) *IndexRegion
	// Materialize creates GPU buffers for pages reserved since the last
	// call. Commit-thread only.
	Materialize(backend renderer.Backend) error
	// Shutdown destroys every page buffer. Commit-thread only.
	Shutdown(backend renderer.Backend)
}

// vertexPage is one pooled allocation unit: one buffer per stream slot,
// all sized for the same element capacity, bump-allocated.
type vertexPage struct {
	layout   LayoutKey
	capacity int
	used     int
	refs     int
	buffers  []*metadata.RenderBuffer
}

type indexPage struct {
	capacity uint64
	used     uint64
	refs     int
	buffer   *metadata.RenderBuffer
}

// VertexRegion is a ref-counted range of elements inside a vertex page.
type VertexRegion struct {
	pool         *BufferPool
	page         *vertexPage
	startVertex  uint32
	elementCount int
	released     bool
}

// StartVertex returns the element offset of the region inside its page.
func (r *VertexRegion) StartVertex() uint32 {
	return r.startVertex
}

// StreamBuffer returns the pooled buffer backing the given layout slot.
// Nil until the owning pool has been materialized by a commit.
func (r *VertexRegion) StreamBuffer(slot int) *metadata.RenderBuffer {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if slot < 0 || slot >= len(r.page.buffers) {
		return nil
	}
	return r.page.buffers[slot]
}

// ByteOffset returns the region's byte offset inside the slot's buffer.
func (r *VertexRegion) ByteOffset(slot int) uint64 {
	return uint64(r.startVertex) * r.page.layout.ElementSizes[slot]
}

// Release returns the region to its pool. Must be called exactly once.
func (r *VertexRegion) Release() {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if r.released {
		core.LogError("vertex region released twice, ignoring")
		return
	}
	r.released = true
	r.page.refs--
	if r.page.refs == 0 {
		// Page content is all garbage now; recycle the space but keep the
		// buffers alive for the next occupant.
		r.page.used = 0
	}
}

// IndexRegion is a ref-counted byte range inside a pooled index buffer.
type IndexRegion struct {
	pool       *BufferPool
	page       *indexPage
	byteOffset uint64
	byteSize   uint64
	released   bool
}

// Buffer returns the pooled index buffer. Nil until materialized.
func (r *IndexRegion) Buffer() *metadata.RenderBuffer {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	return r.page.buffer
}

// ByteOffset returns the region's byte offset inside the pooled buffer.
func (r *IndexRegion) ByteOffset() uint64 {
	return r.byteOffset
}

func (r *IndexRegion) Release() {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if r.released {
		core.LogError("index region released twice, ignoring")
		return
	}
	r.released = true
	r.page.refs--
	if r.page.refs == 0 {
		r.page.used = 0
	}
}

// BufferPool suballocates many small vertex/index sets into a few large
// pooled buffers. Reservation is thread-safe and CPU-only; the GPU buffers
// behind new pages are created later by Materialize on the commit thread.
type BufferPool struct {
	mu                 sync.Mutex
	vertexPageElements int
	indexPageBytes     uint64
	vertexPages        map[string][]*vertexPage
	indexPages         []*indexPage
}

func NewBufferPool(vertexPageElements int, indexPageBytes int) *BufferPool {
	return &BufferPool{
		vertexPageElements: vertexPageElements,
		indexPageBytes:     uint64(indexPageBytes),
		vertexPages:        make(map[string][]*vertexPage),
	}
}

func (p *BufferPool) AllocateVertexRegion(key LayoutKey, elementCount int) *VertexRegion {
	if elementCount <= 0 || len(key.ElementSizes) == 0 {
		return nil
	}
	// Requests larger than a whole page are declined; the record will use
	// standalone buffers instead.
	if elementCount > p.vertexPageElements {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	mapKey := key.String()
	var page *vertexPage
	for _, candidate := range p.vertexPages[mapKey] {
		if candidate.capacity-candidate.used >= elementCount {
			page = candidate
			break
		}
	}
	if page == nil {
		page = &vertexPage{
			layout:   key,
			capacity: p.vertexPageElements,
			buffers:  make([]*metadata.RenderBuffer, len(key.ElementSizes)),
		}
		p.vertexPages[mapKey] = append(p.vertexPages[mapKey], page)
	}

	region := &VertexRegion{
		pool:         p,
		page:         page,
		startVertex:  uint32(page.used),
		elementCount: elementCount,
	}
	page.used += elementCount
	page.refs++
	return region
}

func (p *BufferPool) AllocateIndexRegion(byteSize uint64) *IndexRegion {
	if byteSize == 0 || byteSize > p.indexPageBytes {
		return nil
	}
	// Keep index offsets aligned to a full uint32.
	byteSize = (byteSize + 3) &^ 3

	p.mu.Lock()
	defer p.mu.Unlock()

	var page *indexPage
	for _, candidate := range p.indexPages {
		if candidate.capacity-candidate.used >= byteSize {
			page = candidate
			break
		}
	}
	if page == nil {
		page = &indexPage{capacity: p.indexPageBytes}
		p.indexPages = append(p.indexPages, page)
	}

	region := &IndexRegion{
		pool:       p,
		page:       page,
		byteOffset: page.used,
		byteSize:   byteSize,
	}
	page.used += byteSize
	page.refs++
	return region
}

func (p *BufferPool) Materialize(backend renderer.Backend) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pages := range p.vertexPages {
		for _, page := range pages {
			for slot := range page.buffers {
				if page.buffers[slot] != nil {
					continue
				}
				size := uint64(page.capacity) * page.layout.ElementSizes[slot]
				buf, err := backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, size)
				if err != nil {
					return err
				}
				if err := backend.RenderBufferTransition(buf, metadata.RENDERBUFFER_TYPE_VERTEX); err != nil {
					return err
				}
				page.buffers[slot] = buf
			}
		}
	}
	for _, page := range p.indexPages {
		if page.buffer != nil {
			continue
		}
		buf, err := backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, page.capacity)
		if err != nil {
			return err
		}
		if err := backend.RenderBufferTransition(buf, metadata.RENDERBUFFER_TYPE_INDEX); err != nil {
			return err
		}
		page.buffer = buf
	}
	return nil
}

func (p *BufferPool) Shutdown(backend renderer.Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pages := range p.vertexPages {
		for _, page := range pages {
			if page.refs > 0 {
				core.LogWarn("destroying vertex page with %d live regions", page.refs)
			}
			for _, buf := range page.buffers {
				if buf != nil {
					backend.RenderBufferDestroy(buf)
				}
			}
		}
	}
	p.vertexPages = make(map[string][]*vertexPage)

	for _, page := range p.indexPages {
		if page.refs > 0 {
			core.LogWarn("destroying index page with %d live regions", page.refs)
		}
		if page.buffer != nil {
			backend.RenderBufferDestroy(page.buffer)
		}
	}
	p.indexPages = nil
}
