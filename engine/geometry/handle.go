package geometry

import "github.com/spaghettifunk/geopool/engine/renderer/metadata"

// VertexHandle is the opaque, read-only view consumers hold on a vertex
// record. Handles never expose mutation; the record stays alive as long as
// any handle (or the cache's own retention) references it.
type VertexHandle struct {
	rec *VertexRecord
}

// GetNumVertices returns the record's element count. Valid immediately
// after allocation, before any commit.
func (h *VertexHandle) GetNumVertices() int {
	return h.rec.GetNumVertices()
}

// GetStartVertex returns the record's element offset inside the shared
// pool, 0 for standalone records.
func (h *VertexHandle) GetStartVertex() uint32 {
	return h.rec.GetStartVertex()
}

// GetBuffer returns the buffer backing the named stream. The buffer's
// content is only correct after the next Commit.
func (h *VertexHandle) GetBuffer(stream string) *metadata.RenderBuffer {
	return h.rec.GetBuffer(stream)
}

// IsPooled reports whether the record lives in shared pooled buffers.
func (h *VertexHandle) IsPooled() bool {
	return h.rec.IsPooled()
}

// IsCommitted reports whether the backing buffers hold the record's data,
// which happens on the first Commit after allocation.
func (h *VertexHandle) IsCommitted() bool {
	return h.rec.IsCommitted()
}

// Clone returns a new handle sharing the same record.
func (h *VertexHandle) Clone() *VertexHandle {
	h.rec.retain()
	return &VertexHandle{rec: h.rec}
}

// Release drops this handle's reference. The handle must not be used
// afterwards.
func (h *VertexHandle) Release() {
	if h.rec != nil {
		h.rec.release()
		h.rec = nil
	}
}

// IndexHandle is the opaque, read-only view on an index record.
type IndexHandle struct {
	rec *IndexRecord
}

// GetNumIndices returns the record's index count.
func (h *IndexHandle) GetNumIndices() int {
	return h.rec.GetNumIndices()
}

// GetStartIndex returns the record's index offset inside the shared pool,
// 0 for standalone records.
func (h *IndexHandle) GetStartIndex() uint32 {
	return h.rec.GetStartIndex()
}

// GetBuffer returns the backing index buffer. The buffer's content is
// only correct after the next Commit.
func (h *IndexHandle) GetBuffer() *metadata.RenderBuffer {
	return h.rec.GetBuffer()
}

// IsPooled reports whether the record lives in a shared pooled buffer.
func (h *IndexHandle) IsPooled() bool {
	return h.rec.IsPooled()
}

// IsCommitted reports whether the backing buffer holds the record's data.
func (h *IndexHandle) IsCommitted() bool {
	return h.rec.IsCommitted()
}

// Clone returns a new handle sharing the same record.
func (h *IndexHandle) Clone() *IndexHandle {
	h.rec.retain()
	return &IndexHandle{rec: h.rec}
}

// Release drops this handle's reference.
func (h *IndexHandle) Release() {
	if h.rec != nil {
		h.rec.release()
		h.rec = nil
	}
}
