package renderer

import "github.com/spaghettifunk/geopool/engine/renderer/metadata"

// Backend is the single-threaded GPU collaborator of the geometry pool.
// All methods must be called from the commit/frame thread only; the pool
// never touches the backend during traversal.
type Backend interface {
	// RenderBufferCreate creates a buffer of the given type and size. The
	// buffer content is undefined until loaded.
	RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error)
	// RenderBufferLoadRange writes data into the buffer at a byte offset.
	RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error
	// RenderBufferTransition declares the buffer's resource state for its
	// intended usage. Must follow the initial upload of standalone buffers.
	RenderBufferTransition(buffer *metadata.RenderBuffer, renderbufferType metadata.RenderBufferType) error
	// RenderBufferDestroy releases the buffer and its memory.
	RenderBufferDestroy(buffer *metadata.RenderBuffer)

	Shutdown() error
}
