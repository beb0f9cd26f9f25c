package memorybe

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

// Backend is a CPU-side renderer backend. Every buffer is backed by a byte
// slice, which makes it usable for headless runs and lets tests inspect
// exactly what a commit wrote.
type Backend struct {
	mu      sync.Mutex
	buffers map[uuid.UUID][]byte

	createCount     int
	loadRangeCount  int
	transitionCount int
}

func New() *Backend {
	return &Backend{
		buffers: make(map[uuid.UUID][]byte),
	}
}

func (b *Backend) RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	buf := &metadata.RenderBuffer{
		ID:               uuid.New(),
		RenderBufferType: renderbufferType,
		TotalSize:        totalSize,
	}

	b.mu.Lock()
	b.buffers[buf.ID] = make([]byte, totalSize)
	b.createCount++
	b.mu.Unlock()

	return buf, nil
}

func (b *Backend) RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	backing, ok := b.buffers[buffer.ID]
	if !ok {
		return fmt.Errorf("load range on unknown buffer %s", buffer.ID)
	}
	if offset+uint64(len(data)) > uint64(len(backing)) {
		return fmt.Errorf("load range [%d, %d) out of bounds for buffer %s of size %d",
			offset, offset+uint64(len(data)), buffer.ID, len(backing))
	}
	copy(backing[offset:], data)
	b.loadRangeCount++
	return nil
}

func (b *Backend) RenderBufferTransition(buffer *metadata.RenderBuffer, renderbufferType metadata.RenderBufferType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[buffer.ID]; !ok {
		return fmt.Errorf("transition on unknown buffer %s", buffer.ID)
	}
	buffer.RenderBufferType = renderbufferType
	b.transitionCount++
	return nil
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) {
	if buffer == nil {
		return
	}
	b.mu.Lock()
	delete(b.buffers, buffer.ID)
	b.mu.Unlock()
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	b.buffers = make(map[uuid.UUID][]byte)
	b.mu.Unlock()
	return nil
}

// Bytes returns a copy of the buffer's current content.
func (b *Backend) Bytes(buffer *metadata.RenderBuffer) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	backing, ok := b.buffers[buffer.ID]
	if !ok {
		return nil
	}
	out := make([]byte, len(backing))
	copy(out, backing)
	return out
}

// BufferCount returns the number of live buffers.
func (b *Backend) BufferCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}

// LoadRangeCount returns how many range uploads have been issued.
func (b *Backend) LoadRangeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadRangeCount
}

// CreateCount returns how many buffers have been created, including ones
// destroyed since.
func (b *Backend) CreateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createCount
}

// TransitionCount returns how many usage transitions have been issued.
func (b *Backend) TransitionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transitionCount
}
