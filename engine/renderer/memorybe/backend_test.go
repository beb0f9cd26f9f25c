package memorybe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

func TestCreateLoadAndRead(t *testing.T) {
	b := New()

	buf, err := b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, 16)
	require.NoError(t, err)
	assert.Equal(t, 1, b.BufferCount())
	assert.Equal(t, 1, b.CreateCount())
	assert.Equal(t, uint64(16), buf.TotalSize)

	require.NoError(t, b.RenderBufferLoadRange(buf, 4, []byte{1, 2, 3, 4}))
	got := b.Bytes(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0}, got)
	assert.Equal(t, 1, b.LoadRangeCount())
}

func TestLoadRangeBounds(t *testing.T) {
	b := New()

	buf, err := b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, 8)
	require.NoError(t, err)

	assert.Error(t, b.RenderBufferLoadRange(buf, 6, []byte{1, 2, 3, 4}))
	assert.NoError(t, b.RenderBufferLoadRange(buf, 4, []byte{1, 2, 3, 4}))
}

func TestLoadRangeUnknownBuffer(t *testing.T) {
	b := New()
	stray := &metadata.RenderBuffer{TotalSize: 8}
	assert.Error(t, b.RenderBufferLoadRange(stray, 0, []byte{1}))
	assert.Error(t, b.RenderBufferTransition(stray, metadata.RENDERBUFFER_TYPE_VERTEX))
}

func TestTransitionChangesType(t *testing.T) {
	b := New()

	buf, err := b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_STAGING, 8)
	require.NoError(t, err)
	require.NoError(t, b.RenderBufferTransition(buf, metadata.RENDERBUFFER_TYPE_VERTEX))
	assert.Equal(t, metadata.RENDERBUFFER_TYPE_VERTEX, buf.RenderBufferType)
	assert.Equal(t, 1, b.TransitionCount())
}

func TestDestroyRemovesBuffer(t *testing.T) {
	b := New()

	buf, err := b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, 8)
	require.NoError(t, err)
	b.RenderBufferDestroy(buf)
	assert.Equal(t, 0, b.BufferCount())
	assert.Equal(t, 1, b.CreateCount())
	assert.Nil(t, b.Bytes(buf))

	b.RenderBufferDestroy(nil) // must not panic
}

func TestShutdownDropsEverything(t *testing.T) {
	b := New()

	_, err := b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, 8)
	require.NoError(t, err)
	_, err = b.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, 8)
	require.NoError(t, err)

	require.NoError(t, b.Shutdown())
	assert.Equal(t, 0, b.BufferCount())
}
