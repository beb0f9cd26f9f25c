package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/geopool/engine/renderer/memorybe"
)

func TestGeneratePlaneSources(t *testing.T) {
	sources, indices := GeneratePlaneSources(2, 2, 2, 2, 1, 1)

	require.Len(t, sources, 3)
	assert.Equal(t, StreamPosition, sources[0].Name)
	assert.Equal(t, StreamNormal, sources[1].Name)
	assert.Equal(t, StreamTexcoord, sources[2].Name)

	// 4 segments, 4 vertices each.
	for _, s := range sources {
		assert.Equal(t, 16, s.ElementCount())
	}
	// 2 triangles per segment.
	assert.Equal(t, 24, indices.Count())

	for _, tri := range indices {
		for _, idx := range tri {
			assert.Less(t, idx, uint32(16))
		}
	}
}

func TestGeneratePlaneSourcesDefaultsBadParameters(t *testing.T) {
	sources, indices := GeneratePlaneSources(0, 0, 0, 0, 0, 0)
	for _, s := range sources {
		assert.Equal(t, 4, s.ElementCount())
	}
	assert.Equal(t, 6, indices.Count())
}

func TestGeneratePlaneSourcesDeterministic(t *testing.T) {
	a, _ := GeneratePlaneSources(3, 1, 2, 1, 1, 1)
	b, _ := GeneratePlaneSources(3, 1, 2, 1, 1, 1)
	assert.Equal(t, hashVertexSources(a), hashVertexSources(b))
}

func TestGenerateCubeSources(t *testing.T) {
	sources, indices := GenerateCubeSources(1, 1, 1, 1, 1)

	require.Len(t, sources, 3)
	for _, s := range sources {
		assert.Equal(t, 24, s.ElementCount())
	}
	// 12 triangles.
	assert.Equal(t, 36, indices.Count())

	for _, tri := range indices {
		for _, idx := range tri {
			assert.Less(t, idx, uint32(24))
		}
	}
}

func TestGeneratedPrimitivesFeedThePool(t *testing.T) {
	pool := NewGeometryPool(memorybe.New(), pooledConfig())

	sources, indices := GenerateCubeSources(1, 1, 1, 1, 1)
	vh, err := pool.AllocateVertices("cube", sources, nil)
	require.NoError(t, err)
	ih, err := pool.AllocateIndices("cube", indices, vh.GetStartVertex(), nil)
	require.NoError(t, err)

	require.NoError(t, pool.Commit())
	assert.Equal(t, 24, vh.GetNumVertices())
	assert.Equal(t, 36, ih.GetNumIndices())
	assert.NotNil(t, vh.GetBuffer(StreamPosition))
	assert.NotNil(t, ih.GetBuffer())
}
