package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVertexFormatElementSize(t *testing.T) {
	assert.Equal(t, uint64(4), FORMAT_FLOAT32.ElementSize())
	assert.Equal(t, uint64(8), FORMAT_FLOAT32_2.ElementSize())
	assert.Equal(t, uint64(12), FORMAT_FLOAT32_3.ElementSize())
	assert.Equal(t, uint64(16), FORMAT_FLOAT32_4.ElementSize())
	assert.Equal(t, uint64(8), FORMAT_UINT16_4.ElementSize())
	assert.Equal(t, uint64(4), FORMAT_UINT32.ElementSize())
	assert.Equal(t, uint64(0), FORMAT_UNKNOWN.ElementSize())
}

func TestVertexSourceElementCount(t *testing.T) {
	s := VertexSource{Name: StreamPosition, Format: FORMAT_FLOAT32_3, Data: make([]byte, 36)}
	assert.Equal(t, 3, s.ElementCount())

	unknown := VertexSource{Name: "weights", Format: FORMAT_UNKNOWN, Data: make([]byte, 36)}
	assert.Equal(t, 0, unknown.ElementCount())
}

func TestIndexArrayCounts(t *testing.T) {
	assert.Equal(t, 3, PointIndices{1, 2, 3}.Count())
	assert.Equal(t, 4, LineIndices{{0, 1}, {1, 2}}.Count())
	assert.Equal(t, 6, TriangleIndices{{0, 1, 2}, {2, 1, 0}}.Count())
}

func TestIndexArrayFlattenRebases(t *testing.T) {
	assert.Equal(t, []uint32{5, 6, 7}, TriangleIndices{{0, 1, 2}}.flatten(5))
	assert.Equal(t, []uint32{10, 11, 11, 12}, LineIndices{{0, 1}, {1, 2}}.flatten(10))
	assert.Equal(t, []uint32{7, 9}, PointIndices{0, 2}.flatten(7))
	// Offset zero is the identity.
	assert.Equal(t, []uint32{0, 1, 2}, TriangleIndices{{0, 1, 2}}.flatten(0))
}

func TestHashVertexSourcesSensitivity(t *testing.T) {
	base := []VertexSource{
		{Name: StreamPosition, Format: FORMAT_FLOAT32_3, Data: Float32Bytes([]float32{1, 2, 3})},
		{Name: StreamTexcoord, Format: FORMAT_FLOAT32_2, Data: Float32Bytes([]float32{0, 1})},
	}
	assert.Equal(t, hashVertexSources(base), hashVertexSources(base))

	renamed := []VertexSource{
		{Name: "color", Format: base[0].Format, Data: base[0].Data},
		base[1],
	}
	assert.NotEqual(t, hashVertexSources(base), hashVertexSources(renamed))

	reformatted := []VertexSource{
		{Name: base[0].Name, Format: FORMAT_FLOAT32, Data: base[0].Data},
		base[1],
	}
	assert.NotEqual(t, hashVertexSources(base), hashVertexSources(reformatted))

	mutated := []VertexSource{
		{Name: base[0].Name, Format: base[0].Format, Data: Float32Bytes([]float32{1, 2, 4})},
		base[1],
	}
	assert.NotEqual(t, hashVertexSources(base), hashVertexSources(mutated))
}

func TestByteReinterpretHelpers(t *testing.T) {
	assert.Nil(t, Float32Bytes(nil))
	assert.Nil(t, Uint32Bytes(nil))

	f := Float32Bytes([]float32{1})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, f)

	u := Uint32Bytes([]uint32{0x01020304})
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, u)
}
