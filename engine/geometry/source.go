package geometry

import (
	"unsafe"

	"github.com/spaghettifunk/geopool/engine/math"
)

// VertexFormat describes the tuple type of one vertex attribute stream.
// The element byte size is derived from it, never supplied by callers.
type VertexFormat int

const (
	FORMAT_UNKNOWN VertexFormat = iota
	FORMAT_FLOAT32
	FORMAT_FLOAT32_2
	FORMAT_FLOAT32_3
	FORMAT_FLOAT32_4
	FORMAT_UINT16_4
	FORMAT_UINT32
)

// ElementSize returns the byte size of one element of this format.
func (f VertexFormat) ElementSize() uint64 {
	switch f {
	case FORMAT_FLOAT32:
		return 4
	case FORMAT_FLOAT32_2:
		return 8
	case FORMAT_FLOAT32_3:
		return 12
	case FORMAT_FLOAT32_4:
		return 16
	case FORMAT_UINT16_4:
		return 8
	case FORMAT_UINT32:
		return 4
	default:
		return 0
	}
}

func (f VertexFormat) String() string {
	switch f {
	case FORMAT_FLOAT32:
		return "float32"
	case FORMAT_FLOAT32_2:
		return "float32x2"
	case FORMAT_FLOAT32_3:
		return "float32x3"
	case FORMAT_FLOAT32_4:
		return "float32x4"
	case FORMAT_UINT16_4:
		return "uint16x4"
	case FORMAT_UINT32:
		return "uint32"
	default:
		return "unknown"
	}
}

// VertexSource is one named attribute stream supplied by the traversal for
// one primitive (positions, normals, texcoords, ...). The Data slice must
// stay untouched by the caller until the next Commit consumes it.
type VertexSource struct {
	Name   string
	Format VertexFormat
	Data   []byte
}

// ElementCount returns the number of elements held by the stream.
func (s *VertexSource) ElementCount() int {
	size := s.Format.ElementSize()
	if size == 0 {
		return 0
	}
	return len(s.Data) / int(size)
}

// IndexArray is the tagged index payload accepted by AllocateIndices.
// Exactly three variants exist, one per supported topology; the interface
// is sealed so no fourth variant can appear without the pool knowing.
type IndexArray interface {
	// Count returns the total number of scalar index values.
	Count() int

	isIndexArray()
}

// PointIndices is a flat list of indices for point topology.
type PointIndices []uint32

// LineIndices holds one 2-tuple per line segment.
type LineIndices [][2]uint32

// TriangleIndices holds one 3-tuple per triangle.
type TriangleIndices [][3]uint32

func (p PointIndices) Count() int    { return len(p) }
func (l LineIndices) Count() int     { return len(l) * 2 }
func (t TriangleIndices) Count() int { return len(t) * 3 }

func (p PointIndices) isIndexArray()    {}
func (l LineIndices) isIndexArray()     {}
func (t TriangleIndices) isIndexArray() {}

// flatten produces the flat, rebased, GPU-ready payload of the variant.
// Every index is biased by startVertex so the result is correct for vertex
// data living at a non-zero offset inside a shared pool.
func (p PointIndices) flatten(startVertex uint32) []uint32 {
	out := make([]uint32, len(p))
	for i, v := range p {
		out[i] = v + startVertex
	}
	return out
}

func (l LineIndices) flatten(startVertex uint32) []uint32 {
	out := make([]uint32, len(l)*2)
	for i, seg := range l {
		out[i*2+0] = seg[0] + startVertex
		out[i*2+1] = seg[1] + startVertex
	}
	return out
}

func (t TriangleIndices) flatten(startVertex uint32) []uint32 {
	out := make([]uint32, len(t)*3)
	for i, tri := range t {
		out[i*3+0] = tri[0] + startVertex
		out[i*3+1] = tri[1] + startVertex
		out[i*3+2] = tri[2] + startVertex
	}
	return out
}

// Float32Bytes reinterprets a float32 slice as its raw bytes.
func Float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// Vec2Bytes reinterprets a Vec2 slice as its raw bytes.
func Vec2Bytes(v []math.Vec2) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

// Vec3Bytes reinterprets a Vec3 slice as its raw bytes.
func Vec3Bytes(v []math.Vec3) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*12)
}

// Uint32Bytes reinterprets a uint32 slice as its raw bytes.
func Uint32Bytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
