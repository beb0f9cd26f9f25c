package geometry

import (
	"encoding/binary"
	"hash/fnv"
)

// hashBytes digests a payload with 64-bit FNV-1a.
func hashBytes(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// hashVertexSources folds every stream's (name, format, payload hash) into
// one combined digest. Sources must already be in the deterministic stream
// order, so callers that enumerate streams differently still agree on the
// combined hash.
func hashVertexSources(sources []VertexSource) uint64 {
	h := fnv.New64a()
	var scratch [8]byte
	for i := range sources {
		h.Write([]byte(sources[i].Name))
		binary.LittleEndian.PutUint64(scratch[:], uint64(sources[i].Format))
		h.Write(scratch[:])
		binary.LittleEndian.PutUint64(scratch[:], hashBytes(sources[i].Data))
		h.Write(scratch[:])
	}
	return h.Sum64()
}
