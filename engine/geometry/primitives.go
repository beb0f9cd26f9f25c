package geometry

import (
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/math"
)

// Stream names used by the built-in primitive generators.
const (
	StreamPosition = "position"
	StreamNormal   = "normal"
	StreamTexcoord = "texcoord"
)

/**
 * @brief Generates the vertex streams and triangle indices of a segmented
 * plane in the XY plane.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @return Per-stream vertex sources and triangle indices, ready for the pool.
 */
func GeneratePlaneSources(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32) ([]VertexSource, TriangleIndices) {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	vertexCount := xSegmentCount * ySegmentCount * 4 // 4 verts per segment
	indexCount := xSegmentCount * ySegmentCount * 6  // 6 indices per segment

	positions := make([]math.Vec3, vertexCount)
	normals := make([]math.Vec3, vertexCount)
	texcoords := make([]math.Vec2, vertexCount)
	indices := make(TriangleIndices, indexCount/3)

	// TODO: This generates extra vertices, but we can always deduplicate them later.
	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minY := (float32(y) * segHeight) - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := (float32(x) / float32(xSegmentCount)) * tileX
			minUVY := (float32(y) / float32(ySegmentCount)) * tileY
			maxUVX := (float32(x+1) / float32(xSegmentCount)) * tileX
			maxUVY := (float32(y+1) / float32(ySegmentCount)) * tileY

			vOffset := ((y * xSegmentCount) + x) * 4
			positions[vOffset+0] = math.NewVec3(minX, minY, 0)
			positions[vOffset+1] = math.NewVec3(maxX, maxY, 0)
			positions[vOffset+2] = math.NewVec3(minX, maxY, 0)
			positions[vOffset+3] = math.NewVec3(maxX, minY, 0)

			texcoords[vOffset+0] = math.NewVec2(minUVX, minUVY)
			texcoords[vOffset+1] = math.NewVec2(maxUVX, maxUVY)
			texcoords[vOffset+2] = math.NewVec2(minUVX, maxUVY)
			texcoords[vOffset+3] = math.NewVec2(maxUVX, minUVY)

			for i := uint32(0); i < 4; i++ {
				normals[vOffset+i] = math.NewVec3(0, 0, 1)
			}

			tOffset := ((y * xSegmentCount) + x) * 2
			indices[tOffset+0] = [3]uint32{vOffset + 0, vOffset + 1, vOffset + 2}
			indices[tOffset+1] = [3]uint32{vOffset + 0, vOffset + 3, vOffset + 1}
		}
	}

	sources := []VertexSource{
		{Name: StreamPosition, Format: FORMAT_FLOAT32_3, Data: Vec3Bytes(positions)},
		{Name: StreamNormal, Format: FORMAT_FLOAT32_3, Data: Vec3Bytes(normals)},
		{Name: StreamTexcoord, Format: FORMAT_FLOAT32_2, Data: Vec2Bytes(texcoords)},
	}
	return sources, indices
}

/**
 * @brief Generates the vertex streams and triangle indices of a box.
 *
 * @param width The overall width of the cube. Must be non-zero.
 * @param height The overall height of the cube. Must be non-zero.
 * @param depth The overall depth of the cube. Must be non-zero.
 * @param tileX The number of times the texture should tile across each face on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across each face on the y-axis. Must be non-zero.
 * @return Per-stream vertex sources and triangle indices, ready for the pool.
 */
func GenerateCubeSources(width, height, depth, tileX, tileY float32) ([]VertexSource, TriangleIndices) {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	halfWidth := width * 0.5
	halfHeight := height * 0.5
	halfDepth := depth * 0.5
	minX := -halfWidth
	minY := -halfHeight
	minZ := -halfDepth
	maxX := halfWidth
	maxY := halfHeight
	maxZ := halfDepth

	positions := make([]math.Vec3, 24) // 4 verts per side, 6 sides
	normals := make([]math.Vec3, 24)
	texcoords := make([]math.Vec2, 24)

	faces := []struct {
		corners [4]math.Vec3
		normal  math.Vec3
	}{
		// Front face
		{[4]math.Vec3{
			math.NewVec3(minX, minY, maxZ), math.NewVec3(maxX, maxY, maxZ),
			math.NewVec3(minX, maxY, maxZ), math.NewVec3(maxX, minY, maxZ),
		}, math.NewVec3(0, 0, 1)},
		// Back face
		{[4]math.Vec3{
			math.NewVec3(maxX, minY, minZ), math.NewVec3(minX, maxY, minZ),
			math.NewVec3(maxX, maxY, minZ), math.NewVec3(minX, minY, minZ),
		}, math.NewVec3(0, 0, -1)},
		// Left
		{[4]math.Vec3{
			math.NewVec3(minX, minY, minZ), math.NewVec3(minX, maxY, maxZ),
			math.NewVec3(minX, maxY, minZ), math.NewVec3(minX, minY, maxZ),
		}, math.NewVec3(-1, 0, 0)},
		// Right face
		{[4]math.Vec3{
			math.NewVec3(maxX, minY, maxZ), math.NewVec3(maxX, maxY, minZ),
			math.NewVec3(maxX, maxY, maxZ), math.NewVec3(maxX, minY, minZ),
		}, math.NewVec3(1, 0, 0)},
		// Bottom face
		{[4]math.Vec3{
			math.NewVec3(maxX, minY, maxZ), math.NewVec3(minX, minY, minZ),
			math.NewVec3(maxX, minY, minZ), math.NewVec3(minX, minY, maxZ),
		}, math.NewVec3(0, -1, 0)},
		// Top face
		{[4]math.Vec3{
			math.NewVec3(minX, maxY, maxZ), math.NewVec3(maxX, maxY, minZ),
			math.NewVec3(minX, maxY, minZ), math.NewVec3(maxX, maxY, maxZ),
		}, math.NewVec3(0, 1, 0)},
	}

	for f, face := range faces {
		vOffset := f * 4
		for i := 0; i < 4; i++ {
			positions[vOffset+i] = face.corners[i]
			normals[vOffset+i] = face.normal
		}
		texcoords[vOffset+0] = math.NewVec2(0, 0)
		texcoords[vOffset+1] = math.NewVec2(tileX, tileY)
		texcoords[vOffset+2] = math.NewVec2(0, tileY)
		texcoords[vOffset+3] = math.NewVec2(tileX, 0)
	}

	indices := make(TriangleIndices, 12) // 2 triangles per side, 6 sides
	for i := 0; i < 6; i++ {
		vOffset := uint32(i * 4)
		indices[i*2+0] = [3]uint32{vOffset + 0, vOffset + 1, vOffset + 2}
		indices[i*2+1] = [3]uint32{vOffset + 0, vOffset + 3, vOffset + 1}
	}

	sources := []VertexSource{
		{Name: StreamPosition, Format: FORMAT_FLOAT32_3, Data: Vec3Bytes(positions)},
		{Name: StreamNormal, Format: FORMAT_FLOAT32_3, Data: Vec3Bytes(normals)},
		{Name: StreamTexcoord, Format: FORMAT_FLOAT32_2, Data: Vec2Bytes(texcoords)},
	}
	return sources, indices
}
