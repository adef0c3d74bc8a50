// Package wavefront parses Wavefront OBJ geometry and MTL material libraries
// into render-ready meshes: deduplicated vertex arrays, per-material triangle
// lists and named material descriptors.
package wavefront

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaterialName names the bucket used by faces that precede any
// usemtl directive, and the single descriptor of an absent library.
const DefaultMaterialName = "Material"

// maxIndex16 is the first vertex count that needs 32-bit indices.
const maxIndex16 = 65536

// Submesh is one material's triangle list. Every three consecutive indices
// form a triangle.
type Submesh struct {
	Material string
	Indices  []int
}

// Mesh is one finalized segment of a model.
type Mesh struct {
	Name  string // o directive, empty if none
	Group string // g directive, empty if none

	Positions []mgl32.Vec3
	TexCoords []mgl32.Vec3 // third component is w, 0 when absent
	Normals   []mgl32.Vec3

	HasTexCoords bool
	HasNormals   bool

	Submeshes []Submesh
}

// Model is the result of parsing one geometry source.
type Model struct {
	Meshes []*Mesh

	// MaterialLibrary is the mtllib file name, empty if none was declared.
	MaterialLibrary string
}

// VertexCount returns the number of distinct vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles across all submeshes.
func (m *Mesh) TriangleCount() int {
	total := 0
	for _, sm := range m.Submeshes {
		total += len(sm.Indices) / 3
	}
	return total
}

// IndexWidth returns 16 or 32, the narrowest index size able to address
// every vertex of the mesh.
func (m *Mesh) IndexWidth() int {
	if m.VertexCount() >= maxIndex16 {
		return 32
	}
	return 16
}

// DisplayName returns the object name, falling back to the group name.
func (m *Mesh) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Group
}

// MaterialNames returns the submesh material names in order.
func (m *Mesh) MaterialNames() []string {
	names := make([]string, len(m.Submeshes))
	for i, sm := range m.Submeshes {
		names[i] = sm.Material
	}
	return names
}

// Bounds returns the axis-aligned min and max corners of the positions.
// ok is false for an empty mesh.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	if len(m.Positions) == 0 {
		return lo, hi, false
	}
	inf := float32(math.Inf(1))
	lo = mgl32.Vec3{inf, inf, inf}
	hi = mgl32.Vec3{-inf, -inf, -inf}
	for _, p := range m.Positions {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return lo, hi, true
}

// VertexCount returns the total vertex count of all meshes.
func (m *Model) VertexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += mesh.VertexCount()
	}
	return total
}

// TriangleCount returns the total triangle count of all meshes.
func (m *Model) TriangleCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += mesh.TriangleCount()
	}
	return total
}

// Bounds returns the combined bounds of all non-empty meshes.
func (m *Model) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	for _, mesh := range m.Meshes {
		meshLo, meshHi, meshOK := mesh.Bounds()
		if !meshOK {
			continue
		}
		if !ok {
			lo, hi, ok = meshLo, meshHi, true
			continue
		}
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], meshLo[i])
			hi[i] = max(hi[i], meshHi[i])
		}
	}
	return lo, hi, ok
}
