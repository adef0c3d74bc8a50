package loader

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/objparse/pkg/wavefront"
)

// Asset is a loaded model with its material library.
type Asset struct {
	ID          uuid.UUID
	Path        string
	LibraryPath string // "" when the default library is in use
	Model       *wavefront.Model
	Library     *wavefront.Library
	Elapsed     time.Duration

	// LibraryErr wraps ErrFileNotFound when the declared library is missing.
	LibraryErr error

	// Opaque clones standing in for material names the library lacks.
	fallbacks map[string]*wavefront.Material
}

func newAsset(id uuid.UUID, path, libPath string, model *wavefront.Model, lib *wavefront.Library, opaque *wavefront.Material) *Asset {
	a := &Asset{
		ID:          id,
		Path:        path,
		LibraryPath: libPath,
		Model:       model,
		Library:     lib,
		fallbacks:   make(map[string]*wavefront.Material),
	}
	for _, mesh := range model.Meshes {
		for _, sub := range mesh.Submeshes {
			if _, ok := lib.Material(sub.Material); ok {
				continue
			}
			if _, ok := a.fallbacks[sub.Material]; ok {
				continue
			}
			m := opaque.Clone()
			m.Name = sub.Material
			a.fallbacks[sub.Material] = m
		}
	}
	return a
}

// Material returns the descriptor bound to name, falling back to a default
// opaque descriptor for names the library does not define.
func (a *Asset) Material(name string) *wavefront.Material {
	if m, ok := a.Library.Material(name); ok {
		return m
	}
	return a.fallbacks[name]
}

// MaterialsFor returns one descriptor per submesh of mesh, in submesh order.
func (a *Asset) MaterialsFor(mesh *wavefront.Mesh) []*wavefront.Material {
	materials := make([]*wavefront.Material, len(mesh.Submeshes))
	for i, sub := range mesh.Submeshes {
		materials[i] = a.Material(sub.Material)
	}
	return materials
}

// NeedsTangents reports whether any material bound to mesh has a bump map.
func (a *Asset) NeedsTangents(mesh *wavefront.Mesh) bool {
	for _, m := range a.MaterialsFor(mesh) {
		if m == nil {
			continue
		}
		if _, ok := m.Texture(wavefront.SlotBumpMap); ok {
			return true
		}
	}
	return false
}

// MissingMaterials returns the material names used by the model that the
// library does not define, sorted.
func (a *Asset) MissingMaterials() []string {
	names := make([]string, 0, len(a.fallbacks))
	for name := range a.fallbacks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
