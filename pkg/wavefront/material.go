package wavefront

import (
	"maps"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Slot is a material property a template may or may not expose.
type Slot uint8

// Material slots. Assigning to a slot the template lacks is a no-op.
const (
	SlotColor Slot = 1 << iota
	SlotSpecularColor
	SlotDiffuseMap
	SlotBumpMap
	SlotSpecularGlossMap

	AllSlots = SlotColor | SlotSpecularColor | SlotDiffuseMap | SlotBumpMap | SlotSpecularGlossMap
)

var slotNames = []struct {
	slot Slot
	name string
}{
	{SlotColor, "color"},
	{SlotSpecularColor, "specular_color"},
	{SlotDiffuseMap, "diffuse_map"},
	{SlotBumpMap, "bump_map"},
	{SlotSpecularGlossMap, "specular_gloss_map"},
}

// Names returns the names of the slots set in s, in declaration order.
// Each name round-trips through ParseSlot.
func (s Slot) Names() []string {
	var names []string
	for _, sn := range slotNames {
		if s&sn.slot != 0 {
			names = append(names, sn.name)
		}
	}
	return names
}

// String returns the slot names joined with "|".
func (s Slot) String() string {
	names := s.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseSlot returns the slot with the given name.
func ParseSlot(name string) (Slot, bool) {
	for _, sn := range slotNames {
		if sn.name == name {
			return sn.slot, true
		}
	}
	return 0, false
}

// Texture is a resolved image reference. Handle is whatever the
// TextureResolver returned and is nil when resolution failed or no
// resolver was configured.
type Texture struct {
	Path   string
	Handle any
}

// Material describes the surface appearance of a named material.
type Material struct {
	Name string

	Color         mgl32.Vec4 // base RGBA, alpha carries opacity
	SpecularColor mgl32.Vec3
	Glossiness    float32
	Opacity       float32
	Transparent   bool

	Textures map[Slot]Texture

	slots Slot
}

// NewTemplate returns an opaque white template exposing the given slots.
func NewTemplate(slots Slot) *Material {
	return &Material{
		Color:   mgl32.Vec4{1, 1, 1, 1},
		Opacity: 1,
		slots:   slots,
	}
}

// DefaultOpaqueTemplate returns the template used when none is configured.
func DefaultOpaqueTemplate() *Material {
	m := NewTemplate(AllSlots)
	m.SpecularColor = mgl32.Vec3{0.2, 0.2, 0.2}
	m.Glossiness = 0.5
	return m
}

// DefaultTransparentTemplate returns the transparent counterpart of
// DefaultOpaqueTemplate.
func DefaultTransparentTemplate() *Material {
	m := DefaultOpaqueTemplate()
	m.Transparent = true
	return m
}

// Slots returns the slots this material exposes.
func (m *Material) Slots() Slot {
	return m.slots
}

// HasSlot reports whether the material exposes s.
func (m *Material) HasSlot(s Slot) bool {
	return m.slots&s == s
}

// Clone returns a deep copy.
func (m *Material) Clone() *Material {
	c := *m
	c.Textures = maps.Clone(m.Textures)
	return &c
}

// Texture returns the texture in slot s.
func (m *Material) Texture(s Slot) (Texture, bool) {
	t, ok := m.Textures[s]
	return t, ok
}

func (m *Material) setTexture(s Slot, t Texture) {
	if m.Textures == nil {
		m.Textures = make(map[Slot]Texture)
	}
	m.Textures[s] = t
}
