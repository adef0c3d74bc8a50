package wavefront

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// maxLineSize bounds a single directive line.
const maxLineSize = 16 * 1024 * 1024

// byteOrderMark is stripped from the first line of a source.
const byteOrderMark = "\ufeff"

// bucketSet holds per-material triangle lists in first-use order.
type bucketSet struct {
	order []string
	lists map[string][]int
}

func (b *bucketSet) open(name string) {
	if b.lists == nil {
		b.lists = make(map[string][]int)
	}
	if _, ok := b.lists[name]; ok {
		return
	}
	b.lists[name] = nil
	b.order = append(b.order, name)
}

func (b *bucketSet) add(name string, ids ...int) {
	b.lists[name] = append(b.lists[name], ids...)
}

// take hands the lists off as submeshes and empties the set.
func (b *bucketSet) take() []Submesh {
	submeshes := make([]Submesh, len(b.order))
	for i, name := range b.order {
		submeshes[i] = Submesh{Material: name, Indices: b.lists[name]}
	}
	b.order = nil
	b.lists = nil
	return submeshes
}

// Assembler builds a Model from OBJ directive lines. It is stateful across
// one source and not safe for concurrent use; call Reset before reusing it
// for another source.
//
// Raw positions, texcoords and normals are kept for the whole source, so a
// later object may index vertices declared by an earlier one. Only the
// dedup table and material buckets start over with each mesh.
type Assembler struct {
	scale float32

	tok    Tokenizer
	corner []string
	face   []int

	positions []mgl32.Vec3
	texCoords []mgl32.Vec3
	normals   []mgl32.Vec3

	name     string
	group    string
	material string

	// o/g context in effect when the current mesh's first face arrived.
	meshName  string
	meshGroup string

	opened bool // bucket for material exists in the current mesh

	dedup   *dedupTable
	buckets bucketSet

	processingFaces bool
	line            int

	model *Model
}

// NewAssembler returns an assembler that multiplies positions by scale.
func NewAssembler(scale float32) *Assembler {
	a := &Assembler{scale: scale, dedup: newDedupTable()}
	a.Reset()
	return a
}

// Reset discards all state from a previous source.
func (a *Assembler) Reset() {
	a.positions = a.positions[:0]
	a.texCoords = a.texCoords[:0]
	a.normals = a.normals[:0]
	a.name, a.group = "", ""
	a.meshName, a.meshGroup = "", ""
	a.material = DefaultMaterialName
	a.opened = false
	a.dedup.reset()
	a.buckets = bucketSet{}
	a.processingFaces = false
	a.line = 0
	a.model = &Model{}
}

// ParseGeometry parses an OBJ source with a fresh Assembler.
func ParseGeometry(ctx context.Context, r io.Reader, scale float32) (*Model, error) {
	return NewAssembler(scale).Parse(ctx, r)
}

// Parse reads r to the end and returns the assembled model. ctx is checked
// once per line; on cancellation nothing is returned and the error matches
// both ErrCanceled and ctx.Err().
func (a *Assembler) Parse(ctx context.Context, r io.Reader) (*Model, error) {
	a.Reset()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		if err := a.ProcessLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading geometry: %w", err)
	}

	return a.Finish()
}

// ProcessLine consumes one directive line.
func (a *Assembler) ProcessLine(line string) error {
	a.line++
	if a.line == 1 {
		line = strings.TrimPrefix(line, byteOrderMark)
	}

	fields, offsets := a.tok.FieldsOffsets(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "o":
		a.name = optionalField(fields, 1)
	case "g":
		a.group = optionalField(fields, 1)
	case "v":
		if a.processingFaces {
			if err := a.finishMesh(); err != nil {
				return lineError(a.line, err)
			}
		}
		v, err := parseVec(fields, 3, 3)
		if err != nil {
			return lineError(a.line, fmt.Errorf("position: %w", err))
		}
		a.positions = append(a.positions, mgl32.Vec3{-v[0] * a.scale, v[1] * a.scale, v[2] * a.scale})
	case "vt":
		v, err := parseVec(fields, 2, 3)
		if err != nil {
			return lineError(a.line, fmt.Errorf("texcoord: %w", err))
		}
		a.texCoords = append(a.texCoords, v)
	case "vn":
		v, err := parseVec(fields, 3, 3)
		if err != nil {
			return lineError(a.line, fmt.Errorf("normal: %w", err))
		}
		a.normals = append(a.normals, mgl32.Vec3{-v[0], v[1], v[2]})
	case "f":
		if !a.processingFaces {
			a.meshName, a.meshGroup = a.name, a.group
			a.processingFaces = true
		}
		if !a.opened {
			a.buckets.open(a.material)
			a.opened = true
		}
		a.addFace(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return nil
		}
		a.material = fields[1]
		a.buckets.open(a.material)
		a.opened = true
	case "mtllib":
		a.model.MaterialLibrary = strings.TrimSpace(line[offsets[0]+len(fields[0]):])
	}
	return nil
}

// Finish finalizes the mesh in progress and returns the model. A source
// that declared no positions yields a model without meshes.
func (a *Assembler) Finish() (*Model, error) {
	if err := a.finishMesh(); err != nil {
		return nil, err
	}
	model := a.model
	a.model = &Model{}
	return model, nil
}

// addFace resolves the corners of one face and fan-triangulates them with
// reversed winding, which keeps faces front-facing after the x flip.
func (a *Assembler) addFace(corners []string) {
	a.face = a.face[:0]

	for _, c := range corners {
		a.corner = Split(a.corner, c, '/', true)
		if len(a.corner) == 0 {
			continue
		}

		pos, err := strconv.Atoi(a.corner[0])
		if err != nil {
			continue
		}
		tex := cornerIndex(a.corner, 1)
		norm := cornerIndex(a.corner, 2)

		key := VertexKey{
			Position: resolveIndex(pos, len(a.positions)),
			TexCoord: resolveIndex(tex, len(a.texCoords)),
			Normal:   resolveIndex(norm, len(a.normals)),
		}
		a.face = append(a.face, a.dedup.id(key))
	}

	f := a.face
	for k := 0; k+2 < len(f); k++ {
		a.buckets.add(a.material, f[2+k], f[1+k], f[0])
	}
}

// finishMesh moves the current dedup table and buckets into a new Mesh.
func (a *Assembler) finishMesh() error {
	if len(a.positions) == 0 {
		return nil
	}

	name, group := a.name, a.group
	if a.processingFaces {
		name, group = a.meshName, a.meshGroup
	}

	count := a.dedup.Len()
	mesh := &Mesh{
		Name:         name,
		Group:        group,
		Positions:    make([]mgl32.Vec3, count),
		TexCoords:    make([]mgl32.Vec3, count),
		Normals:      make([]mgl32.Vec3, count),
		HasTexCoords: len(a.texCoords) > 0,
		HasNormals:   len(a.normals) > 0,
	}

	for id, key := range a.dedup.keys {
		if key.Position < 0 || key.Position >= len(a.positions) {
			return fmt.Errorf("%w: position %d of %d", ErrIndexOutOfRange, key.Position+1, len(a.positions))
		}
		mesh.Positions[id] = a.positions[key.Position]

		if mesh.HasTexCoords {
			if key.TexCoord < 0 || key.TexCoord >= len(a.texCoords) {
				return fmt.Errorf("%w: texcoord %d of %d", ErrIndexOutOfRange, key.TexCoord+1, len(a.texCoords))
			}
			mesh.TexCoords[id] = a.texCoords[key.TexCoord]
		}
		if mesh.HasNormals {
			if key.Normal < 0 || key.Normal >= len(a.normals) {
				return fmt.Errorf("%w: normal %d of %d", ErrIndexOutOfRange, key.Normal+1, len(a.normals))
			}
			mesh.Normals[id] = a.normals[key.Normal]
		}
	}

	mesh.Submeshes = a.buckets.take()
	a.dedup.reset()
	a.opened = false
	a.processingFaces = false

	a.model.Meshes = append(a.model.Meshes, mesh)
	return nil
}

// cornerIndex parses sub-token i of a face corner, defaulting to 1.
func cornerIndex(corner []string, i int) int {
	if i >= len(corner) {
		return 1
	}
	v, err := strconv.Atoi(corner[i])
	if err != nil {
		return 1
	}
	return v
}

func optionalField(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// parseVec parses between required and limit floats following the
// directive. Missing optional components are zero.
func parseVec(fields []string, required, limit int) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	if len(fields)-1 < required {
		return v, fmt.Errorf("%w: want %d components, got %d", ErrMalformedNumericField, required, len(fields)-1)
	}
	for i := 0; i < limit && i+1 < len(fields); i++ {
		f, err := parseFloat(fields[i+1])
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// parseFloat accepts finite decimal numbers only: nan, inf and hex floats
// are malformed.
func parseFloat(s string) (float32, error) {
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumericField, s)
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumericField, s)
	}
	return float32(f), nil
}
