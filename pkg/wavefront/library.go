package wavefront

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// OpaqueThreshold is the opacity at or above which a material stays opaque.
const OpaqueThreshold = 0.9999

// DefaultTextureExtensions lists the image extensions accepted by default.
var DefaultTextureExtensions = []string{".jpg", ".png"}

// TextureResolver turns a texture path from a material library into an
// opaque image handle. Implementations shared between parsers must be safe
// for concurrent use.
type TextureResolver interface {
	ResolveTexture(path string) (any, error)
}

// TextureResolverFunc adapts a function to TextureResolver.
type TextureResolverFunc func(path string) (any, error)

// ResolveTexture calls f(path).
func (f TextureResolverFunc) ResolveTexture(path string) (any, error) {
	return f(path)
}

// Library is the result of parsing one material library.
type Library struct {
	Materials map[string]*Material
	Names     []string // declaration order

	// TextureErrors combines every texture the resolver failed on. The
	// affected slots keep their path with a nil handle.
	TextureErrors error
}

// Material returns the descriptor with the given name.
func (l *Library) Material(name string) (*Material, bool) {
	m, ok := l.Materials[name]
	return m, ok
}

func (l *Library) add(m *Material) {
	if _, ok := l.Materials[m.Name]; !ok {
		l.Names = append(l.Names, m.Name)
	}
	l.Materials[m.Name] = m
}

// DefaultLibrary returns the library used when a model declares none: a
// single DefaultMaterialName descriptor cloned from opaque.
func DefaultLibrary(opaque *Material) *Library {
	lib := &Library{Materials: make(map[string]*Material)}
	m := opaque.Clone()
	m.Name = DefaultMaterialName
	lib.add(m)
	return lib
}

// LibraryParser builds material descriptors from an MTL source. Every
// newmtl starts from a clone of Opaque; the first d or Tr below
// OpaqueThreshold replaces the descriptor with a clone of Transparent.
type LibraryParser struct {
	Opaque      *Material
	Transparent *Material

	// Resolver is optional. Without one textures keep only their path.
	Resolver TextureResolver

	// Extensions lists accepted texture extensions, compared without regard
	// to case. Nil means DefaultTextureExtensions.
	Extensions []string

	tok     Tokenizer
	pathTok Tokenizer

	lib      *Library
	current  *Material
	promoted bool
	line     int
}

// NewLibraryParser returns a parser cloning the given templates.
func NewLibraryParser(opaque, transparent *Material, resolver TextureResolver) *LibraryParser {
	return &LibraryParser{
		Opaque:      opaque,
		Transparent: transparent,
		Resolver:    resolver,
	}
}

// ParseLibrary is a convenience wrapper around a one-shot LibraryParser.
func ParseLibrary(ctx context.Context, r io.Reader, opaque, transparent *Material, resolver TextureResolver) (*Library, error) {
	return NewLibraryParser(opaque, transparent, resolver).Parse(ctx, r)
}

// Parse reads an MTL source to the end.
func (p *LibraryParser) Parse(ctx context.Context, r io.Reader) (*Library, error) {
	p.lib = &Library{Materials: make(map[string]*Material)}
	p.current = nil
	p.promoted = false
	p.line = 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		p.line++
		if err := p.processLine(scanner.Text()); err != nil {
			return nil, lineError(p.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading material library: %w", err)
	}

	lib := p.lib
	p.lib, p.current = nil, nil
	return lib, nil
}

func (p *LibraryParser) processLine(line string) error {
	if p.line == 1 {
		line = strings.TrimPrefix(line, byteOrderMark)
	}
	fields := p.tok.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	if fields[0] == "newmtl" {
		if len(fields) < 2 {
			return fmt.Errorf("newmtl: %w", ErrMissingName)
		}
		p.current = p.Opaque.Clone()
		p.current.Name = fields[1]
		p.current.Glossiness = 0
		p.promoted = false
		p.lib.add(p.current)
		return nil
	}

	// Property directives outside a newmtl block have nothing to apply to.
	if p.current == nil {
		return nil
	}

	switch fields[0] {
	case "Kd":
		if !p.current.HasSlot(SlotColor) {
			return nil
		}
		c, err := parseVec(fields, 3, 3)
		if err != nil {
			return fmt.Errorf("Kd: %w", err)
		}
		p.current.Color = c.Vec4(p.current.Color[3])
	case "Ks":
		if !p.current.HasSlot(SlotSpecularColor) {
			return nil
		}
		c, err := parseVec(fields, 3, 3)
		if err != nil {
			return fmt.Errorf("Ks: %w", err)
		}
		p.current.SpecularColor = c
	case "map_Kd":
		p.assignTexture(SlotDiffuseMap, line)
	case "bump", "map_bump":
		p.assignTexture(SlotBumpMap, line)
	case "map_Ks":
		p.assignTexture(SlotSpecularGlossMap, line)
	case "d", "Tr":
		if p.promoted {
			return nil
		}
		if len(fields) < 2 {
			return fmt.Errorf("%s: %w: missing value", fields[0], ErrMalformedNumericField)
		}
		v, err := parseFloat(fields[1])
		if err != nil {
			return fmt.Errorf("%s: %w", fields[0], err)
		}
		if fields[0] == "Tr" {
			v = 1 - v
		}
		p.applyOpacity(v)
	}
	return nil
}

// applyOpacity promotes the current descriptor to a transparent clone when
// opacity is below OpaqueThreshold. Properties assigned before promotion are
// not carried over; only the name and opacity are.
func (p *LibraryParser) applyOpacity(opacity float32) {
	if opacity >= OpaqueThreshold {
		return
	}
	p.promoted = true

	next := p.Transparent.Clone()
	next.Name = p.current.Name
	next.Transparent = true
	next.Opacity = opacity
	if next.HasSlot(SlotColor) {
		next.Color[3] = opacity
	}

	p.lib.Materials[next.Name] = next
	p.current = next
}

func (p *LibraryParser) assignTexture(slot Slot, line string) {
	if !p.current.HasSlot(slot) {
		return
	}
	path := p.texturePath(line)
	if !p.acceptExtension(path) {
		return
	}

	tex := Texture{Path: path}
	if p.Resolver != nil {
		handle, err := p.Resolver.ResolveTexture(path)
		if err != nil {
			p.lib.TextureErrors = multierr.Append(p.lib.TextureErrors,
				fmt.Errorf("line %d: %s %q: %w", p.line, p.current.Name, path, err))
		} else {
			tex.Handle = handle
		}
	}
	p.current.setTexture(slot, tex)
}

// texturePath returns the file name of a map directive: everything after
// the last "-option" and its single argument, so names may contain spaces.
func (p *LibraryParser) texturePath(line string) string {
	fields, offsets := p.pathTok.FieldsOffsets(line)

	lastOption := -1
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") {
			lastOption = i
		}
	}
	// Without options this is the directive itself.
	last := lastOption + 1
	if last >= len(fields) {
		return ""
	}
	return strings.TrimSpace(line[offsets[last]+len(fields[last]):])
}

func (p *LibraryParser) acceptExtension(path string) bool {
	exts := p.Extensions
	if exts == nil {
		exts = DefaultTextureExtensions
	}
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
