package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/korean"

	"github.com/Faultbox/objparse/internal/config"
	"github.com/Faultbox/objparse/internal/texture"
	"github.com/Faultbox/objparse/pkg/wavefront"
)

const crateOBJ = `mtllib scene.mtl
o Crate
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vt 1 0
vt 0 1
vt 1 1
usemtl wood
f 1/1 2/2 4/4 3/3
usemtl ghost
f 1/1 2/2 3/3
usemtl undefined
f 2/2 4/4 3/3
`

const crateMTL = `newmtl wood
Kd 0.6 0.4 0.2
map_Kd textures/wood.png
bump wood_n.png

newmtl ghost
d 0.5
map_Kd missing.png
`

func pngBytes(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.String()
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func crateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"crate.obj":         crateOBJ,
		"scene.mtl":         crateMTL,
		"textures/wood.png": pngBytes(t, 2, 2),
		"wood_n.png":        pngBytes(t, 1, 1),
	})
	return dir
}

func TestLoad(t *testing.T) {
	dir := crateDir(t)
	core, logs := observer.New(zap.DebugLevel)

	asset, err := Load(context.Background(), filepath.Join(dir, "crate.obj"), Options{
		Decode: true,
		Logger: zap.New(core),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if asset.LibraryPath != filepath.Join(dir, "scene.mtl") {
		t.Errorf("expected library path %s, got %s", filepath.Join(dir, "scene.mtl"), asset.LibraryPath)
	}
	if len(asset.Model.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(asset.Model.Meshes))
	}
	mesh := asset.Model.Meshes[0]
	if mesh.Name != "Crate" {
		t.Errorf("expected mesh Crate, got %s", mesh.Name)
	}

	materials := asset.MaterialsFor(mesh)
	if len(materials) != 3 {
		t.Fatalf("expected 3 materials, got %d", len(materials))
	}

	wood := materials[0]
	if wood.Name != "wood" {
		t.Errorf("expected wood, got %s", wood.Name)
	}
	diffuse, ok := wood.Texture(wavefront.SlotDiffuseMap)
	if !ok {
		t.Fatal("expected wood diffuse map")
	}
	img, ok := diffuse.Handle.(*texture.Image)
	if !ok {
		t.Fatalf("expected *texture.Image handle, got %T", diffuse.Handle)
	}
	if img.Size() != (image.Point{X: 2, Y: 2}) {
		t.Errorf("expected 2x2 texture, got %v", img.Size())
	}

	if !materials[1].Transparent || materials[1].Name != "ghost" {
		t.Errorf("expected transparent ghost, got %+v", materials[1])
	}

	fallback := materials[2]
	if fallback.Name != "undefined" || fallback.Transparent {
		t.Errorf("expected opaque fallback named undefined, got %+v", fallback)
	}
	if asset.Material("undefined") != fallback {
		t.Error("expected the same fallback descriptor on every lookup")
	}
	if !reflect.DeepEqual(asset.MissingMaterials(), []string{"undefined"}) {
		t.Errorf("expected missing [undefined], got %v", asset.MissingMaterials())
	}

	if !asset.NeedsTangents(mesh) {
		t.Error("expected tangents for a bump-mapped material")
	}

	texErrs := multierr.Errors(asset.Library.TextureErrors)
	if len(texErrs) != 1 || !errors.Is(texErrs[0], texture.ErrNotFound) {
		t.Errorf("expected one texture.ErrNotFound, got %v", asset.Library.TextureErrors)
	}

	if logs.FilterMessage("texture not resolved").Len() != 1 {
		t.Errorf("expected one texture warning, got %d", logs.FilterMessage("texture not resolved").Len())
	}
	if logs.FilterMessage("materials not defined in library, using defaults").Len() != 1 {
		t.Error("expected a missing materials warning")
	}
	tagged := logs.FilterField(zap.String("load_id", asset.ID.String())).Len()
	if tagged != logs.Len() {
		t.Errorf("expected every entry tagged with load_id, got %d of %d", tagged, logs.Len())
	}
}

func TestLoad_NoTangentsWithoutBump(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"m.obj": "mtllib m.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl plain\nf 1 2 3\n",
		"m.mtl": "newmtl plain\nKd 1 0 0\n",
	})

	asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if asset.NeedsTangents(asset.Model.Meshes[0]) {
		t.Error("expected no tangents without a bump map")
	}
	if len(asset.MissingMaterials()) != 0 {
		t.Errorf("expected no missing materials, got %v", asset.MissingMaterials())
	}
}

func TestLoad_Charset(t *testing.T) {
	enc := korean.EUCKR.NewEncoder()
	obj, err := enc.String("mtllib 나무.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl 나무\nf 1 2 3\n")
	if err != nil {
		t.Fatal(err)
	}
	mtl, err := enc.String("newmtl 나무\nmap_Kd 나무.png\n")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"m.obj":  obj,
		"나무.mtl": mtl,
		"나무.png": pngBytes(t, 1, 1),
	})

	asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{Charset: "euc-kr"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(asset.MissingMaterials()) != 0 {
		t.Errorf("expected no missing materials, got %v", asset.MissingMaterials())
	}
	m, ok := asset.Library.Material("나무")
	if !ok {
		t.Fatalf("expected material 나무, got %v", asset.Library.Names)
	}
	if tex, ok := m.Texture(wavefront.SlotDiffuseMap); !ok || tex.Handle == nil {
		t.Errorf("expected resolved diffuse map, got %+v", tex)
	}

	if _, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{Charset: "klingon"}); err == nil {
		t.Error("expected error for unknown charset")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	asset, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.obj"), Options{})
	if asset != nil {
		t.Error("expected no asset")
	}
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestLoad_DefaultLibrary(t *testing.T) {
	tests := []struct {
		name    string
		library string // declared library, "" for none
	}{
		{"missing library", "nope.mtl"},
		{"missing library in subdirectory", "mat/nope.mtl"},
		{"no library", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
			if tt.library != "" {
				obj = "mtllib " + tt.library + "\n" + obj
			}
			writeFiles(t, dir, map[string]string{"m.obj": obj})
			core, logs := observer.New(zap.DebugLevel)

			asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{Logger: zap.New(core)})
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if asset.LibraryPath != "" {
				t.Errorf("expected no library path, got %s", asset.LibraryPath)
			}
			if !reflect.DeepEqual(asset.Library.Names, []string{wavefront.DefaultMaterialName}) {
				t.Errorf("expected default library, got %v", asset.Library.Names)
			}

			materials := asset.MaterialsFor(asset.Model.Meshes[0])
			if len(materials) != 1 || materials[0].Name != wavefront.DefaultMaterialName {
				t.Errorf("expected the default material, got %v", materials)
			}
			if len(asset.MissingMaterials()) != 0 {
				t.Errorf("expected no fallbacks, got %v", asset.MissingMaterials())
			}

			warned := logs.FilterMessage("material library not found, using default").Len() == 1
			if warned != (tt.library != "") {
				t.Errorf("expected warning=%v, got %v", tt.library != "", warned)
			}

			if tt.library == "" {
				if asset.LibraryErr != nil {
					t.Errorf("expected no library error, got %v", asset.LibraryErr)
				}
				return
			}
			if !errors.Is(asset.LibraryErr, ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound, got %v", asset.LibraryErr)
			}
			libPath := filepath.Join(dir, filepath.FromSlash(tt.library))
			if asset.LibraryErr != nil && !strings.Contains(asset.LibraryErr.Error(), libPath) {
				t.Errorf("expected %s in %q", libPath, asset.LibraryErr)
			}
		})
	}
}

func TestLoad_Scale(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"m.obj": "v 1 2 3\nv 0 0 0\nv 0 1 0\nf 1 2 3\n"})

	asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{Scale: 2})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mesh := asset.Model.Meshes[0]
	if mesh.Positions[0] != (mgl32.Vec3{-2, 4, 6}) {
		t.Errorf("expected (-2, 4, 6), got %v", mesh.Positions[0])
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		expected error
	}{
		{
			name:     "malformed geometry",
			files:    map[string]string{"m.obj": "v 0 zero 0\n"},
			expected: wavefront.ErrMalformedNumericField,
		},
		{
			name:     "index out of range",
			files:    map[string]string{"m.obj": "v 0 0 0\nf 1 2 3\n"},
			expected: wavefront.ErrIndexOutOfRange,
		},
		{
			name: "malformed library",
			files: map[string]string{
				"m.obj": "mtllib m.mtl\nv 0 0 0\n",
				"m.mtl": "newmtl a\nKd 1 x 1\n",
			},
			expected: wavefront.ErrMalformedNumericField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{})
			if asset != nil {
				t.Error("expected no asset")
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	dir := crateDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	asset, err := Load(ctx, filepath.Join(dir, "crate.obj"), Options{})
	if asset != nil {
		t.Error("expected no asset after cancellation")
	}
	if !errors.Is(err, wavefront.ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestLoad_SearchPaths(t *testing.T) {
	dir := t.TempDir()
	shared := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"m.obj": "mtllib m.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl a\nf 1 2 3\n",
		"m.mtl": "newmtl a\nmap_Kd common.png\n",
	})
	writeFiles(t, shared, map[string]string{"common.png": pngBytes(t, 1, 1)})

	asset, err := Load(context.Background(), filepath.Join(dir, "m.obj"), Options{SearchPaths: []string{shared}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if asset.Library.TextureErrors != nil {
		t.Errorf("expected texture from search path, got %v", asset.Library.TextureErrors)
	}
	tex, _ := asset.Material("a").Texture(wavefront.SlotDiffuseMap)
	img, ok := tex.Handle.(*texture.Image)
	if !ok || img.Img != nil {
		t.Errorf("expected raw undecoded texture, got %+v", tex.Handle)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	obj := "mtllib shared.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl a\nf 1 2 3\n"
	writeFiles(t, dir, map[string]string{
		"a.obj":      obj,
		"b.obj":      obj,
		"shared.mtl": "newmtl a\nmap_Kd tex.png\n",
		"tex.png":    pngBytes(t, 1, 1),
	})

	cache := texture.NewCache()
	paths := []string{
		filepath.Join(dir, "a.obj"),
		filepath.Join(dir, "missing.obj"),
		filepath.Join(dir, "b.obj"),
	}

	assets, err := LoadAll(context.Background(), paths, Options{Cache: cache, Decode: true, Workers: 2})
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound in batch error, got %v", err)
	}
	if len(multierr.Errors(err)) != 1 {
		t.Errorf("expected 1 failure, got %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("expected 3 results, got %d", len(assets))
	}
	if assets[0] == nil || assets[2] == nil || assets[1] != nil {
		t.Fatalf("expected results in input order with nil for the failure, got %v", assets)
	}
	if assets[0].ID == assets[2].ID {
		t.Error("expected distinct load ids")
	}

	texA, _ := assets[0].Material("a").Texture(wavefront.SlotDiffuseMap)
	texB, _ := assets[2].Material("a").Texture(wavefront.SlotDiffuseMap)
	if texA.Handle == nil || texA.Handle != texB.Handle {
		t.Error("expected both models to share one cached texture")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached texture, got %d", cache.Len())
	}
}

func TestLoadAll_FailFast(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"bad.obj": "v x\n"})

	_, err := LoadAll(context.Background(), []string{filepath.Join(dir, "bad.obj")}, Options{FailFast: true})
	if !errors.Is(err, wavefront.ErrMalformedNumericField) {
		t.Errorf("expected ErrMalformedNumericField, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Parse.Scale = 0.5
	cfg.Textures.SearchPaths = []string{"/textures"}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	if opts.Scale != 0.5 {
		t.Errorf("expected scale 0.5, got %f", opts.Scale)
	}
	if !opts.Decode {
		t.Error("expected decoding enabled")
	}
	if opts.Cache == nil {
		t.Error("expected a shared cache")
	}
	if opts.Opaque.Transparent || !opts.Transparent.Transparent {
		t.Error("expected opaque and transparent templates")
	}
	if !reflect.DeepEqual(opts.SearchPaths, []string{"/textures"}) {
		t.Errorf("expected search paths [/textures], got %v", opts.SearchPaths)
	}

	cfg.Materials.Opaque.Slots = []string{"nope"}
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for an invalid template")
	}
}
