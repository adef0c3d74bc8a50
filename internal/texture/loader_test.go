package texture

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/objparse/pkg/wavefront"
)

var _ wavefront.TextureResolver = (*Loader)(nil)

func writePNG(t *testing.T, path string, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return buf.Bytes()
}

func TestLoader_SearchOrder(t *testing.T) {
	root := t.TempDir()
	low := filepath.Join(root, "low")
	high := filepath.Join(root, "high")
	writePNG(t, filepath.Join(low, "tex.png"), 1, 1)
	writePNG(t, filepath.Join(high, "tex.png"), 4, 2)
	writePNG(t, filepath.Join(low, "only-low.png"), 2, 2)

	l := NewLoader(nil, true)
	l.AddDir(low)
	l.AddDir(high)

	img, err := l.Load("tex.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Size() != (image.Point{X: 4, Y: 2}) {
		t.Errorf("expected the later directory to win, got size %v", img.Size())
	}
	if img.Format != "png" {
		t.Errorf("expected format png, got %s", img.Format)
	}

	img, err = l.Load("only-low.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Size() != (image.Point{X: 2, Y: 2}) {
		t.Errorf("expected 2x2, got %v", img.Size())
	}
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(nil, true)
	l.AddDir(t.TempDir())

	if _, err := l.Load("missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := l.Load(filepath.Join(t.TempDir(), "abs.png")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for absolute path, got %v", err)
	}
}

func TestLoader_Subdirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "textures", "wood.png"), 1, 1)

	l := NewLoader(nil, true)
	l.AddDir(dir)

	img, err := l.Load("textures/wood.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !filepath.IsAbs(img.Path) {
		t.Errorf("expected absolute cache path, got %s", img.Path)
	}
}

func TestLoader_NoDecode(t *testing.T) {
	dir := t.TempDir()
	data := writePNG(t, filepath.Join(dir, "tex.png"), 3, 3)

	l := NewLoader(nil, false)
	l.AddDir(dir)

	handle, err := l.ResolveTexture("tex.png")
	if err != nil {
		t.Fatalf("ResolveTexture failed: %v", err)
	}
	img, ok := handle.(*Image)
	if !ok {
		t.Fatalf("expected *Image handle, got %T", handle)
	}
	if img.Img != nil {
		t.Error("expected no decoded image")
	}
	if !bytes.Equal(img.Data, data) {
		t.Error("expected raw file bytes")
	}
	if img.Size() != (image.Point{}) {
		t.Errorf("expected zero size, got %v", img.Size())
	}
}

func TestLoader_DecodeError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("garbage"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	l := NewLoader(nil, true)
	l.AddDir(dir)

	if _, err := l.Load("bad.png"); err == nil {
		t.Error("expected decode error")
	}
	if l.Cache().Len() != 0 {
		t.Errorf("expected failed decode to stay uncached, got %d", l.Cache().Len())
	}
}

func TestLoader_SharedCache(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tex.png"), 1, 1)

	cache := NewCache()
	a := NewLoader(cache, true)
	a.AddDir(dir)
	b := NewLoader(cache, true)
	b.AddDir(dir)

	first, err := a.Load("tex.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := b.Load("tex.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("expected loaders sharing a cache to return the same image")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached image, got %d", cache.Len())
	}
}
