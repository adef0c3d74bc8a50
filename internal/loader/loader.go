// Package loader turns a geometry file on disk into a model with its
// material library resolved and bound.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/objparse/internal/config"
	"github.com/Faultbox/objparse/internal/logger"
	"github.com/Faultbox/objparse/internal/texture"
	"github.com/Faultbox/objparse/pkg/charset"
	"github.com/Faultbox/objparse/pkg/wavefront"
)

// ErrFileNotFound is returned when the geometry file does not exist. A
// missing material library does not fail the load: the default library is
// used and Asset.LibraryErr wraps ErrFileNotFound.
var ErrFileNotFound = errors.New("file not found")

// Options controls a load. The zero value is usable: scale 1, default
// templates, default extensions, no texture decoding and a private cache.
type Options struct {
	Scale   float32
	Charset string // text charset of both files, "" = UTF-8

	Opaque      *wavefront.Material
	Transparent *wavefront.Material

	Extensions  []string // accepted texture extensions, nil = wavefront defaults
	Decode      bool     // decode textures, not just read them
	SearchPaths []string // extra texture directories below the library directory

	// Cache is shared by every load given the same Options. Nil gets a
	// private cache per load.
	Cache *texture.Cache

	// Workers bounds LoadAll concurrency, 0 = GOMAXPROCS.
	Workers int
	// FailFast makes LoadAll cancel the remaining loads on the first error.
	FailFast bool

	Logger *zap.Logger
}

// OptionsFromConfig builds load options from cfg with a fresh shared cache.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opaque, transparent, err := cfg.Templates()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Scale:       cfg.Parse.Scale,
		Charset:     cfg.Parse.Charset,
		Opaque:      opaque,
		Transparent: transparent,
		Extensions:  cfg.Textures.Extensions,
		Decode:      cfg.Textures.Decode,
		SearchPaths: cfg.Textures.SearchPaths,
		Cache:       texture.NewCache(),
		Workers:     cfg.Parse.Workers,
		Logger:      logger.Log,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Opaque == nil {
		o.Opaque = wavefront.DefaultOpaqueTemplate()
	}
	if o.Transparent == nil {
		o.Transparent = wavefront.DefaultTransparentTemplate()
	}
	if o.Logger == nil {
		o.Logger = logger.Log
	}
	return o
}

// Load reads the geometry file at path and the material library it names.
// The library path is relative to the geometry file's directory.
func Load(ctx context.Context, path string, opts Options) (*Asset, error) {
	opts = opts.withDefaults()
	start := time.Now()

	id := uuid.New()
	log := opts.Logger.With(zap.String("load_id", id.String()), zap.String("path", path))
	log.Debug("loading model")

	model, err := loadGeometry(ctx, path, opts, log)
	if err != nil {
		return nil, err
	}

	lib, libPath, err := loadLibrary(ctx, path, model.MaterialLibrary, opts, log)
	var libErr error
	if errors.Is(err, ErrFileNotFound) {
		libErr, err = err, nil
	}
	if err != nil {
		return nil, err
	}

	asset := newAsset(id, path, libPath, model, lib, opts.Opaque)
	asset.LibraryErr = libErr
	asset.Elapsed = time.Since(start)

	if missing := asset.MissingMaterials(); len(missing) > 0 {
		log.Warn("materials not defined in library, using defaults", zap.Strings("materials", missing))
	}
	log.Info("loaded model",
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("vertices", model.VertexCount()),
		zap.Int("triangles", model.TriangleCount()),
		zap.Int("materials", len(lib.Names)),
		zap.Duration("elapsed", asset.Elapsed),
	)
	return asset, nil
}

func loadGeometry(ctx context.Context, path string, opts Options, log *zap.Logger) (*wavefront.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("geometry file not found")
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, opts.Charset)
	if err != nil {
		return nil, err
	}

	done := logger.Timed(log, "parsed geometry")
	model, err := wavefront.ParseGeometry(ctx, r, opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	done(zap.Int("meshes", len(model.Meshes)))
	return model, nil
}

// loadLibrary returns the parsed library and its path, or the default
// library and "" when none is declared or the file is missing. A missing file
// is also reported as ErrFileNotFound alongside the default library.
func loadLibrary(ctx context.Context, modelPath, name string, opts Options, log *zap.Logger) (*wavefront.Library, string, error) {
	if name == "" {
		log.Debug("no material library declared, using default")
		return wavefront.DefaultLibrary(opts.Opaque), "", nil
	}

	libPath := filepath.Join(filepath.Dir(modelPath), filepath.FromSlash(name))
	f, err := os.Open(libPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("material library not found, using default", zap.String("library", libPath))
			return wavefront.DefaultLibrary(opts.Opaque), "", fmt.Errorf("%w: %s", ErrFileNotFound, libPath)
		}
		return nil, "", fmt.Errorf("opening %s: %w", libPath, err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, opts.Charset)
	if err != nil {
		return nil, "", err
	}

	textures := texture.NewLoader(opts.Cache, opts.Decode)
	for _, dir := range opts.SearchPaths {
		textures.AddDir(dir)
	}
	textures.AddDir(filepath.Dir(libPath))

	parser := wavefront.NewLibraryParser(opts.Opaque, opts.Transparent, textures)
	parser.Extensions = opts.Extensions

	done := logger.Timed(log, "parsed material library")
	lib, err := parser.Parse(ctx, r)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", libPath, err)
	}
	done(zap.String("library", libPath), zap.Int("materials", len(lib.Names)))

	for _, texErr := range multierr.Errors(lib.TextureErrors) {
		log.Warn("texture not resolved", zap.Error(texErr))
	}
	return lib, libPath, nil
}
