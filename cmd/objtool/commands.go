package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Faultbox/objparse/internal/loader"
	"github.com/Faultbox/objparse/internal/logger"
	"github.com/Faultbox/objparse/internal/texture"
	"github.com/Faultbox/objparse/internal/watch"
	"github.com/Faultbox/objparse/pkg/charset"
	"github.com/Faultbox/objparse/pkg/wavefront"
)

func cmdInfo(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("info")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "info <file.obj>"); err != nil {
		return err
	}

	asset, err := loader.Load(ctx, fs.Arg(0), s.opts)
	if err != nil {
		return err
	}
	fmt.Print(renderInfo(asset))
	return nil
}

func cmdMeshes(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("meshes")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "meshes <file.obj>"); err != nil {
		return err
	}

	asset, err := loader.Load(ctx, fs.Arg(0), s.opts)
	if err != nil {
		return err
	}
	fmt.Println(renderMeshes(asset))
	return nil
}

func cmdMaterials(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("materials")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "materials <file.obj|file.mtl>"); err != nil {
		return err
	}

	path := fs.Arg(0)
	var lib *wavefront.Library
	if strings.EqualFold(filepath.Ext(path), ".mtl") {
		lib, err = parseLibraryFile(ctx, path, s.opts)
	} else {
		var asset *loader.Asset
		asset, err = loader.Load(ctx, path, s.opts)
		if asset != nil {
			lib = asset.Library
		}
	}
	if err != nil {
		return err
	}

	fmt.Println(renderMaterials(lib))
	if lib.TextureErrors != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("textures not resolved: %v", lib.TextureErrors)))
	}
	return nil
}

// parseLibraryFile parses a standalone material library, resolving textures
// next to it.
func parseLibraryFile(ctx context.Context, path string, opts loader.Options) (*wavefront.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := charset.NewReader(f, opts.Charset)
	if err != nil {
		return nil, err
	}

	textures := texture.NewLoader(opts.Cache, opts.Decode)
	for _, dir := range opts.SearchPaths {
		textures.AddDir(dir)
	}
	textures.AddDir(filepath.Dir(path))

	p := wavefront.NewLibraryParser(opts.Opaque, opts.Transparent, textures)
	p.Extensions = opts.Extensions
	lib, err := p.Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return lib, nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("batch")
	workers := fs.Int("j", 0, "Parallel loads (0 = config or GOMAXPROCS)")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failed model")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "batch [-j N] [-fail-fast] <file.obj|dir>..."); err != nil {
		return err
	}

	paths, err := expandPaths(fs.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .obj files found")
	}

	if *workers > 0 {
		s.opts.Workers = *workers
	}
	s.opts.FailFast = *failFast

	assets, loadErr := loader.LoadAll(ctx, paths, s.opts)
	fmt.Println(renderBatch(paths, assets))
	fmt.Println(renderBatchTotals(assets, s.opts.Cache))

	if loadErr != nil {
		return fmt.Errorf("%d of %d models failed", len(paths)-len(lo.Compact(assets)), len(paths))
	}
	return nil
}

// expandPaths replaces directories with the .obj files below them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the loader.
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".obj") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", arg, err)
		}
	}
	return lo.Uniq(paths), nil
}

func cmdWatch(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("watch")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "watch <file.obj|dir>..."); err != nil {
		return err
	}

	w, err := watch.New(time.Duration(s.cfg.Watch.Debounce), logger.Log)
	if err != nil {
		return err
	}
	defer w.Close()

	models, err := expandPaths(fs.Args())
	if err != nil {
		return err
	}
	for _, arg := range fs.Args() {
		if err := w.Add(arg); err != nil {
			return fmt.Errorf("watching %s: %w", arg, err)
		}
	}

	// Tracked models and the library each one loaded, "" for none.
	tracked := make(map[string]string)
	for _, m := range models {
		abs, err := filepath.Abs(m)
		if err != nil {
			return err
		}
		tracked[abs] = reload(ctx, w, abs, s.opts)
	}

	logger.Info("watching for changes", zap.Strings("paths", fs.Args()))
	return w.Run(ctx, func(changed []string) {
		// Textures may have changed along with the models.
		s.opts.Cache.Clear()
		for _, path := range affectedModels(changed, tracked) {
			tracked[path] = reload(ctx, w, path, s.opts)
		}
	})
}

// affectedModels returns the models to reload for a batch of changed
// files: changed .obj files, every tracked model whose library changed, and
// models without a library that sit next to a changed .mtl. New .obj files
// become tracked.
func affectedModels(changed []string, tracked map[string]string) []string {
	var out []string
	for _, path := range changed {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".obj":
			if _, ok := tracked[path]; !ok {
				tracked[path] = ""
			}
			out = append(out, path)
		case ".mtl":
			for m, lib := range tracked {
				if lib == path || (lib == "" && filepath.Dir(m) == filepath.Dir(path)) {
					out = append(out, m)
				}
			}
		}
	}
	out = lo.Uniq(out)
	slices.Sort(out)
	return out
}

// reload loads path, prints its summary and returns the library it used.
// The library is added to the watch so edits to it are seen even when only
// the model was named.
func reload(ctx context.Context, w *watch.Watcher, path string, opts loader.Options) string {
	asset, err := loader.Load(ctx, path, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("%s: %v", path, err)))
		return ""
	}
	fmt.Println(summaryLine(asset))

	if asset.LibraryPath != "" {
		if err := w.Add(asset.LibraryPath); err != nil {
			logger.Warn("cannot watch material library", zap.String("library", asset.LibraryPath), zap.Error(err))
		}
	}
	return asset.LibraryPath
}

func cmdConfig(args []string) error {
	fs, flags := newFlagSet("config")
	output := fs.String("o", "", "Write the config to this file instead of stdout")
	s, err := setup(fs, flags, args)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := s.cfg.SaveTo(*output); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *output)
		return nil
	}

	data, err := s.cfg.Marshal("config.yaml")
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
