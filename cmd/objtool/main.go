// objtool is a CLI utility for inspecting Wavefront OBJ models and their
// MTL material libraries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Faultbox/objparse/internal/config"
	"github.com/Faultbox/objparse/internal/loader"
	"github.com/Faultbox/objparse/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "info":
		err = cmdInfo(ctx, args)
	case "meshes":
		err = cmdMeshes(ctx, args)
	case "materials", "mtl":
		err = cmdMaterials(ctx, args)
	case "batch":
		err = cmdBatch(ctx, args)
	case "watch":
		err = cmdWatch(ctx, args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil && !errors.Is(err, flag.ErrHelp) && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`objtool - Wavefront OBJ/MTL model utility

Usage:
  objtool <command> [options]

Commands:
  info <file.obj>                   Show model summary
  meshes <file.obj>                 List meshes with their materials
  materials <file.obj|file.mtl>     List material descriptors
  batch [-j N] [-fail-fast] <path>  Load many models (directories are searched for .obj)
  watch <path>...                   Reload models when .obj or .mtl files change
  config [-o file]                  Print or write the effective config

Common options:
  -config <file>    Config file (.yaml, .yml or .toml)
  -scale <s>        Uniform position scale
  -debug            Enable debug logging
  -log-file <file>  Also log to a rotating file
  -no-decode        Read textures without decoding them
  -charset <name>   Charset of .obj/.mtl text (e.g. euc-kr, windows-1252)

Examples:
  objtool info models/crate.obj
  objtool meshes -scale 0.01 models/city.obj
  objtool materials models/crate.mtl
  objtool batch -j 8 models/
  objtool watch models/`)
}

// session is the state shared by every command after flag parsing.
type session struct {
	fs   *flag.FlagSet
	cfg  *config.Config
	opts loader.Options
}

// newFlagSet creates a command flag set with the shared config flags bound.
func newFlagSet(name string) (*flag.FlagSet, *config.Flags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, config.BindFlags(fs)
}

// setup parses args, loads the config and initializes logging.
func setup(fs *flag.FlagSet, flags *config.Flags, args []string) (*session, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileConfig(cfg.Logging), true); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	opts, err := loader.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts.Logger = logger.Log

	return &session{fs: fs, cfg: cfg, opts: opts}, nil
}

func fileConfig(cfg config.LoggingConfig) logger.FileConfig {
	if cfg.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(cfg.LogFile)
	if cfg.MaxSizeMB > 0 {
		fc.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.MaxBackups > 0 {
		fc.MaxBackups = cfg.MaxBackups
	}
	if cfg.MaxAgeDays > 0 {
		fc.MaxAgeDays = cfg.MaxAgeDays
	}
	fc.JSON = cfg.JSON
	return fc
}

// requireArgs fails with a usage line when fewer than n positional
// arguments were given.
func requireArgs(fs *flag.FlagSet, n int, usage string) error {
	if fs.NArg() < n {
		return fmt.Errorf("usage: objtool %s", usage)
	}
	return nil
}
