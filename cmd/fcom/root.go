package main

import (
	"github.com/spf13/cobra"

	"github.com/stsaz/fcom/internal/buildinfo"
	"github.com/stsaz/fcom/internal/config"
	"github.com/stsaz/fcom/internal/log"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/registry"

	_ "github.com/stsaz/fcom/internal/ops/copy"
	_ "github.com/stsaz/fcom/internal/ops/extract"
	_ "github.com/stsaz/fcom/internal/ops/move"
	_ "github.com/stsaz/fcom/internal/ops/pack"
	_ "github.com/stsaz/fcom/internal/ops/pic"
	_ "github.com/stsaz/fcom/internal/ops/sync"
	_ "github.com/stsaz/fcom/internal/ops/textcount"
	_ "github.com/stsaz/fcom/internal/ops/trash"
	_ "github.com/stsaz/fcom/internal/ops/unpack"
	_ "github.com/stsaz/fcom/internal/ops/unzip"
	_ "github.com/stsaz/fcom/internal/ops/zip"
)

// global holds spec.md §6's "Global options", bound once on the root
// command's persistent flag set the same way rclone binds its global
// fs/config/flags on cmd.Root — every operation subcommand inherits
// them (see backend/torrent/cmd/backend.go's per-command cmdFlags for
// the narrower, operation-local analogue addOpFlags follows below).
type global struct {
	recursive  bool
	include    []string
	exclude    []string
	chdir      string
	out        string
	overwrite  bool
	test       bool
	buffer     uint
	directio   bool
	noPrealloc bool
	verbose    bool
	debug      bool
}

var gf global

// cfg is the optional persisted settings of spec.md §6, loaded once at
// startup; a missing or unreadable file falls back to config.DefaultConfig
// silently, since the file is documented as optional.
var cfg = loadConfig()

func loadConfig() config.Config {
	c, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return c
}

var rootCmd = &cobra.Command{
	Use:           "fcom",
	Short:         "A small file-manipulation toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       buildinfo.Summary(),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&gf.recursive, "Recursive", "R", false, "recurse into directories")
	pf.StringArrayVarP(&gf.include, "Include", "I", nil, "include glob, repeatable")
	pf.StringArrayVarP(&gf.exclude, "Exclude", "E", nil, "exclude glob, repeatable")
	pf.StringVarP(&gf.chdir, "chdir", "C", "", "write output files under DIR (pic, extract, unpack, unzip)")
	pf.StringVarP(&gf.out, "out", "o", "", "output path, or STDOUT")
	pf.BoolVarP(&gf.overwrite, "overwrite", "f", false, "overwrite an existing output")
	pf.BoolVarP(&gf.test, "test", "T", false, "dry run: produce no on-disk bytes")
	pf.UintVar(&gf.buffer, "buffer", 0, "I/O buffer size in bytes (0 = default)")
	pf.BoolVar(&gf.directio, "directio", false, "bypass the page cache (O_DIRECT)")
	pf.BoolVar(&gf.noPrealloc, "no-prealloc", false, "skip output file preallocation")
	pf.BoolVarP(&gf.verbose, "verbose", "v", false, "per-stage trace")
	pf.BoolVar(&gf.debug, "debug", false, "filter-chain topology dump on every mutation")

	for _, name := range registry.Names() {
		rootCmd.AddCommand(newOpCommand(name))
	}
}

// applyVerbosity raises internal/log's level per -v/--debug (spec.md
// §7 "verbose mode adds per-stage trace... debug mode adds topology
// prints").
func applyVerbosity() {
	switch {
	case gf.debug:
		log.SetLevel(log.LevelTrace)
	case gf.verbose:
		log.SetLevel(log.LevelDebug)
	}
}

// newDesc builds the shared part of an operation descriptor from the
// global flags and this invocation's positional args; op-specific
// fields are filled in by applyOpFlags in runOp before Create.
func newDesc(name string, args []string) *opdesc.Desc {
	d := opdesc.New(name)
	d.Argv = args
	d.Inputs = args
	d.Include = gf.include
	d.Exclude = gf.exclude
	d.Chdir = gf.chdir
	d.Output = gf.out
	d.HasOutput = gf.out != ""
	d.Overwrite = gf.overwrite
	d.Test = gf.test
	d.Recursive = gf.recursive
	d.BufferSize = gf.buffer
	d.DirectIO = gf.directio
	d.NoPrealloc = gf.noPrealloc
	return d
}
