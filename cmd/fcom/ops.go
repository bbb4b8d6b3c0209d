package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/opmgr"
	"github.com/stsaz/fcom/internal/registry"
)

// opFlags holds every operation-specific flag value this binary knows
// about; newOpCommand registers only the subset relevant to name, and
// runOp copies all of them into the descriptor unconditionally (a
// field an operation never reads is simply left at its zero value).
type opFlags struct {
	// copy (spec.md §4.7)
	encrypt   string
	decrypt   string
	verify    bool
	writeInto bool

	// pack/unpack/zip/unzip (spec.md §4.5)
	method          string
	level           int
	members         []string
	membersFromFile string
	list            bool

	// sync (spec.md §4.6)
	snapshotOut  string
	sourceSnap   string
	noAttr       bool
	noTime       bool
	replaceDate  bool
	showDirs     bool
	swapSides    bool
	zipExpand    bool
	diffMask     string
	newerThan    string

	// textcount (SPEC_FULL.md §C.8)
	histogram bool

	// pic (SPEC_FULL.md §C.8)
	favicon bool

	// sync (SPEC_FULL.md §D Open Question 1)
	strictRename bool
}

// batchOps recurse over a directory's regular files one at a time
// (spec.md §4.3's input iterator), so -R/-I/-E/@FILE expansion happens
// once here via internal/opmgr rather than inside each operation.
// pack/copy/move/sync/unpack/zip/unzip either take exactly one input or
// drive their own tree walk (filepath.Walk, dirtree.Scan) and so keep
// their literal argv; trash accepts directories directly (os.RemoveAll)
// and needs no expansion either.
var batchOps = map[string]bool{"pic": true, "textcount": true, "extract": true}

func newOpCommand(name string) *cobra.Command {
	factory, ok := registry.Lookup(name)
	if !ok {
		return nil
	}
	help := factory().Help()

	var of opFlags
	cmd := &cobra.Command{
		Use:   name + " INPUT...",
		Short: help,
		Long:  help,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd, name)
			return runOp(name, args, &of)
		},
	}
	addOpFlags(name, cmd.Flags(), &of)
	return cmd
}

func addOpFlags(name string, fs *pflag.FlagSet, of *opFlags) {
	switch name {
	case "copy":
		fs.StringVarP(&of.encrypt, "encrypt", "e", "", "AES-CFB encrypt with PASSWORD")
		fs.StringVarP(&of.decrypt, "decrypt", "d", "", "AES-CFB decrypt with PASSWORD")
		fs.BoolVar(&of.verify, "verify", false, "reopen and rehash the output to confirm the copy")
		fs.BoolVar(&of.writeInto, "write-into", false, "on failure, keep an existing output file instead of deleting it")
	case "pack", "zip":
		fs.StringVar(&of.method, "method", "", "compression method: store|deflate|gzip|xz|zstd")
		fs.IntVar(&of.level, "level", 0, "compression level (method-specific, 0 = default)")
		fs.StringArrayVar(&of.members, "member", nil, "restrict to this member name, repeatable")
		fs.StringVar(&of.membersFromFile, "members-from-file", "", "read member names (one per line) from FILE")
	case "unpack", "unzip":
		fs.StringArrayVar(&of.members, "member", nil, "extract only this member name, repeatable")
		fs.StringVar(&of.membersFromFile, "members-from-file", "", "read member names (one per line) from FILE")
		fs.BoolVar(&of.list, "list", false, "print the member table; extract nothing")
	case "sync":
		fs.StringVar(&of.snapshotOut, "snapshot", "", "write a snapshot of the left tree to FILE instead of diffing")
		fs.StringVar(&of.sourceSnap, "source-snap", "", "read the left tree from a snapshot FILE instead of scanning")
		fs.BoolVar(&of.noAttr, "no-attr", false, "ignore attribute differences when comparing")
		fs.BoolVar(&of.noTime, "no-time", false, "ignore mtime differences when comparing")
		fs.BoolVar(&of.replaceDate, "replace-date", false, "copy mtime forward instead of comparing it")
		fs.BoolVar(&of.showDirs, "show-dirs", false, "include directory entries in the view")
		fs.BoolVar(&of.swapSides, "swap-sides", false, "swap MOV/UPD source and destination in the view")
		fs.BoolVar(&of.zipExpand, "zip-expand", false, "graft zip archive contents into the scanned tree")
		fs.StringVar(&of.diffMask, "diff", "", "comma-separated status filter: MOV,UPD,ADD,DEL,EQ")
		fs.StringVar(&of.newerThan, "newer-than", "", "drop entries older than this RFC3339 timestamp")
		fs.BoolVar(&of.strictRename, "strict-rename", false, "detect a rename only when the basename also matches")
	case "textcount":
		fs.BoolVar(&of.histogram, "histogram", false, "also print a byte-value histogram per file")
	case "pic":
		fs.BoolVar(&of.favicon, "favicon", false, "treat each input as an .ico file and extract its embedded images")
	}
}

// applyConfigDefaults fills in gf's global-but-per-operation-defaulted
// fields (overwrite/recursive/buffer) from the persisted config's
// Defaults[name] record, but only for flags the user did not pass
// explicitly on this invocation — an explicit flag always wins over a
// persisted default (spec.md §6's "selected per-operation defaults").
func applyConfigDefaults(cmd *cobra.Command, name string) {
	def := cfg.OperationDefaults(name)
	if !cmd.Flags().Changed("overwrite") && def.Overwrite {
		gf.overwrite = true
	}
	if !cmd.Flags().Changed("Recursive") && def.Recursive {
		gf.recursive = true
	}
	if !cmd.Flags().Changed("buffer") && def.BufferSize != 0 {
		gf.buffer = def.BufferSize
	}
}

func runOp(name string, args []string, of *opFlags) error {
	applyVerbosity()

	d := newDesc(name, args)
	applyOpFlags(d, of)

	if batchOps[name] {
		if err := expandBatchInputs(d); err != nil {
			return err
		}
	}

	op, err := registry.New(name, d)
	if err != nil {
		return err
	}
	defer op.Close()
	return op.Run()
}

func applyOpFlags(d *opdesc.Desc, of *opFlags) {
	switch {
	case of.encrypt != "":
		d.Encrypt = true
		d.Password = of.encrypt
	case of.decrypt != "":
		d.Decrypt = true
		d.Password = of.decrypt
	}
	d.Verify = of.verify
	d.WriteInto = of.writeInto
	d.StrictRename = of.strictRename

	d.Method = of.method
	d.Level = of.level
	d.Members = of.members
	d.MembersFromFile = of.membersFromFile
	d.List = of.list

	d.SnapshotOut = of.snapshotOut
	d.SourceSnap = of.sourceSnap
	d.NoAttr = of.noAttr
	d.NoTime = of.noTime
	d.ReplaceDate = of.replaceDate
	d.ShowDirs = of.showDirs
	d.SwapSides = of.swapSides
	d.ZipExpand = of.zipExpand
	d.DiffMask = of.diffMask
	d.NewerThanStr = of.newerThan

	d.Histogram = of.histogram
	d.Favicon = of.favicon
}

// expandBatchInputs drives internal/opmgr's shared input iterator over
// d's literal argv, replacing d.Inputs with the concrete regular-file
// list batchOps expect: directories are either recursed into (-R) or
// skipped, and every file is checked against -I/-E before inclusion
// (spec.md §4.3 input_next/input_dir/input_allowed).
func expandBatchInputs(d *opdesc.Desc) error {
	it := opmgr.NewIterator(d)
	var files []string
	for {
		name, isDir, rc, err := it.Next()
		if err != nil {
			return err
		}
		if rc == opmgr.IterNoMore {
			break
		}
		if isDir {
			if d.Recursive {
				if err := it.AttachDir(name); err != nil {
					return err
				}
			}
			continue
		}
		if opmgr.InputAllowed(d, name, false) == opmgr.Denied {
			continue
		}
		files = append(files, name)
	}
	d.Inputs = files
	return nil
}
