// Package pack implements the `pack` meta-operation of spec.md §4.5:
// resolve a container codec (and, for the compound `.tar.gz`-style
// extensions, an outer compressor) from the output path, then walk the
// input paths into it as archive members.
//
// Grounded on original_source/src/pack/pack.c's extension-driven codec
// dispatch (spec.md §4.5 "Selection policy for pack/unpack"). The
// original composes tar and its compressor as two OS processes joined
// by a kernel pipe; internal/archive's codecs are plain io.Reader/
// io.Writer wrappers rather than pipeline.Stage state machines (see
// tarcodec/zipcodec), so the Go-native equivalent of that pipe is just
// wrapping one io.Writer around another in the same goroutine — tar
// writes into the compressor, the compressor writes into the file. No
// real pipe, goroutine, or internal/engine loop is needed for this
// in-process composition, the same "skip the chain machinery when a
// linear call sequence suffices" call internal/ops/copy already makes
// for its encrypt/hash stages (see DESIGN.md).
package pack

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/archive/tarcodec"
	"github.com/stsaz/fcom/internal/archive/zipcodec"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("pack", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) == 0 || !d.HasOutput {
		return ferr.New(ferr.Argument, "pack.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	return Run(o.desc, "")
}

// Run is the shared implementation also driven by internal/ops/zip
// (which forces container="zip" so --method/--level apply regardless
// of the -o extension).
func Run(d *opdesc.Desc, forceContainer string) error {
	container, compressor, _, ok := Classify(d.Output, forceContainer)
	if !ok {
		return ferr.New(ferr.Argument, "pack.run", nil)
	}
	if container != "" && !hasWriter(container) {
		return ferr.New(ferr.Argument, "pack.run", nil)
	}

	if !d.Overwrite {
		if _, err := os.Stat(d.Output); err == nil {
			return ferr.New(ferr.Exists, "pack.run", nil)
		}
	}
	out, err := os.Create(d.Output)
	if err != nil {
		return ferr.Wrap(ferr.System, "pack.run", err, "create %s", d.Output)
	}
	defer out.Close()

	w, closeCompressor, err := wrapCompressor(compressor, out, d.Level)
	if err != nil {
		return err
	}
	if closeCompressor != nil {
		defer closeCompressor()
	}

	if container == "" {
		return packBare(d, w)
	}

	aw, err := newContainerWriter(container, w, d)
	if err != nil {
		return err
	}
	defer aw.Close()

	filter := memberFilter(d)
	for _, in := range d.Inputs {
		if err := addPath(aw, in, filepath.Dir(in), filter); err != nil {
			return err
		}
	}
	return nil
}

// packBare handles a single input compressed directly with no
// container (e.g. `fcom pack notes.txt -o notes.txt.gz`).
func packBare(d *opdesc.Desc, w io.Writer) error {
	if len(d.Inputs) != 1 {
		return ferr.New(ferr.Argument, "pack.run", nil)
	}
	in, err := os.Open(d.Inputs[0])
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "pack.run", err, "open %s", d.Inputs[0])
	}
	defer in.Close()
	if _, err := io.Copy(w, in); err != nil {
		return ferr.Wrap(ferr.System, "pack.run", err, "write %s", d.Output)
	}
	return nil
}

// addPath walks root (a file or directory) adding every entry to aw as
// a path relative to base, applying filter to the relative name.
func addPath(aw archive.Writer, root, base string, filter *archive.MemberFilter) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)
		if !filter.Allowed(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		e := archive.Entry{
			Name:     rel,
			MTime:    info.ModTime(),
			UnixAttr: uint32(info.Mode().Perm()),
		}
		if info.IsDir() {
			// Size must stay 0: tar.Writer expects exactly Size bytes
			// written after WriteHeader before the next member, and a
			// directory has no content to give it.
			e.Type = archive.Directory
			_, err := aw.WriteHeader(e)
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return ferr.Wrap(ferr.System, "pack.run", err, "readlink %s", path)
			}
			e.Type = archive.Symlink
			e.LinkTarget = target
			_, err = aw.WriteHeader(e)
			return err
		}

		e.Size = uint64(info.Size())
		fw, err := aw.WriteHeader(e)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return ferr.Wrap(ferr.NotFound, "pack.run", err, "open %s", path)
		}
		defer f.Close()
		_, err = io.Copy(fw, f)
		return err
	})
}

func memberFilter(d *opdesc.Desc) *archive.MemberFilter {
	names := append([]string{}, d.Members...)
	if d.MembersFromFile != "" {
		if data, err := os.ReadFile(d.MembersFromFile); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line != "" {
					names = append(names, line)
				}
			}
		}
	}
	return archive.NewMemberFilterFromList(names)
}

func hasWriter(container string) bool {
	switch container {
	case "tar", "zip":
		return true
	default:
		return false // iso, 7z: read-only (see DESIGN.md)
	}
}

func newContainerWriter(container string, w io.Writer, d *opdesc.Desc) (archive.Writer, error) {
	switch container {
	case "zip":
		return zipcodec.NewWriterMethod(w, d.Method), nil
	case "tar":
		return tarcodec.NewWriter(w), nil
	default:
		return nil, ferr.New(ferr.Argument, "pack.run", nil)
	}
}

// wrapCompressor wraps w with the named compressor's writer, if any,
// returning a close func that flushes/finalizes the compressed stream
// (separate from the underlying file's own Close).
func wrapCompressor(name string, w io.Writer, level int) (io.Writer, func(), error) {
	switch name {
	case "":
		return w, nil, nil
	case "gzip":
		gw, err := gzip.NewWriterLevel(w, gzipLevel(level))
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.System, "pack.run", err, "gzip writer")
		}
		return gw, func() { gw.Close() }, nil
	case "xz":
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.System, "pack.run", err, "xz writer")
		}
		return xw, func() { xw.Close() }, nil
	case "zstd":
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(levelToZstd(level)))
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.System, "pack.run", err, "zstd writer")
		}
		return zw, func() { zw.Close() }, nil
	default:
		return nil, nil, ferr.New(ferr.Argument, "pack.run", nil)
	}
}

func gzipLevel(level int) int {
	if level >= gzip.BestSpeed && level <= gzip.BestCompression {
		return level
	}
	return gzip.DefaultCompression
}

func levelToZstd(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// Classify resolves name's container and outer compressor. force, when
// non-empty, pins the container (used by `fcom zip`/`unzip`) and skips
// extension sniffing entirely.
func Classify(name, force string) (container, compressor, stem string, ok bool) {
	if force != "" {
		return force, "", name, true
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"):
		return "tar", "gzip", strings.TrimSuffix(name, name[len(name)-7:]), true
	case strings.HasSuffix(lower, ".tgz"):
		return "tar", "gzip", strings.TrimSuffix(name, name[len(name)-4:]), true
	case strings.HasSuffix(lower, ".tar.xz"):
		return "tar", "xz", strings.TrimSuffix(name, name[len(name)-7:]), true
	case strings.HasSuffix(lower, ".txz"):
		return "tar", "xz", strings.TrimSuffix(name, name[len(name)-4:]), true
	case strings.HasSuffix(lower, ".tar.zst"):
		return "tar", "zstd", strings.TrimSuffix(name, name[len(name)-8:]), true
	}

	codec, stem, found := registry.ResolveExt(name)
	if !found {
		return "", "", name, false
	}
	switch codec {
	case "tar", "zip", "7z", "iso":
		return codec, "", stem, true
	case "gzip", "xz", "zstd":
		return "", codec, stem, true
	default:
		return "", "", name, false
	}
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "pack INPUT... -o OUTPUT[.tar.gz|.tar.xz|.tar.zst|.tar|.zip|.gz|.xz|.zst] [--method M] [--level N] [--member NAME]..."
}
