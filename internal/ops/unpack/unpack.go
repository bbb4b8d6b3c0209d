// Package unpack implements the `unpack` meta-operation: the inverse of
// internal/ops/pack — resolve a container codec (and optional outer
// compressor) from the input extension and extract every member under
// the output directory.
//
// See internal/ops/pack's package doc for why this composes readers
// directly (tar.NewReader wrapping gzip.NewReader wrapping a plain *os.File,
// etc.) instead of through internal/pipeline/internal/engine: every
// archive.Reader here is a plain io.Reader adapter, so chaining them is
// just nested constructor calls, no pipe or goroutine required.
package unpack

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/archive/isocodec"
	"github.com/stsaz/fcom/internal/archive/sevenzipcodec"
	"github.com/stsaz/fcom/internal/archive/tarcodec"
	"github.com/stsaz/fcom/internal/archive/zipcodec"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/pack"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("unpack", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
	out  io.Writer
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) != 1 {
		return ferr.New(ferr.Argument, "unpack.create", nil)
	}
	o.desc = d
	o.out = os.Stdout
	return nil
}

func (o *Op) Run() error {
	return Run(o.desc, o.out, "", o.desc.List)
}

// Run is shared with internal/ops/unzip, which pins forceContainer to
// "zip" and list to its own --list flag.
func Run(d *opdesc.Desc, out io.Writer, forceContainer string, list bool) error {
	in := d.Inputs[0]
	container, compressor, stem, ok := Classify(in, forceContainer)
	if !ok {
		return ferr.New(ferr.Argument, "unpack.run", nil)
	}

	f, err := os.Open(in)
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "unpack.run", err, "open %s", in)
	}
	defer f.Close()

	if container == "" {
		return unpackBare(d, f, compressor, stem)
	}

	destRoot := "."
	if d.Chdir != "" {
		destRoot = d.Chdir
	} else if d.HasOutput && d.Output != "" {
		destRoot = d.Output
	}

	filter := memberFilter(d)

	switch container {
	case "zip", "iso", "7z":
		if compressor != "" {
			return ferr.New(ferr.Argument, "unpack.run", nil)
		}
		info, err := f.Stat()
		if err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "stat %s", in)
		}
		rd, err := openRandomAccessReader(container, f, info.Size())
		if err != nil {
			return err
		}
		return extractAll(rd, destRoot, filter, out, list, d.NoTime)
	case "tar":
		r, closeDecompressor, err := wrapDecompressor(compressor, f)
		if err != nil {
			return err
		}
		if closeDecompressor != nil {
			defer closeDecompressor()
		}
		rd, err := tarcodec.NewReader(r)
		if err != nil {
			return err
		}
		return extractAll(rd, destRoot, filter, out, list, d.NoTime)
	default:
		return ferr.New(ferr.Argument, "unpack.run", nil)
	}
}

func unpackBare(d *opdesc.Desc, f *os.File, compressor, stem string) error {
	r, closeDecompressor, err := wrapDecompressor(compressor, f)
	if err != nil {
		return err
	}
	if closeDecompressor != nil {
		defer closeDecompressor()
	}
	outPath := stem
	if d.HasOutput && d.Output != "" {
		outPath = d.Output
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return ferr.Wrap(ferr.System, "unpack.run", err, "mkdir %s", filepath.Dir(outPath))
	}
	outFile, err := os.Create(outPath)
	if err != nil {
		return ferr.Wrap(ferr.System, "unpack.run", err, "create %s", outPath)
	}
	defer outFile.Close()
	_, err = io.Copy(outFile, r)
	return err
}

func extractAll(rd archive.Reader, destRoot string, filter *archive.MemberFilter, out io.Writer, list bool, noTime bool) error {
	defer rd.Close()
	for {
		e, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !filter.Allowed(e.Name) {
			continue
		}
		if list {
			fmt.Fprintf(out, "%12d  %s  %s\n", e.Size, e.MTime.UTC().Format("2006-01-02 15:04:05"), e.Name)
			continue
		}
		if err := extractOne(rd, e, destRoot, noTime); err != nil {
			return err
		}
	}
}

func extractOne(rd archive.Reader, e archive.Entry, destRoot string, noTime bool) error {
	outPath := filepath.Join(destRoot, filepath.FromSlash(e.Name))
	switch e.Type {
	case archive.Directory:
		if err := os.MkdirAll(outPath, 0o755); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "mkdir %s", outPath)
		}
		return setTime(outPath, e.MTime, noTime)
	case archive.Symlink:
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "mkdir %s", filepath.Dir(outPath))
		}
		_ = os.Remove(outPath)
		if err := os.Symlink(e.LinkTarget, outPath); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "symlink %s", outPath)
		}
		return nil
	case archive.Hardlink:
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "mkdir %s", filepath.Dir(outPath))
		}
		target := filepath.Join(destRoot, filepath.FromSlash(e.LinkTarget))
		_ = os.Remove(outPath)
		if err := os.Link(target, outPath); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "link %s -> %s", outPath, target)
		}
		return nil
	default:
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "mkdir %s", filepath.Dir(outPath))
		}
		rc, err := rd.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		outFile, err := os.Create(outPath)
		if err != nil {
			return ferr.Wrap(ferr.System, "unpack.run", err, "create %s", outPath)
		}
		if _, err := io.Copy(outFile, rc); err != nil {
			outFile.Close()
			return ferr.Wrap(ferr.System, "unpack.run", err, "write %s", outPath)
		}
		outFile.Close()
		return setTime(outPath, e.MTime, noTime)
	}
}

func setTime(path string, mtime time.Time, noTime bool) error {
	if noTime || mtime.IsZero() {
		return nil
	}
	return os.Chtimes(path, mtime, mtime)
}

func openRandomAccessReader(container string, f *os.File, size int64) (archive.Reader, error) {
	switch container {
	case "zip":
		return zipcodec.NewReader(f, size)
	case "iso":
		return isocodec.NewReader(f, size)
	case "7z":
		return sevenzipcodec.NewReader(f, size)
	default:
		return nil, ferr.New(ferr.Argument, "unpack.run", nil)
	}
}

// wrapDecompressor wraps r with the named decompressor's reader, if
// any, returning an extra close func for decompressors that hold
// resources beyond the underlying reader's own lifetime.
func wrapDecompressor(name string, r io.Reader) (io.Reader, func(), error) {
	switch name {
	case "":
		return r, nil, nil
	case "gzip":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.Format, "unpack.run", err, "gzip header")
		}
		return gr, func() { gr.Close() }, nil
	case "xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.Format, "unpack.run", err, "xz header")
		}
		return xr, nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, ferr.Wrap(ferr.Format, "unpack.run", err, "zstd header")
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, ferr.New(ferr.Argument, "unpack.run", nil)
	}
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

// Classify re-exposes internal/ops/pack's extension classifier for
// input-side resolution; see pack.Classify's doc.
func Classify(name, force string) (container, compressor, stem string, ok bool) {
	return pack.Classify(name, force)
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "unpack ARCHIVE [-C DESTDIR] [--member NAME]... [--members-from-file FILE]"
}
