// Package copy implements the `copy` operation of spec.md §4.7: reader
// (buffered file) → optional AES-CFB stream encryptor/decryptor →
// optional MD5 hasher → writer, with shadow-name-plus-atomic-rename
// output and an optional reopen-and-rehash verify step.
//
// Grounded on original_source/src/fs/copy.c's shadow-name/rename
// sequencing (see DESIGN.md), built on internal/vfile (spec.md §4.4's
// buffered file object) and internal/cryptstream (spec.md §4.7's
// primitives). The encrypt/hash stages are driven directly as a linear
// call sequence rather than through an internal/pipeline.Chain: a
// single-reader/single-writer transform with no SEEK/NEXTDONE/multi-
// stage fan-out does not need the chain's arena-indexed scheduler —
// that machinery exists for archive codecs, which do need it (see
// DESIGN.md).
package copy

import (
	"io"
	"os"

	"github.com/stsaz/fcom/internal/cryptstream"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/pipeline"
	"github.com/stsaz/fcom/internal/registry"
	"github.com/stsaz/fcom/internal/stats"
	"github.com/stsaz/fcom/internal/vfile"
)

func init() {
	registry.RegisterOp("copy", func() registry.Operation { return &Op{} })
}

const shadowSuffix = ".fcomtmp"

// Op implements registry.Operation for `copy`.
type Op struct {
	desc  *opdesc.Desc
	stats *stats.Stats
}

// New constructs a copy operation directly (for use by other operations
// composing copy as a sub-step, e.g. internal/ops/sync).
func New() *Op { return &Op{} }

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) != 1 {
		return ferr.New(ferr.Argument, "copy.create", nil)
	}
	if !d.HasOutput {
		return ferr.New(ferr.Argument, "copy.create", nil)
	}
	o.desc = d
	o.stats = stats.New()
	return nil
}

func (o *Op) Run() error {
	d := o.desc
	src := d.Inputs[0]

	srcInfo, err := os.Stat(src)
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "copy.run", err, "stat %s", src)
	}

	if d.Output == "STDOUT" {
		return o.copyToStdout(src)
	}

	shadow := d.Output + shadowSuffix
	sum, err := o.copyOnce(src, shadow, srcInfo)
	if err != nil {
		os.Remove(shadow)
		if !d.WriteInto {
			os.Remove(d.Output)
		}
		return err
	}

	if d.Overwrite {
		os.Remove(d.Output)
	} else if _, statErr := os.Stat(d.Output); statErr == nil {
		os.Remove(shadow)
		return ferr.New(ferr.Exists, "copy.run", nil)
	}
	if err := os.Rename(shadow, d.Output); err != nil {
		os.Remove(shadow)
		return ferr.Wrap(ferr.System, "copy.run", err, "rename %s -> %s", shadow, d.Output)
	}

	if d.Verify {
		if err := o.verify(d.Output, sum); err != nil {
			return err
		}
	}
	return nil
}

// copyOnce streams src into dstPath, optionally encrypting/decrypting
// and hashing along the way, returning the MD5 of the bytes written.
func (o *Op) copyOnce(src, dstPath string, srcInfo os.FileInfo) ([16]byte, error) {
	rf := vfile.Create(vfile.Config{BufferSize: int(o.desc.BufferSize)})
	if err := rf.Open(src, vfile.Read|boolFlag(o.desc.DirectIO, vfile.DirectIO)); err != nil {
		return [16]byte{}, err
	}
	defer rf.Close()

	wFlags := vfile.Write | vfile.CreateNew | boolFlag(o.desc.DirectIO || o.desc.Verify, vfile.DirectIO) |
		boolFlag(o.desc.Test, vfile.FakeWrite) | boolFlag(o.desc.NoPrealloc, vfile.NoPrealloc)
	wf := vfile.Create(vfile.Config{BufferSize: int(o.desc.BufferSize)})
	if err := wf.Open(dstPath, wFlags); err != nil {
		return [16]byte{}, err
	}

	var cryptState pipeline.State
	if o.desc.Encrypt || o.desc.Decrypt {
		var stage pipeline.Stage
		if o.desc.Encrypt {
			stage = cryptstream.NewEncrypt(o.desc.Password)
		} else {
			stage = cryptstream.NewDecrypt(o.desc.Password)
		}
		st, err := stage.Open(nil)
		if err != nil {
			wf.Close()
			return [16]byte{}, err
		}
		cryptState = st
	}
	md5Stage, md5Result := cryptstream.NewMD5()
	md5State, err := md5Stage.Open(nil)
	if err != nil {
		wf.Close()
		return [16]byte{}, err
	}

	buf := make([]byte, bufferSizeOr(o.desc.BufferSize))
	var readOff, writeOff int64
	o.stats.Transferring(src)
	for {
		n, rc, err := rf.Read(buf, readOff)
		if err != nil {
			wf.Close()
			return [16]byte{}, err
		}
		readOff += int64(n)
		chunk := append([]byte(nil), buf[:n]...)

		if cryptState != nil && n > 0 {
			in := &pipeline.Slice{Data: chunk}
			out := &pipeline.Slice{}
			if cryptState.Process(in, out, pipeline.Forward) == pipeline.RCErr {
				wf.Close()
				return [16]byte{}, ferr.New(ferr.Internal, "copy.run", nil)
			}
			chunk = out.Data
		}
		if n > 0 {
			in := &pipeline.Slice{Data: append([]byte(nil), chunk...)}
			out := &pipeline.Slice{}
			md5State.Process(in, out, pipeline.Forward)
		}
		if n > 0 {
			if _, err := wf.Write(chunk, writeOff); err != nil {
				wf.Close()
				return [16]byte{}, err
			}
			writeOff += int64(len(chunk))
			o.stats.Bytes(int64(n))
		}
		if rc == vfile.EOF {
			break
		}
	}
	o.stats.DoneTransferring(src)
	md5State.Process(&pipeline.Slice{}, &pipeline.Slice{}, pipeline.First)

	wf.SetMTime(srcInfo.ModTime().UnixNano())
	if err := wf.Close(); err != nil {
		return [16]byte{}, err
	}
	return md5Result.Sum, nil
}

func (o *Op) copyToStdout(src string) error {
	f, err := os.Open(src)
	if err != nil {
		return ferr.Wrap(ferr.System, "copy.run", err, "open %s", src)
	}
	defer f.Close()
	if _, err := io.Copy(os.Stdout, f); err != nil {
		return ferr.Wrap(ferr.System, "copy.run", err, "write stdout")
	}
	return nil
}

// verify reopens dstPath with direct I/O and rehashes it, comparing
// against writeSum (spec.md §4.7 "the two MD5 digests must match").
func (o *Op) verify(dstPath string, writeSum [16]byte) error {
	rf := vfile.Create(vfile.Config{})
	if err := rf.Open(dstPath, vfile.Read|vfile.DirectIO); err != nil {
		return err
	}
	defer rf.Close()

	md5Stage, md5Result := cryptstream.NewMD5()
	md5State, err := md5Stage.Open(nil)
	if err != nil {
		return err
	}

	buf := make([]byte, defaultBufferSize)
	var off int64
	for {
		n, rc, err := rf.Read(buf, off)
		if err != nil {
			return err
		}
		off += int64(n)
		if n > 0 {
			md5State.Process(&pipeline.Slice{Data: append([]byte(nil), buf[:n]...)}, &pipeline.Slice{}, pipeline.Forward)
		}
		if rc == vfile.EOF {
			break
		}
	}
	md5State.Process(&pipeline.Slice{}, &pipeline.Slice{}, pipeline.First)

	if md5Result.Sum != writeSum {
		return ferr.New(ferr.Format, "copy.verify", nil)
	}
	return nil
}

func (o *Op) Signal(sig int) error { return nil }

func (o *Op) Close() error { return nil }

func (o *Op) Help() string {
	return "copy SRC -o DST [--overwrite] [-e PASSWORD] [-d PASSWORD] [--verify] [--write-into]"
}

const defaultBufferSize = 64 * 1024

func bufferSizeOr(n uint) int {
	if n == 0 {
		return defaultBufferSize
	}
	return int(n)
}

func boolFlag(b bool, f vfile.OpenFlags) vfile.OpenFlags {
	if b {
		return f
	}
	return 0
}
