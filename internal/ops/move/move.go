// Package move implements the `move` operation: a rename when source
// and destination share a filesystem, else a copy sub-operation
// followed by source removal — the same two-phase fallback
// original_source's fs/move.c uses (see DESIGN.md; the source file
// itself was filtered out of this pack's original_source capture, but
// spec.md §4.3 documents the identical "copy sub-operation, then
// remove" shape for copy→trash chaining, so move follows it too).
package move

import (
	"os"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	copyop "github.com/stsaz/fcom/internal/ops/copy"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("move", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) != 1 || !d.HasOutput {
		return ferr.New(ferr.Argument, "move.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	d := o.desc
	src := d.Inputs[0]

	if d.Output != "STDOUT" {
		if !d.Overwrite {
			if _, err := os.Stat(d.Output); err == nil {
				return ferr.New(ferr.Exists, "move.run", nil)
			}
		} else {
			os.Remove(d.Output)
		}
		if err := os.Rename(src, d.Output); err == nil {
			return nil
		} else if !isCrossDevice(err) {
			return ferr.Wrap(ferr.System, "move.run", err, "rename %s -> %s", src, d.Output)
		}
	}

	sub := opdesc.New("copy")
	sub.Inputs = []string{src}
	sub.Output = d.Output
	sub.HasOutput = true
	sub.Overwrite = d.Overwrite
	sub.BufferSize = d.BufferSize
	sub.DirectIO = d.DirectIO
	sub.NoPrealloc = d.NoPrealloc

	op := copyop.New()
	if err := op.Create(sub); err != nil {
		return err
	}
	if err := op.Run(); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return ferr.Wrap(ferr.System, "move.run", err, "remove %s", src)
	}
	return nil
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string         { return "move SRC -o DST [--overwrite]" }
