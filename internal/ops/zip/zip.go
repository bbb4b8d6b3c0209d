// Package zip implements the `zip` operation: spec.md §8 scenario 3's
// `fcom zip dir1 dir2 -o a.zip --method zstd --level 10` — pack, with
// the container pinned to zip regardless of the -o extension, so
// --method/--level are honoured even when the output isn't named *.zip.
package zip

import (
	"github.com/stsaz/fcom/internal/archive/zipcodec"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/pack"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("zip", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) == 0 || !d.HasOutput {
		return ferr.New(ferr.Argument, "zip.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	if o.desc.Method == "zstd" {
		zipcodec.SetZstdLevel(o.desc.Level)
	}
	return pack.Run(o.desc, "zip")
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "zip INPUT... -o OUTPUT.zip [--method store|deflate|zstd|xz] [--level N]"
}
