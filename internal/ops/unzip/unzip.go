// Package unzip implements the `unzip` operation: spec.md §8 scenario
// 3's `fcom unzip a.zip --list`, pinning the container to zip and
// exposing --list as a first-class flag (opdesc.Desc.List) rather than
// only via unpack's generic extension sniffing.
package unzip

import (
	"os"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/unpack"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("unzip", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) != 1 {
		return ferr.New(ferr.Argument, "unzip.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	return unpack.Run(o.desc, os.Stdout, "zip", o.desc.List)
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "unzip ARCHIVE.zip [--list] [-C DESTDIR] [--member NAME]..."
}
