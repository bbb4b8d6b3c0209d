// Package trash implements the `trash` operation: move a path to the
// desktop trash can where available, else permanently delete it.
//
// Grounded on spec.md §6's "Environment" paragraph ("the process's
// environment is passed through to spawned sub-operations (e.g., `gio
// trash` on Linux for the `trash` fallback)"). It shells out to `gio
// trash` (the GIO/GVFS trash helper shipped with most Linux desktop
// environments) on any platform where `gio` is on PATH; if it isn't, or
// the command fails, it falls back to permanent removal via
// os.Remove/os.RemoveAll.
package trash

import (
	"os"
	"os/exec"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("trash", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) == 0 {
		return ferr.New(ferr.Argument, "trash.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	for _, path := range o.desc.Inputs {
		if err := moveToTrash(path); err != nil {
			return err
		}
	}
	return nil
}

// moveToTrash tries the desktop trash helper first and falls back to
// permanent removal if it isn't available or fails.
func moveToTrash(path string) error {
	if _, err := os.Stat(path); err != nil {
		return ferr.Wrap(ferr.NotFound, "trash.run", err, "stat %s", path)
	}
	if err := gioTrash(path); err == nil {
		return nil
	}
	return removePermanently(path)
}

func gioTrash(path string) error {
	gio, err := exec.LookPath("gio")
	if err != nil {
		return err
	}
	cmd := exec.Command(gio, "trash", path)
	cmd.Env = os.Environ()
	return cmd.Run()
}

func removePermanently(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "trash.run", err, "stat %s", path)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return ferr.Wrap(ferr.System, "trash.run", err, "remove %s", path)
	}
	return nil
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string         { return "trash FILE..." }
