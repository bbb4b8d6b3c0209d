// Package sync implements the `sync` operation: compute the diff
// between a left and a right directory tree (or a stored left
// snapshot) and act on it — copy new/changed entries, trash removed
// ones, rename moved ones — per spec.md §4.6.
//
// Grounded on spec.md §4.6's "Sync actions" list directly; the
// structural diff/view/rename-detection machinery itself lives in
// internal/sync (already built), so this package is purely the
// dispatcher that turns each selected internal/sync.Entry into a
// copy/trash/rename sub-operation, the same "construct a sub-desc, run
// it, then react to the result" shape internal/ops/move already uses
// for its rename-or-copy fallback.
package sync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stsaz/fcom/internal/dirtree"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	copyop "github.com/stsaz/fcom/internal/ops/copy"
	trashop "github.com/stsaz/fcom/internal/ops/trash"
	"github.com/stsaz/fcom/internal/registry"
	"github.com/stsaz/fcom/internal/stats"
	dsync "github.com/stsaz/fcom/internal/sync"
)

func init() {
	registry.RegisterOp("sync", func() registry.Operation { return &Op{} })
}

type Op struct {
	desc  *opdesc.Desc
	stats *stats.Stats
	out   io.Writer
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) != 1 || !d.HasOutput {
		return ferr.New(ferr.Argument, "sync.create", nil)
	}
	o.desc = d
	o.stats = stats.New()
	o.out = os.Stdout
	return nil
}

func (o *Op) Run() error {
	d := o.desc
	leftRoot, rightRoot := d.Inputs[0], d.Output

	leftTree, err := o.loadLeft(leftRoot)
	if err != nil {
		return err
	}

	if d.SnapshotOut != "" {
		return o.writeSnapshotOut(leftTree)
	}

	rightTree, err := dirtree.Scan(rightRoot, dirtree.ScanOptions{ZipExpand: d.ZipExpand})
	if err != nil {
		return err
	}

	opt := dsync.Options{NoAttr: d.NoAttr, NoTime: d.NoTime, Quantize: 2 * time.Second}
	if d.StrictRename {
		opt.RenameMode = dsync.MatchNameAndMetadata
	}
	diff := dsync.Diff(leftTree, rightTree, opt)

	view := dsync.View(diff, o.viewOptions())
	o.seedCounts(view)

	for i := range view {
		e := &view[i]
		if err := o.act(e, leftRoot, rightRoot); err != nil {
			o.stats.Error()
			return err
		}
		fmt.Fprintf(o.out, "%s %s\n", e.Label(), e.Path())
		o.stats.AdjustSyncCount(uint32(e.Status&dsync.Kind), -1)
	}
	return nil
}

func (o *Op) loadLeft(leftRoot string) (*dirtree.Tree, error) {
	if o.desc.SourceSnap != "" {
		f, err := os.Open(o.desc.SourceSnap)
		if err != nil {
			return nil, ferr.Wrap(ferr.NotFound, "sync.run", err, "open %s", o.desc.SourceSnap)
		}
		defer f.Close()
		return dsync.ReadSnapshot(f)
	}
	return dirtree.Scan(leftRoot, dirtree.ScanOptions{ZipExpand: o.desc.ZipExpand})
}

func (o *Op) writeSnapshotOut(leftTree *dirtree.Tree) error {
	f, err := os.Create(o.desc.SnapshotOut)
	if err != nil {
		return ferr.Wrap(ferr.System, "sync.run", err, "create %s", o.desc.SnapshotOut)
	}
	defer f.Close()
	return dsync.WriteSnapshot(f, leftTree)
}

func (o *Op) viewOptions() dsync.ViewOptions {
	d := o.desc
	opt := dsync.ViewOptions{
		StatusMask: parseDiffMask(d.DiffMask),
		Include:    d.Include,
		Exclude:    d.Exclude,
		ShowDirs:   d.ShowDirs,
		SwapSides:  d.SwapSides,
	}
	if d.NewerThanStr != "" {
		if t, err := time.Parse(time.RFC3339, d.NewerThanStr); err == nil {
			opt.NewerThan = t
		}
	}
	return opt
}

// parseDiffMask turns a comma-separated list of MOV/UPD/ADD/DEL/EQ
// labels into a Status mask; an empty mask (including the "" default
// from spec.md §8 scenario 4's `--diff=""`) selects every actionable
// kind but excludes EQ, since EQ entries carry no action to report.
func parseDiffMask(s string) dsync.Status {
	if strings.TrimSpace(s) == "" {
		return dsync.LeftOnly | dsync.RightOnly | dsync.NotEqual | dsync.Moved
	}
	var mask dsync.Status
	for _, tok := range strings.Split(s, ",") {
		switch strings.ToUpper(strings.TrimSpace(tok)) {
		case "ADD":
			mask |= dsync.LeftOnly
		case "DEL":
			mask |= dsync.RightOnly
		case "UPD":
			mask |= dsync.NotEqual
		case "MOV":
			mask |= dsync.Moved
		case "EQ":
			mask |= dsync.Equal
		}
	}
	return mask
}

func (o *Op) seedCounts(view []dsync.Entry) {
	for _, e := range view {
		o.stats.AdjustSyncCount(uint32(e.Status&dsync.Kind), 1)
	}
}

// act performs the single sub-operation spec.md §4.6's "Sync actions"
// table prescribes for e's kind.
func (o *Op) act(e *dsync.Entry, leftRoot, rightRoot string) error {
	switch {
	case e.Status&dsync.Moved != 0:
		return o.moveRight(e, rightRoot)
	case e.Status&dsync.LeftOnly != 0:
		return o.copyToRight(e, leftRoot, rightRoot, false)
	case e.Status&dsync.NotEqual != 0:
		if o.desc.ReplaceDate {
			return o.replaceDate(e, leftRoot, rightRoot)
		}
		return o.copyToRight(e, leftRoot, rightRoot, true)
	case e.Status&dsync.RightOnly != 0:
		return o.trashRight(e, rightRoot)
	default: // Equal
		return nil
	}
}

func (o *Op) copyToRight(e *dsync.Entry, leftRoot, rightRoot string, overwrite bool) error {
	src := filepath.Join(leftRoot, e.LeftPath)
	dst := filepath.Join(rightRoot, e.LeftPath)
	if e.IsDir {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return ferr.Wrap(ferr.System, "sync.run", err, "mkdir %s", dst)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ferr.Wrap(ferr.System, "sync.run", err, "mkdir %s", filepath.Dir(dst))
	}

	sub := opdesc.New("copy")
	sub.Inputs = []string{src}
	sub.Output = dst
	sub.HasOutput = true
	sub.Overwrite = overwrite
	sub.BufferSize = o.desc.BufferSize
	sub.Test = o.desc.Test

	op := copyop.New()
	if err := op.Create(sub); err != nil {
		return err
	}
	return op.Run()
}

func (o *Op) replaceDate(e *dsync.Entry, leftRoot, rightRoot string) error {
	dst := filepath.Join(rightRoot, e.LeftPath)
	return os.Chtimes(dst, e.LeftMTime, e.LeftMTime)
}

func (o *Op) trashRight(e *dsync.Entry, rightRoot string) error {
	sub := opdesc.New("trash")
	sub.Inputs = []string{filepath.Join(rightRoot, e.RightPath)}
	sub.Test = o.desc.Test

	op := &trashop.Op{}
	if err := op.Create(sub); err != nil {
		return err
	}
	return op.Run()
}

func (o *Op) moveRight(e *dsync.Entry, rightRoot string) error {
	oldPath := filepath.Join(rightRoot, e.RightPath)
	newPath := filepath.Join(rightRoot, e.LeftPath)
	if oldPath == newPath {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return ferr.Wrap(ferr.System, "sync.run", err, "mkdir %s", filepath.Dir(newPath))
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return ferr.Wrap(ferr.System, "sync.run", err, "rename %s -> %s", oldPath, newPath)
	}
	return nil
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "sync LEFT -o RIGHT [--diff=MASK] [--replace-date] [--snapshot OUT] [--source-snap FILE]"
}
