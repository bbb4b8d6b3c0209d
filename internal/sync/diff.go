// Package sync implements the directory sync engine of spec.md §4.6: a
// paired-cursor comparison of two internal/dirtree.Tree snapshots, with
// rename detection via a hash index and a filtered view over the raw
// diff. Grounded on the shape documented by rclone's fs/march package
// (kept as march_test.go): march.Marcher drives SrcOnly/DstOnly/Match
// callbacks from a merged, name-sorted walk of two live fs.Fs trees;
// this package adapts that same three-way dispatch (LeftOnly/RightOnly/
// Matched) to two already-built dirtree.Trees instead of two live
// remotes, since spec.md's Non-goals exclude any network backend.
package sync

import (
	"sort"
	"strings"
	"time"

	"github.com/stsaz/fcom/internal/dirtree"
)

// Status is the bitset spec.md §4.6 attaches to each diff row: exactly
// one of the "kind" bits plus zero or more modifier bits for the NEQ
// case.
type Status uint32

const (
	LeftOnly Status = 1 << iota
	RightOnly
	Equal
	NotEqual
	Moved

	ModNewer   // left mtime > right mtime
	ModOlder   // left mtime < right mtime
	ModLarger  // left size > right size
	ModSmaller // left size < right size
	ModAttr    // mode/attr bits differ

	// Skipped marks a row that View drops. Diff itself never sets it: it
	// folds each rename pair into the earlier row in place, turning that
	// row into a single Moved entry.
	Skipped
)

// Kind masks out the modifier bits.
const Kind = LeftOnly | RightOnly | Equal | NotEqual | Moved

// Entry is one row of the diff result.
type Entry struct {
	LeftPath  string
	RightPath string
	IsDir     bool
	LeftSize  int64
	RightSize int64
	LeftMTime time.Time
	RightMTime time.Time
	Status    Status
}

// Path returns whichever of LeftPath/RightPath is populated, preferring
// LeftPath (both are set for Moved/Equal/NotEqual rows).
func (e *Entry) Path() string {
	if e.LeftPath != "" {
		return e.LeftPath
	}
	return e.RightPath
}

// RenameMatch selects the rename-detection tuple, resolving spec.md §9's
// open question about whether MOVED correlation requires an unchanged
// basename (see SPEC_FULL.md §D.1 and DESIGN.md).
type RenameMatch int

const (
	// MatchMetadataOnly correlates on (is-dir, size, mtime) alone, so a
	// file renamed to a different basename (and/or directory) with
	// unchanged content is still detected as MOVED. This is the default.
	MatchMetadataOnly RenameMatch = iota
	// MatchNameAndMetadata additionally requires the basename to match,
	// selected via --strict-rename (opdesc.Desc.StrictRename).
	MatchNameAndMetadata
)

// Options configures the comparison per spec.md §4.6.
type Options struct {
	NoAttr     bool          // don't compare mode/attr bits
	NoTime     bool          // don't compare mtime
	Quantize   time.Duration // mtime comparison granularity (0 = exact)
	RenameMode RenameMatch
}

type flatEntry struct {
	path string
	e    dirtree.Entry
}

// flatten produces every entry in t as a full-path-sorted list: one
// item per directory/file, including directory entries themselves (so
// an empty directory still participates in the diff).
func flatten(t *dirtree.Tree) []flatEntry {
	var out []flatEntry
	for _, dir := range t.Dirs() {
		for _, e := range t.Block(dir) {
			full := e.Name
			if dir != "" {
				full = dir + "/" + e.Name
			}
			out = append(out, flatEntry{path: full, e: e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// renameKey is the hash index tuple of spec.md §4.6: "(is-dir,
// mtime-quantized, size, name — subject to option masks)".
type renameKey struct {
	isDir bool
	mtime int64
	size  int64
	name  string
}

func quantize(t time.Time, q time.Duration) int64 {
	if q <= 0 {
		return t.UnixNano()
	}
	return t.Unix() / int64(q/time.Second)
}

func makeKey(path string, e dirtree.Entry, opt Options) renameKey {
	k := renameKey{isDir: e.IsDir, size: e.Size, mtime: quantize(e.MTime, opt.Quantize)}
	if opt.RenameMode == MatchNameAndMetadata {
		if i := strings.LastIndexByte(path, '/'); i >= 0 {
			k.name = path[i+1:]
		} else {
			k.name = path
		}
	}
	return k
}

type pending struct {
	idx  int // index into the result slice
	left bool
}

// Diff walks left and right with the paired cursor of spec.md §4.6,
// emitting one Entry per LEFT-only, RIGHT-only, EQ, or NEQ comparison,
// then folding matched rename pairs into MOVED rows.
func Diff(left, right *dirtree.Tree, opt Options) []Entry {
	ls := flatten(left)
	rs := flatten(right)

	var result []Entry
	index := map[renameKey]pending{}

	tryMatchMove := func(path string, e dirtree.Entry, isLeft bool) {
		key := makeKey(path, e, opt)
		if p, ok := index[key]; ok && p.left != isLeft {
			other := &result[p.idx]
			if isLeft {
				other.LeftPath = path
				other.LeftSize = e.Size
				other.LeftMTime = e.MTime
			} else {
				other.RightPath = path
				other.RightSize = e.Size
				other.RightMTime = e.MTime
			}
			other.Status = Moved
			delete(index, key)
			return
		}
		idx := len(result)
		entry := Entry{IsDir: e.IsDir}
		if isLeft {
			entry.LeftPath = path
			entry.LeftSize = e.Size
			entry.LeftMTime = e.MTime
			entry.Status = LeftOnly
		} else {
			entry.RightPath = path
			entry.RightSize = e.Size
			entry.RightMTime = e.MTime
			entry.Status = RightOnly
		}
		result = append(result, entry)
		index[key] = pending{idx: idx, left: isLeft}
	}

	i, j := 0, 0
	for i < len(ls) && j < len(rs) {
		switch {
		case ls[i].path < rs[j].path:
			tryMatchMove(ls[i].path, ls[i].e, true)
			i++
		case ls[i].path > rs[j].path:
			tryMatchMove(rs[j].path, rs[j].e, false)
			j++
		default:
			result = append(result, compare(ls[i].path, ls[i].e, rs[j].e, opt))
			i++
			j++
		}
	}
	for ; i < len(ls); i++ {
		tryMatchMove(ls[i].path, ls[i].e, true)
	}
	for ; j < len(rs); j++ {
		tryMatchMove(rs[j].path, rs[j].e, false)
	}
	return result
}

// compare implements spec.md §4.6 step 3 for a name match.
func compare(path string, l, r dirtree.Entry, opt Options) Entry {
	e := Entry{
		LeftPath: path, RightPath: path, IsDir: l.IsDir,
		LeftSize: l.Size, RightSize: r.Size,
		LeftMTime: l.MTime, RightMTime: r.MTime,
	}
	var mods Status
	neq := false
	if l.Size != r.Size {
		neq = true
		if l.Size > r.Size {
			mods |= ModLarger
		} else {
			mods |= ModSmaller
		}
	}
	if !opt.NoAttr && (l.UnixAttr != r.UnixAttr || l.WinAttr != r.WinAttr) {
		neq = true
		mods |= ModAttr
	}
	if !opt.NoTime {
		lq, rq := quantize(l.MTime, opt.Quantize), quantize(r.MTime, opt.Quantize)
		if lq != rq {
			neq = true
			if lq > rq {
				mods |= ModNewer
			} else {
				mods |= ModOlder
			}
		}
	}
	if neq {
		e.Status = NotEqual | mods
	} else {
		e.Status = Equal
	}
	return e
}
