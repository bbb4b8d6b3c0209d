// Package dirtree implements the file-name tree of spec.md §3 ("Directory
// snapshot": entries carrying name/size/attr bits/uid-gid/mtime/optional
// CRC32, with blocks attachable to directory entries so a tree can
// lazily include discovered subdirectories or expanded zip contents).
//
// Grounded on the documented shape of rclone's fs/dirtree package
// (kept in the workspace as dirtree_test.go, its only surviving file):
// a Tree is a map from directory path to the block of entries it
// contains, exactly the "node per path fragment with an attachable
// child block" shape that test documents (TestDirTreeAdd adds a leaf,
// TestDirTreeAddDir additionally seeds an empty block at the new
// directory's own path; TestDirTreeCheckParents fills in any missing
// ancestor directories). internal/sync walks two Trees with a paired
// cursor instead of walking one tree against a live backend, per
// spec.md §4.6.
package dirtree

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Entry is one file-tree node, per spec.md §3's Directory snapshot entry.
type Entry struct {
	Name     string
	IsDir    bool
	Size     int64
	UnixAttr uint32
	WinAttr  uint32
	UID      uint32
	GID      uint32
	MTime    time.Time
	CRC32    uint32
	HasCRC32 bool
}

// Tree maps a directory's path (root is "") to the entries it directly
// contains. A directory Entry's own path (joined with its parent's) may
// or may not have a block in the map yet; CheckParents/AddDir fill in
// any missing ones so every directory that is ever referenced ends up
// with its own (possibly empty) block.
type Tree struct {
	m map[string][]Entry
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{m: map[string][]Entry{}}
}

// parentDir returns the directory component of a "/"-joined relative
// path, or "" if path has none.
func parentDir(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Add inserts e (a leaf, not itself creating a block) under fullPath's
// parent directory. e.Name is normalized to NFC so that two trees
// scanned from filesystems with different Unicode normalization
// conventions (e.g. HFS+'s NFD vs. ext4's usual NFC) still compare and
// sort consistently — the same concern rclone's fs/march addresses by
// depending on golang.org/x/text/unicode/norm for cross-remote name
// comparison.
func (t *Tree) Add(fullPath string, e Entry) {
	e.Name = norm.NFC.String(e.Name)
	dir := parentDir(fullPath)
	t.m[dir] = append(t.m[dir], e)
}

// AddDir inserts e as a directory entry under fullPath's parent, and
// additionally seeds (if absent) an empty block at fullPath itself so
// the directory shows up even if CheckParents/scanning never visits it.
func (t *Tree) AddDir(fullPath string, e Entry) {
	e.IsDir = true
	t.Add(fullPath, e)
	if _, ok := t.m[fullPath]; !ok {
		t.m[fullPath] = nil
	}
}

// Find looks up fullPath's entry, returning its parent directory and a
// pointer to the entry (nil if not present). The returned pointer
// aliases the tree's internal storage.
func (t *Tree) Find(fullPath string) (parent string, entry *Entry) {
	dir := parentDir(fullPath)
	name := fullPath[len(dir):]
	name = strings.TrimPrefix(name, "/")
	for i := range t.m[dir] {
		if t.m[dir][i].Name == name {
			return dir, &t.m[dir][i]
		}
	}
	return dir, nil
}

// CheckParent ensures parent's block exists, contains a directory entry
// for dir, and that dir itself has a (possibly empty) block.
func (t *Tree) CheckParent(parent, dir string) {
	name := strings.TrimPrefix(dir[len(parent):], "/")
	if name == "" {
		name = dir
	}
	found := false
	for _, e := range t.m[parent] {
		if e.Name == name {
			found = true
			break
		}
	}
	if !found {
		t.m[parent] = append(t.m[parent], Entry{Name: name, IsDir: true})
	}
	if _, ok := t.m[dir]; !ok {
		t.m[dir] = nil
	}
}

// CheckParents walks every directory block currently in the tree and,
// for each, ensures its parent has a matching directory Entry (creating
// intermediate ancestor blocks as needed). Runs to a fixed point since
// fixing one gap can reveal another one level up.
func (t *Tree) CheckParents(root string) {
	for {
		changed := false
		for _, dir := range t.Dirs() {
			if dir == root {
				continue
			}
			parent := parentDir(dir)
			name := strings.TrimPrefix(dir[len(parent):], "/")
			if name == "" {
				name = dir
			}
			found := false
			for _, e := range t.m[parent] {
				if e.Name == name {
					found = true
					break
				}
			}
			if !found {
				t.CheckParent(parent, dir)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// Sort orders every block's entries by name.
func (t *Tree) Sort() {
	for dir := range t.m {
		entries := t.m[dir]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
}

// Dirs returns every directory path present in the tree, sorted.
func (t *Tree) Dirs() []string {
	dirs := make([]string, 0, len(t.m))
	for dir := range t.m {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Block returns the entries directly inside dir (nil slice, not an
// error, if dir is absent or empty).
func (t *Tree) Block(dir string) []Entry {
	return t.m[dir]
}

// Has reports whether dir has a block at all (even an empty one).
func (t *Tree) Has(dir string) bool {
	_, ok := t.m[dir]
	return ok
}

// EnsureBlock creates an empty block at dir if it does not already
// have one.
func (t *Tree) EnsureBlock(dir string) {
	if _, ok := t.m[dir]; !ok {
		t.m[dir] = nil
	}
}

// Prune removes every directory block whose path is not in keep (and
// drops directory entries pointing at pruned subtrees), in-place.
func (t *Tree) Prune(keep map[string]bool) error {
	for dir, entries := range t.m {
		if dir != "" && !keep[dir] && !isUnderKept(dir, keep) {
			delete(t.m, dir)
			continue
		}
		kept := entries[:0]
		for _, e := range entries {
			full := join(dir, e.Name)
			if e.IsDir && !keep[full] && !isUnderKept(full, keep) {
				continue
			}
			kept = append(kept, e)
		}
		t.m[dir] = kept
	}
	return nil
}

func isUnderKept(dir string, keep map[string]bool) bool {
	for d := range keep {
		if d == dir || strings.HasPrefix(dir, d+"/") {
			return true
		}
	}
	return false
}

// String renders the tree in rclone dirtree's debug format: one
// "path/\n" header per non-empty block (the root block's header is
// "/"), followed by its entries indented two spaces, a trailing "/" on
// directory entries.
func (t *Tree) String() string {
	var sb strings.Builder
	for _, dir := range t.Dirs() {
		entries := t.m[dir]
		if len(entries) == 0 {
			continue
		}
		header := dir + "/"
		if dir == "" {
			header = "/"
		}
		fmt.Fprintf(&sb, "%s\n", header)
		for _, e := range entries {
			name := e.Name
			if e.IsDir {
				name += "/"
			}
			fmt.Fprintf(&sb, "  %s\n", name)
		}
	}
	return sb.String()
}
