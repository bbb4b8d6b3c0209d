// Package registry is the name→operation lookup of spec.md §2's
// "Module/operation registry": each operation and archive codec
// self-registers from an init() function, grounded on rclone's
// backend/gzip/gzip.go init()+fs.Register pattern (the one real
// registration call site retrieved in the pack).
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
)

// Operation is what every internal/ops implementation provides (spec.md
// §4.3 "Operation interface").
type Operation interface {
	Create(d *opdesc.Desc) error
	Run() error
	Signal(sig int) error
	Close() error
	Help() string
}

// Factory constructs a fresh Operation instance.
type Factory func() Operation

var (
	mu  sync.RWMutex
	ops = map[string]Factory{}
)

// RegisterOp registers name, overwriting any prior registration — the
// same pattern rclone's fs.Register uses for re-registration in tests.
func RegisterOp(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	ops[name] = f
}

// Lookup returns the factory for name, if registered.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := ops[name]
	return f, ok
}

// Names returns every registered operation name, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(ops))
	for n := range ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New constructs and creates an operation by name.
func New(name string, d *opdesc.Desc) (Operation, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, ferr.New(ferr.NotFound, "registry.new", nil)
	}
	op := f()
	if err := op.Create(d); err != nil {
		return nil, err
	}
	return op, nil
}

// extEntry is one codec-extension binding, kept sorted by descending
// extension length so "tar.gz" is tried before "gz" (spec.md §6
// "pack/unpack... resolving by extension").
type extEntry struct {
	ext   string // includes leading dot, lowercase, e.g. ".tar.gz"
	codec string
}

var (
	extMu  sync.RWMutex
	extTbl []extEntry
)

// RegisterExt binds ext (with or without a leading dot) to a codec name
// in the extension-resolution table.
func RegisterExt(ext, codec string) {
	extMu.Lock()
	defer extMu.Unlock()
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	extTbl = append(extTbl, extEntry{ext: strings.ToLower(ext), codec: codec})
	sort.Slice(extTbl, func(i, j int) bool { return len(extTbl[i].ext) > len(extTbl[j].ext) })
}

// ResolveExt matches name's longest known suffix against the extension
// table, returning the codec name and the name with that suffix
// stripped (e.g. "a.tar.gz" → "gzip", "a.tar").
func ResolveExt(name string) (codec, stem string, ok bool) {
	extMu.RLock()
	defer extMu.RUnlock()
	lower := strings.ToLower(name)
	for _, e := range extTbl {
		if strings.HasSuffix(lower, e.ext) {
			return e.codec, name[:len(name)-len(e.ext)], true
		}
	}
	return "", name, false
}
