package sync

import (
	"path/filepath"
	"time"
)

// ViewOptions controls view's filtering and presentation, per spec.md
// §4.6's "view(diff, props, flags)".
type ViewOptions struct {
	StatusMask  Status // rows whose Kind bit isn't in this mask are dropped (0 = all kinds)
	Include     []string
	Exclude     []string
	NewerThan   time.Time // drop rows whose relevant mtime is older than this
	ShowDirs    bool
	SwapSides   bool
}

// View rebuilds a filtered, presentation-adjusted copy of diff.
func View(diff []Entry, opt ViewOptions) []Entry {
	var out []Entry
	for _, e := range diff {
		if e.Status&Skipped != 0 {
			continue
		}
		if e.IsDir && !opt.ShowDirs {
			continue
		}
		if opt.StatusMask != 0 && e.Status&Kind&opt.StatusMask == 0 {
			continue
		}
		if !passesGlobs(e, opt.Include, opt.Exclude) {
			continue
		}
		if !opt.NewerThan.IsZero() && !isNewerThan(e, opt.NewerThan) {
			continue
		}
		if opt.SwapSides {
			e = swap(e)
		}
		out = append(out, e)
	}
	return out
}

func passesGlobs(e Entry, include, exclude []string) bool {
	name := e.Path()
	for _, g := range exclude {
		if ok, _ := filepath.Match(g, name); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, g := range include {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

func isNewerThan(e Entry, cutoff time.Time) bool {
	mt := e.LeftMTime
	if mt.IsZero() || e.RightMTime.After(mt) {
		mt = e.RightMTime
	}
	return mt.After(cutoff)
}

// swap remaps LEFT<->RIGHT, NEWER<->OLDER, LARGER<->SMALLER for
// presentation only, per spec.md §4.6's swap-sides flag.
func swap(e Entry) Entry {
	e.LeftPath, e.RightPath = e.RightPath, e.LeftPath
	e.LeftSize, e.RightSize = e.RightSize, e.LeftSize
	e.LeftMTime, e.RightMTime = e.RightMTime, e.LeftMTime
	switch {
	case e.Status&LeftOnly != 0:
		e.Status = e.Status&^LeftOnly | RightOnly
	case e.Status&RightOnly != 0:
		e.Status = e.Status&^RightOnly | LeftOnly
	}
	if e.Status&ModNewer != 0 {
		e.Status = e.Status&^ModNewer | ModOlder
	} else if e.Status&ModOlder != 0 {
		e.Status = e.Status&^ModOlder | ModNewer
	}
	if e.Status&ModLarger != 0 {
		e.Status = e.Status&^ModLarger | ModSmaller
	} else if e.Status&ModSmaller != 0 {
		e.Status = e.Status&^ModSmaller | ModLarger
	}
	return e
}

// Label renders the one-line status code end-to-end scenario 4 expects
// (MOV/UPD/ADD/DEL/EQ).
func (e *Entry) Label() string {
	switch {
	case e.Status&Moved != 0:
		return "MOV"
	case e.Status&NotEqual != 0:
		return "UPD"
	case e.Status&LeftOnly != 0:
		return "ADD"
	case e.Status&RightOnly != 0:
		return "DEL"
	case e.Status&Equal != 0:
		return "EQ"
	default:
		return "?"
	}
}
