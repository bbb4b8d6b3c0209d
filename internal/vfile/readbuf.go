package vfile

// readBuffer is one slot of the read-buffer set: a fixed-size, aligned
// window onto the file at base. valid is cleared on eviction so a
// freshly allocated or evicted slot is preferred over evicting another
// live one (spec.md §3 "LRU-style reuse").
type readBuffer struct {
	data    []byte
	base    int64
	filled  int
	valid   bool
	lastUse uint64
}

var readBufClock uint64

func (b *readBuffer) touch() {
	readBufClock++
	b.lastUse = readBufClock
	b.valid = true
}
