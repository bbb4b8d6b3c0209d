package vfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/stsaz/fcom/internal/ferr"
)

// File is the buffered file object of spec.md §4.4. At most one
// in-flight read or write is ever outstanding on a File — all calls
// arrive from the single internal/engine loop thread in call order
// (spec.md §4.4 "Ordering guarantees"), so File itself needs no
// internal locking.
type File struct {
	conf  Config
	osf   *os.File
	name  string
	flags OpenFlags

	pos  int64 // current logical offset
	size int64 // known logical size (grows on write, shrinks on trunc)

	preallocWatermark int64 // spec.md §3 "preallocation watermark"
	usingDirectIO     bool

	readBufs []*readBuffer // fixed-size aligned buffers, LRU-ish reuse
	writeBuf *writeBuffer

	pendingMTime  int64 // unix nanos; 0 if unset
	hasPendingMT  bool
	behaviour     Behaviour
}

// Create allocates a File object per spec.md §4.4 create(conf).
func Create(conf Config) *File {
	conf = normalizeConfig(conf)
	return &File{conf: conf}
}

// Open opens name under flags. Spec.md §4.4: for write/readwrite against
// a missing parent directory, one recursive mkdir is attempted then the
// open is retried once; on Linux, EINVAL from O_DIRECT falls back to
// buffered I/O and CREATENEW is downgraded to CREATE so a partially
// created file is preserved.
func (f *File) Open(name string, flags OpenFlags) error {
	f.name = name
	f.flags = flags

	if flags.has(Stdin) {
		f.osf = os.Stdin
		return nil
	}
	if flags.has(Stdout) {
		f.osf = os.Stdout
		return nil
	}

	osFlags, err := toOSFlags(flags)
	if err != nil {
		return ferr.New(ferr.Argument, "vfile.open", err)
	}

	osf, err := openWithDirectIO(name, osFlags, flags.has(DirectIO))
	if err != nil {
		if isNotExist(err) && (flags.has(Write) || flags.has(ReadWrite)) {
			if mkErr := os.MkdirAll(filepath.Dir(name), 0o777); mkErr == nil {
				osf, err = openWithDirectIO(name, osFlags, flags.has(DirectIO))
			}
		}
	}
	if err != nil && flags.has(DirectIO) && isEinval(err) {
		// O_DIRECT unsupported: fall back to buffered I/O; downgrade
		// CREATENEW to CREATE so a partially created file is kept
		// rather than re-failing with EEXIST on retry.
		osFlags &^= directFlagMask()
		if flags.has(CreateNew) {
			osFlags = osFlags&^createNewOSFlag() | createOSFlag()
		}
		osf, err = os.OpenFile(name, osFlags, 0o666)
		f.usingDirectIO = false
	} else if err == nil {
		f.usingDirectIO = flags.has(DirectIO)
	}
	if err != nil {
		if isNotExist(err) {
			return ferr.New(ferr.NotFound, "vfile.open", err)
		}
		if isExist(err) {
			return ferr.New(ferr.Exists, "vfile.open", err)
		}
		return ferr.New(ferr.System, "vfile.open", err)
	}
	f.osf = osf

	if fi, statErr := osf.Stat(); statErr == nil {
		f.size = fi.Size()
	}
	return nil
}

// Read implements spec.md §4.4 read(f, slice, offset). offset -1 means
// "current position." A cache lookup at the sector-aligned-down offset
// is attempted first; on miss a single ReadAt is issued and cached for
// the next call.
func (f *File) Read(p []byte, offset int64) (n int, rc RC, err error) {
	if offset < 0 {
		offset = f.pos
	}
	if f.flags.has(Stdin) {
		n, err = io.ReadFull(f.osf, p)
		f.pos += int64(n)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return n, EOF, nil
		}
		if err != nil {
			return n, Err, ferr.New(ferr.System, "vfile.read", err)
		}
		return n, OK, nil
	}

	align := f.alignSize()
	base := offset / int64(align) * int64(align)
	if buf := f.lookupReadBuffer(base); buf != nil {
		got := copy(p, buf.data[offset-base:buf.filled])
		f.pos = offset + int64(got)
		if got == 0 {
			return 0, EOF, nil
		}
		return got, OK, nil
	}

	buf := f.allocReadBuffer(align)
	m, rerr := f.osf.ReadAt(buf.data, base)
	buf.base = base
	buf.filled = m
	if rerr != nil && rerr != io.EOF {
		return 0, Err, ferr.New(ferr.System, "vfile.read", rerr)
	}
	if int64(m) < offset-base {
		f.pos = offset
		if int64(m) < f.size-base || f.size == 0 {
			f.size = base + int64(m)
		}
		return 0, EOF, nil
	}
	got := copy(p, buf.data[offset-base:m])
	f.pos = offset + int64(got)
	if m < len(buf.data) {
		// short read: this is the current end of file
		newSize := base + int64(m)
		if newSize > f.size {
			f.size = newSize
		} else {
			f.size = newSize
		}
	}
	if got == 0 {
		return 0, EOF, nil
	}
	return got, OK, nil
}

// Write implements spec.md §4.4 write(f, slice, offset): coalesces into
// the write buffer until it fills, then issues a single WriteAt at its
// home offset. FakeWrite (--test) discards data successfully, producing
// no on-disk bytes (spec.md §8 invariant).
func (f *File) Write(p []byte, offset int64) (rc RC, err error) {
	if offset < 0 {
		offset = f.pos
	}
	end := offset + int64(len(p))
	if end > f.size {
		f.size = end
	}
	f.pos = end

	if f.flags.has(FakeWrite) {
		return OK, nil
	}
	if f.flags.has(Stdout) {
		if _, werr := f.osf.Write(p); werr != nil {
			return Err, ferr.New(ferr.System, "vfile.write", werr)
		}
		return OK, nil
	}

	if err := f.ensurePrealloc(end); err != nil {
		return Err, err
	}

	if f.writeBuf == nil {
		f.writeBuf = newWriteBuffer(f.conf.BufferSize, f.alignSize())
	}
	remaining := p
	at := offset
	for len(remaining) > 0 {
		if !f.writeBuf.empty() && at != f.writeBuf.base+int64(f.writeBuf.filled) {
			if err := f.flushWriteBuffer(); err != nil {
				return Err, err
			}
		}
		n := f.writeBuf.add(at, remaining)
		remaining = remaining[n:]
		at += int64(n)
		if f.writeBuf.full() {
			if ferr := f.flushWriteBuffer(); ferr != nil {
				return Err, ferr
			}
		}
	}
	return OK, nil
}

func (f *File) flushWriteBuffer() error {
	if f.writeBuf == nil || f.writeBuf.empty() {
		return nil
	}
	data, homeOffset, pad := f.writeBuf.drain(f.usingDirectIO)
	_ = pad
	if _, err := f.osf.WriteAt(data, homeOffset); err != nil {
		return ferr.New(ferr.System, "vfile.write", err)
	}
	return nil
}

// Flush forces the pending write buffer out (spec.md §4.4 flush()).
func (f *File) Flush() error { return f.flushWriteBuffer() }

// Trunc sets the physical size to size, or to the current logical
// offset if size < 0 (spec.md §4.4 trunc()). On error the NoPrealloc
// flag is set so subsequent writes don't keep retrying fallocate.
func (f *File) Trunc(size int64) error {
	if size < 0 {
		size = f.pos
	}
	if err := f.osf.Truncate(size); err != nil {
		f.flags |= NoPrealloc
		return ferr.New(ferr.System, "vfile.trunc", err)
	}
	f.size = size
	if size > f.preallocWatermark {
		f.preallocWatermark = size
	}
	return nil
}

// Behave applies a page-cache / preallocation hint (spec.md §4.4
// behaviour()).
func (f *File) Behave(b Behaviour) error {
	f.behaviour = b
	if b == TruncPrealloc {
		return f.Trunc(f.size)
	}
	return applyBehaviourHint(f.osf, b)
}

// Info returns the metadata spec.md's Info names.
func (f *File) Info() (Info, error) {
	fi, err := f.osf.Stat()
	if err != nil {
		return Info{}, ferr.New(ferr.System, "vfile.info", err)
	}
	return statToInfo(fi), nil
}

// SetMTime records a pending mtime to be applied at Close (spec.md §3
// "pending mtime").
func (f *File) SetMTime(unixNano int64) {
	f.pendingMTime = unixNano
	f.hasPendingMT = true
}

// FD returns the underlying descriptor; acquire transfers ownership
// (the caller becomes responsible for closing it) per spec.md §4.4
// fd(f, GET|ACQUIRE).
func (f *File) FD(acquire bool) uintptr {
	fd := f.osf.Fd()
	if acquire {
		f.osf = nil
	}
	return fd
}

// Close flushes any outstanding write buffer, truncates to the logical
// size if preallocation overshot it, applies a pending mtime, and
// releases the handle. Outstanding writes are flushed first so the
// invariant "size at close equals max(offset+bytes) across all writes"
// (spec.md §8) always holds.
func (f *File) Close() error {
	if f.osf == nil {
		return nil
	}
	var firstErr error
	if err := f.flushWriteBuffer(); err != nil && firstErr == nil {
		firstErr = err
	}
	if (f.flags.has(Write) || f.flags.has(ReadWrite)) && !f.flags.has(FakeWrite) &&
		!f.flags.has(Stdin) && !f.flags.has(Stdout) {
		if f.preallocWatermark > f.size {
			if err := f.osf.Truncate(f.size); err != nil && firstErr == nil {
				firstErr = ferr.New(ferr.System, "vfile.close", err)
			}
		}
		if f.hasPendingMT {
			if err := setFileMTime(f.name, f.pendingMTime); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if f.osf != os.Stdin && f.osf != os.Stdout {
		if err := f.osf.Close(); err != nil && firstErr == nil {
			firstErr = ferr.New(ferr.System, "vfile.close", err)
		}
	}
	f.osf = nil
	return firstErr
}

func (f *File) alignSize() int {
	if f.usingDirectIO {
		return sectorAlign
	}
	if f.conf.BufferSize > 0 {
		return f.conf.BufferSize
	}
	return defaultBufferSize
}

func (f *File) lookupReadBuffer(base int64) *readBuffer {
	for _, b := range f.readBufs {
		if b.valid && b.base == base {
			return b
		}
	}
	return nil
}

// allocReadBuffer returns a buffer to (re)use, evicting the
// least-recently-used one once the read-buffer set is full (spec.md §3
// "N fixed-size aligned buffers with LRU-style reuse").
func (f *File) allocReadBuffer(size int) *readBuffer {
	for _, b := range f.readBufs {
		if !b.valid {
			b.touch()
			return b
		}
	}
	if len(f.readBufs) < f.conf.ReadBuffers {
		b := &readBuffer{data: make([]byte, size)}
		f.readBufs = append(f.readBufs, b)
		b.touch()
		return b
	}
	oldest := f.readBufs[0]
	for _, b := range f.readBufs {
		if b.lastUse < oldest.lastUse {
			oldest = b
		}
	}
	oldest.valid = false
	oldest.touch()
	return oldest
}
