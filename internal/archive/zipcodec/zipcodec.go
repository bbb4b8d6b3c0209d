// Package zipcodec implements the ZIP container codec of spec.md §6
// ("ZIP... including central directory placement"), delegating to the
// standard library's archive/zip, which already produces a spec-conformant
// central directory; see tarcodec's package doc for the same "concrete
// codec is an external collaborator" reasoning.
//
// archive/zip's Reader needs an io.ReaderAt plus a known size (it seeks
// to the trailing central directory), so NewReader here takes those
// directly rather than a plain io.Reader; callers read the whole archive
// into memory or open it as a regular *os.File first.
package zipcodec

import (
	"archive/zip"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("zip", "zip")
	// Not registered in archive.RegisterCodec's generic OpenReaderFunc
	// table: zip needs io.ReaderAt plus a known size to seek to its
	// trailing central directory, unlike every streaming codec there.
	// internal/ops callers needing zip open it via NewReader directly.

	// Method IDs per the APPNOTE registry: 93 is Zstandard, 95 is XZ.
	// archive/zip only ships Store(0)/Deflate(8); registering these two
	// lets `fcom zip --method zstd` (scenario 3) produce members a
	// second fcom process can also read back, using the same two
	// compression libraries the other codec packages already depend on.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(currentZstdLevel()))
	})
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(errReader{err})
		}
		return dec.IOReadCloser()
	})
	zip.RegisterCompressor(zipMethodXZ, func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	})
	zip.RegisterDecompressor(zipMethodXZ, func(r io.Reader) io.ReadCloser {
		xr, err := xz.NewReader(r)
		if err != nil {
			return io.NopCloser(errReader{err})
		}
		return io.NopCloser(xr)
	})
}

const (
	zipMethodZstd uint16 = 93
	zipMethodXZ   uint16 = 95
)

// archive/zip's RegisterCompressor takes no per-call parameters, so the
// requested zstd level (there is no per-entry level for XZ in this
// package) is threaded through this package-level variable rather than
// a constructor argument; SetZstdLevel is called once by the zip
// operation before it starts writing, which is safe since fcom runs one
// archive-producing operation at a time per process.
var zstdLevelMu sync.Mutex
var zstdLevel = zstd.SpeedDefault

// SetZstdLevel maps a `--level` 1-22 style value onto klauspost/zstd's
// discrete speed presets for subsequent NewWriterMethod calls using
// method "zstd".
func SetZstdLevel(level int) {
	zstdLevelMu.Lock()
	defer zstdLevelMu.Unlock()
	switch {
	case level <= 0:
		zstdLevel = zstd.SpeedDefault
	case level <= 3:
		zstdLevel = zstd.SpeedFastest
	case level <= 9:
		zstdLevel = zstd.SpeedDefault
	case level <= 19:
		zstdLevel = zstd.SpeedBetterCompression
	default:
		zstdLevel = zstd.SpeedBestCompression
	}
}

func currentZstdLevel() zstd.EncoderLevel {
	zstdLevelMu.Lock()
	defer zstdLevelMu.Unlock()
	return zstdLevel
}

// errReader turns a setup error (bad header) into a Read error, since
// zip.RegisterDecompressor's factory signature has no error return.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type reader struct {
	zr  *zip.Reader
	idx int
}

// NewReader opens ra (size bytes) as a zip central-directory index.
func NewReader(ra io.ReaderAt, size int64) (archive.Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, ferr.New(ferr.Format, "zipcodec.open", err)
	}
	return &reader{zr: zr}, nil
}

func (r *reader) Next() (archive.Entry, error) {
	if r.idx >= len(r.zr.File) {
		return archive.Entry{}, io.EOF
	}
	f := r.zr.File[r.idx]
	r.idx++
	typ := archive.Regular
	if f.FileInfo().IsDir() {
		typ = archive.Directory
	}
	return archive.Entry{
		Name:           f.Name,
		Size:           f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
		MTime:          f.Modified,
		UnixAttr:       f.ExternalAttrs >> 16,
		WinAttr:        f.ExternalAttrs & 0xFF,
		Type:           typ,
	}, nil
}

func (r *reader) Open() (io.ReadCloser, error) {
	if r.idx == 0 || r.idx > len(r.zr.File) {
		return nil, ferr.New(ferr.Internal, "zipcodec.open_member", nil)
	}
	f := r.zr.File[r.idx-1]
	rc, err := f.Open()
	if err != nil {
		return nil, ferr.New(ferr.System, "zipcodec.open_member", err)
	}
	return rc, nil
}

func (r *reader) Close() error { return nil }

type writer struct {
	zw     *zip.Writer
	method uint16
}

// NewWriter wraps w as a zip stream producer using Deflate, archive/zip's
// historical default.
func NewWriter(w io.Writer) archive.Writer {
	return &writer{zw: zip.NewWriter(w), method: zip.Deflate}
}

// NewWriterMethod is NewWriter with an explicit per-member compression
// method ("store", "deflate", "zstd", "xz" — spec.md §8 scenario 3's
// `--method zstd`); an unrecognized method falls back to Deflate.
func NewWriterMethod(w io.Writer, method string) archive.Writer {
	m := zip.Deflate
	switch method {
	case "store":
		m = zip.Store
	case "deflate", "":
		m = zip.Deflate
	case "zstd":
		m = zipMethodZstd
	case "xz":
		m = zipMethodXZ
	}
	return &writer{zw: zip.NewWriter(w), method: m}
}

func (w *writer) WriteHeader(e archive.Entry) (io.Writer, error) {
	fh := &zip.FileHeader{
		Name:               e.Name,
		Modified:           e.MTime,
		UncompressedSize64: e.Size,
		Method:             w.method,
	}
	fh.ExternalAttrs = e.UnixAttr<<16 | e.WinAttr
	if e.Type == archive.Directory {
		fh.Name = e.Name + "/"
		fh.Method = zip.Store
	}
	fw, err := w.zw.CreateHeader(fh)
	if err != nil {
		return nil, ferr.New(ferr.System, "zipcodec.write_header", err)
	}
	return fw, nil
}

func (w *writer) Close() error {
	return w.zw.Close()
}
