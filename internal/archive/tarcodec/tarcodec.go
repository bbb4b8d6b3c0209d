// Package tarcodec implements the tar container codec of spec.md §4.5/§6
// ("TAR (ustar): bit-exact... including block alignment to 512"),
// delegating the actual framing to the standard library's archive/tar,
// which already implements that layout; no ecosystem tar library in the
// retrieved corpus improves on it, and spec.md §1 explicitly treats
// concrete codec implementations as external collaborators.
package tarcodec

import (
	"archive/tar"
	"io"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("tar", "tar")
	archive.RegisterCodec("tar",
		func(r io.Reader) (archive.Reader, error) { return NewReader(r) },
		func(w io.Writer) archive.Writer { return NewWriter(w) },
	)
}

type reader struct {
	tr  *tar.Reader
	cur *tar.Header
}

// NewReader opens r as a tar stream.
func NewReader(r io.Reader) (archive.Reader, error) {
	return &reader{tr: tar.NewReader(r)}, nil
}

func (rd *reader) Next() (archive.Entry, error) {
	hdr, err := rd.tr.Next()
	if err == io.EOF {
		return archive.Entry{}, io.EOF
	}
	if err != nil {
		return archive.Entry{}, ferr.New(ferr.Format, "tarcodec.next", err)
	}
	rd.cur = hdr
	return archive.Entry{
		Name:       hdr.Name,
		Size:       uint64(hdr.Size),
		MTime:      hdr.ModTime,
		UnixAttr:   uint32(hdr.Mode),
		Type:       tarTypeToEntryType(hdr.Typeflag),
		LinkTarget: hdr.Linkname,
	}, nil
}

func tarTypeToEntryType(flag byte) archive.EntryType {
	switch flag {
	case tar.TypeDir:
		return archive.Directory
	case tar.TypeSymlink:
		return archive.Symlink
	case tar.TypeLink:
		return archive.Hardlink
	default:
		return archive.Regular
	}
}

func (rd *reader) Open() (io.ReadCloser, error) {
	return io.NopCloser(rd.tr), nil
}

func (rd *reader) Close() error { return nil }

type writer struct {
	tw *tar.Writer
}

// NewWriter wraps w as a tar stream producer.
func NewWriter(w io.Writer) archive.Writer {
	return &writer{tw: tar.NewWriter(w)}
}

func (w *writer) WriteHeader(e archive.Entry) (io.Writer, error) {
	hdr := &tar.Header{
		Name:     e.Name,
		Size:     int64(e.Size),
		Mode:     int64(e.UnixAttr),
		ModTime:  e.MTime,
		Linkname: e.LinkTarget,
	}
	switch e.Type {
	case archive.Directory:
		hdr.Typeflag = tar.TypeDir
	case archive.Symlink:
		hdr.Typeflag = tar.TypeSymlink
	case archive.Hardlink:
		hdr.Typeflag = tar.TypeLink
	default:
		hdr.Typeflag = tar.TypeReg
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return nil, ferr.New(ferr.System, "tarcodec.write_header", err)
	}
	return w.tw, nil
}

func (w *writer) Close() error {
	return w.tw.Close()
}
