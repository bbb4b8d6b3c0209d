// Package xzcodec wires ulikunitz/xz into the pipeline kernel. xz is one
// of rclone's own real go.mod dependencies (vendored, used by rclone's
// archive-handling backends), so it carries over unchanged rather than
// being substituted for an unrelated library.
package xzcodec

import (
	"io"

	"github.com/ulikunitz/xz"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("xz", "xz")
}

// NewCompress returns an xz compressor stage.
func NewCompress(resume func()) *archive.StreamStage {
	return archive.NewCompressStage("xz", func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	}, resume)
}

// NewDecompress returns an xz decompressor stage.
func NewDecompress(resume func()) *archive.StreamStage {
	return archive.NewDecompressStage("unxz", func(r io.Reader) (io.Reader, error) {
		return xz.NewReader(r)
	}, resume)
}
