// Package zstdcodec wires klauspost/compress/zstd into the pipeline
// kernel. There is no teacher source for zstd (rclone's DataDog/zstd
// dependency was dropped — see DESIGN.md); klauspost/compress is used
// because it is pure Go, avoiding the cgo dependency DataDog/zstd
// carries. (gzipcodec uses the stdlib compress/gzip, not klauspost.)
package zstdcodec

import (
	"io"
	"runtime"

	"github.com/klauspost/compress/zstd"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("zst", "zstd")
}

// NewCompress returns a multi-threaded zstd compressor stage (spec.md
// §5: "the --workers option... is honoured... zstd multi-threaded
// encoder; such threads are isolated inside the codec").
func NewCompress(workers int, resume func()) *archive.StreamStage {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return archive.NewCompressStage("zstd", func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(workers))
	}, resume)
}

// NewDecompress returns a zstd decompressor stage.
func NewDecompress(resume func()) *archive.StreamStage {
	return archive.NewDecompressStage("unzstd", func(r io.Reader) (io.Reader, error) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}, resume)
}
