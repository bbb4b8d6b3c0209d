// Package gzipcodec adapts rclone's backend/gzip/gzip.go — the one real,
// non-test source file retrieved for an rclone compression backend —
// into a pipeline stage pair. rclone's version wraps a remote Fs/Object
// (a cloud filesystem abstraction out of scope here); this version keeps
// its init()-registration idiom and github.com/pkg/errors annotation
// style, retargeted at internal/pipeline.Stage instead of fs.Fs.
package gzipcodec

import (
	"compress/gzip"
	"io"

	"github.com/pkg/errors"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("gz", "gzip")
}

// NewCompress returns a pipeline stage that gzip-compresses bytes
// flowing through it. resume, if non-nil, is called whenever the
// background compressor produces a new chunk, so the owning operation
// can re-drive the chain (spec.md §4.1's ASYNC re-entry).
func NewCompress(resume func()) *archive.StreamStage {
	return archive.NewCompressStage("gzip", func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	}, resume)
}

// NewDecompress returns a pipeline stage that gunzips bytes flowing
// through it.
func NewDecompress(resume func()) *archive.StreamStage {
	return archive.NewDecompressStage("gunzip", func(r io.Reader) (io.Reader, error) {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzipcodec: bad header")
		}
		return gr, nil
	}, resume)
}
