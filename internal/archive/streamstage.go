package archive

import (
	"io"
	"sync"

	"github.com/stsaz/fcom/internal/pipeline"
)

// NewReaderFunc wraps a compressed byte stream into its decompressed
// form (gzip.NewReader, xz.NewReader, zstd.NewReader...).
type NewReaderFunc func(io.Reader) (io.Reader, error)

// NewWriterFunc wraps a destination so writes to it are compressed
// before reaching w (gzip.NewWriter, xz.NewWriter, zstd.NewWriter...).
type NewWriterFunc func(w io.Writer) (io.WriteCloser, error)

// StreamStage adapts a single-stream compressor/decompressor — treated
// as an external collaborator per spec.md §1's "concrete archive codec
// libraries... consumed as trait-shaped interfaces" — into a
// pipeline.Stage. The actual codec runs on one dedicated background
// goroutine (same allowance spec.md §5 grants zstd's multi-threaded
// encoder: "isolated inside the codec, do not mutate shared state");
// Process itself never blocks.
type StreamStage struct {
	name    string
	newR    NewReaderFunc
	newW    NewWriterFunc
	onWake  func() // posts a resume task to the operation's loop
	inQ     *chunkQueue
	outQ    *chunkQueue
	started bool
	doneCh  chan error // closed when the background goroutine exits
	workErr error
	closeFirstOnce sync.Once
}

// NewCompressStage builds a Stage that runs raw bytes through newW.
func NewCompressStage(name string, newW NewWriterFunc, onWake func()) *StreamStage {
	return &StreamStage{name: name, newW: newW, onWake: onWake}
}

// NewDecompressStage builds a Stage that runs compressed bytes through
// newR, producing raw bytes.
func NewDecompressStage(name string, newR NewReaderFunc, onWake func()) *StreamStage {
	return &StreamStage{name: name, newR: newR, onWake: onWake}
}

// Open satisfies pipeline.Stage; StreamStage is its own State, since one
// instance never serves more than one chain attachment.
func (s *StreamStage) Open(cmd any) (pipeline.State, error) {
	s.inQ = newChunkQueue()
	s.outQ = newChunkQueue()
	s.outQ.resume = s.onWake
	s.doneCh = make(chan error, 1)
	return s, nil
}

func (s *StreamStage) start() {
	s.started = true
	go func() {
		var err error
		if s.newW != nil {
			w, werr := s.newW(s.outQ)
			if werr != nil {
				err = werr
			} else {
				_, cerr := io.Copy(w, s.inQ)
				if cerr != nil {
					err = cerr
				} else if cerr = w.Close(); cerr != nil {
					err = cerr
				}
			}
		} else {
			r, rerr := s.newR(s.inQ)
			if rerr != nil {
				err = rerr
			} else {
				_, cerr := io.Copy(s.outQ, r)
				if cerr != nil && cerr != io.EOF {
					err = cerr
				}
			}
		}
		s.outQ.closeQ()
		s.doneCh <- err
		close(s.doneCh)
	}()
}

// Process implements pipeline.State. It feeds any pushed input into the
// background codec, drains any buffered output, and infers end-of-input
// from the First flag transitioning true (spec.md §4.2: "FIRST...
// reflects first non-done" — for a stage with a real upstream producer,
// First only becomes true once that producer is done).
func (s *StreamStage) Process(in, out *pipeline.Slice, flags pipeline.Flags) pipeline.RC {
	if !s.started {
		s.start()
	}
	if !in.Empty() {
		b := make([]byte, len(in.Data))
		copy(b, in.Data)
		s.inQ.push(b)
		in.Clear()
	}
	if flags&pipeline.First != 0 {
		s.closeFirstOnce.Do(func() { s.inQ.closeQ() })
	}

	if b, ok := s.outQ.tryPop(); ok {
		out.Data = b
		return pipeline.RCData
	}
	if s.outQ.closedAndEmpty() {
		select {
		case err := <-s.doneCh:
			s.workErr = err
		default:
		}
		if s.workErr != nil {
			return pipeline.RCErr
		}
		return pipeline.RCDone
	}
	return pipeline.RCAsync
}

// Close implements pipeline.State. If the background goroutine is still
// running (the chain was torn down early, e.g. on error upstream), its
// input is closed so it unblocks and exits rather than leaking.
func (s *StreamStage) Close() error {
	if s.inQ != nil {
		s.inQ.closeQ()
	}
	if !s.started || s.doneCh == nil {
		return s.workErr
	}
	if err, ok := <-s.doneCh; ok {
		s.workErr = err
	}
	return s.workErr
}
