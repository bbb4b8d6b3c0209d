package archive

import (
	"io"
	"sync"
)

// chunkQueue bridges the pipeline kernel's non-blocking Process calls to
// a blocking io.Reader/io.Writer, for use by a dedicated background
// goroutine running a stdlib/ecosystem codec (gzip.Reader, xz.Writer,
// zstd.Encoder...). Pushes and pops never block; only Read (called from
// the background goroutine, never from the loop thread) blocks waiting
// for data.
type chunkQueue struct {
	mu     sync.Mutex
	buf    [][]byte
	closed bool
	notify chan struct{}
	resume func()
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{notify: make(chan struct{}, 1)}
}

func (q *chunkQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// push appends b without blocking. Safe to call from the loop thread.
func (q *chunkQueue) push(b []byte) {
	q.mu.Lock()
	q.buf = append(q.buf, b)
	resume := q.resume
	q.mu.Unlock()
	q.signal()
	if resume != nil {
		resume()
	}
}

// closeQ marks the queue as having no further input; Read returns io.EOF
// once it has drained. Safe to call from the loop thread.
func (q *chunkQueue) closeQ() {
	q.mu.Lock()
	q.closed = true
	resume := q.resume
	q.mu.Unlock()
	q.signal()
	if resume != nil {
		resume()
	}
}

// tryPop removes and returns the oldest buffered chunk, if any, without
// blocking. Safe to call from the loop thread.
func (q *chunkQueue) tryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil, false
	}
	b := q.buf[0]
	q.buf = q.buf[1:]
	return b, true
}

func (q *chunkQueue) closedAndEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.buf) == 0
}

// Read implements io.Reader; only the background codec goroutine may
// call it, since it blocks until data is pushed or the queue is closed.
func (q *chunkQueue) Read(p []byte) (int, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			b := q.buf[0]
			n := copy(p, b)
			if n < len(b) {
				q.buf[0] = b[n:]
			} else {
				q.buf = q.buf[1:]
			}
			q.mu.Unlock()
			return n, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		<-q.notify
	}
}

// Write implements io.Writer for the output side; called only from the
// background codec goroutine. It copies p since the caller may reuse its
// buffer.
func (q *chunkQueue) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	q.push(b)
	return len(p), nil
}
