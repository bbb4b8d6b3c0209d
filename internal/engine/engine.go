// Package engine implements the single-threaded task queue, timer, and
// event loop of spec.md §4.1 / §5: one goroutine owns a task queue and a
// timer heap, woken through a one-slot channel whenever Post or TimerSet is called
// from another goroutine (sub-operation completions, the two halves of
// a pack/unpack pipe, or a background read completing).
//
// This is enrichment, not teacher-grounded: rclone runs operations on
// goroutines-plus-context, not a single reactor thread, so there is no
// rclone file to adapt here. The reactor shape — post/consume tasks, a
// min-heap of absolute-deadline timers, a wakeup signal so the loop's
// blocking wait can be interrupted from any goroutine — is modeled on
// the structure of joeycumines/go-utilpkg's eventloop package
// (loop.go/poller_linux.go/timer machinery), which is the only repo in
// the retrieved corpus implementing a comparable single-threaded
// reactor; that package's code is reference material only (it is not
// the teacher), so nothing is copied from it — only the shape.
package engine

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Task is a unit of work posted to the loop.
type Task struct {
	fn     func()
	queued bool
}

// NewTask creates a reusable Task. Posting the same *Task twice before it
// runs is idempotent (spec.md §4.1: "post/consume tasks... idempotent if
// already queued").
func NewTask(fn func()) *Task { return &Task{fn: fn} }

// Timer is a handle returned by TimerSet; pass it back to TimerSet with
// interval 0 to cancel.
type Timer struct {
	id       uint64
	interval time.Duration // 0 = cancelled, <0 stored as one-shot internally
	oneShot  bool
	fn       func()
	deadline time.Time
	index    int // heap index, maintained by container/heap
}

// ClockMode selects monotonic or wall-clock time for Clock.
type ClockMode int

const (
	ClockMonotonic ClockMode = iota
	ClockUTC
)

// Loop is the single-threaded cooperative scheduler of spec.md §4.1.
type Loop struct {
	mu      sync.Mutex
	tasks   []*Task
	timers  timerHeap
	nextTID uint64
	wake    chan struct{}
	exitCh  chan int
	exited  bool
	code    int
	now     time.Time // frozen once per tick, per spec.md "consistent within a single loop tick"
}

// New creates a Loop. It does not start running until Run is called.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		exitCh: make(chan int, 1),
	}
}

// Post enqueues t; wakes the loop. Safe to call from any goroutine.
func (l *Loop) Post(t *Task) {
	l.mu.Lock()
	if !t.queued {
		t.queued = true
		l.tasks = append(l.tasks, t)
	}
	l.mu.Unlock()
	l.signal()
}

// TimerSet schedules fn. interval > 0 means periodic; interval < 0 means
// a single shot after |interval|; interval == 0 cancels t (spec.md
// §4.1). Returns the (possibly new) timer handle.
func (l *Loop) TimerSet(t *Timer, interval time.Duration, fn func()) *Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t != nil && t.index >= 0 {
		heap.Remove(&l.timers, t.index)
	}
	if interval == 0 {
		return nil
	}
	if t == nil {
		l.nextTID++
		t = &Timer{id: l.nextTID}
	}
	t.fn = fn
	t.index = -1
	if interval < 0 {
		t.oneShot = true
		t.interval = -interval
	} else {
		t.oneShot = false
		t.interval = interval
	}
	t.deadline = time.Now().Add(t.interval)
	heap.Push(&l.timers, t)
	l.signal()
	return t
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Exit stops the loop once the current tick completes; idempotent.
func (l *Loop) Exit(code int) {
	l.mu.Lock()
	if !l.exited {
		l.exited = true
		l.code = code
	}
	l.mu.Unlock()
	select {
	case l.exitCh <- code:
	default:
	}
	l.signal()
}

// Run drains tasks and fires timers until Exit is called, returning the
// exit code.
func (l *Loop) Run(ctx context.Context) int {
	for {
		l.mu.Lock()
		l.now = time.Now()
		runnable := l.tasks
		l.tasks = nil
		for _, t := range runnable {
			t.queued = false
		}
		var waitFor time.Duration = -1 // block indefinitely
		if l.timers.Len() > 0 {
			waitFor = l.timers[0].deadline.Sub(l.now)
			if waitFor < 0 {
				waitFor = 0
			}
		}
		exited := l.exited
		code := l.code
		l.mu.Unlock()

		for _, t := range runnable {
			t.fn()
		}
		l.fireDueTimers()

		if exited && len(runnable) == 0 {
			return code
		}

		select {
		case <-ctx.Done():
			return l.code
		case <-l.exitCh:
			continue
		case <-l.wake:
			continue
		case <-after(waitFor):
			continue
		}
	}
}

func after(d time.Duration) <-chan time.Time {
	if d < 0 {
		return nil // nil channel blocks forever in select, i.e. wait for wake/exit only
	}
	return time.After(d)
}

func (l *Loop) fireDueTimers() {
	for {
		l.mu.Lock()
		if l.timers.Len() == 0 {
			l.mu.Unlock()
			return
		}
		top := l.timers[0]
		if top.deadline.After(time.Now()) {
			l.mu.Unlock()
			return
		}
		heap.Pop(&l.timers)
		if top.oneShot {
			top.index = -1
		} else {
			top.deadline = time.Now().Add(top.interval)
			top.index = -1
			heap.Push(&l.timers, top)
		}
		fn := top.fn
		l.mu.Unlock()
		fn()
	}
}

// Clock returns the loop's current tick time. Outside Run (e.g. before
// the first tick) it falls back to the live clock.
func (l *Loop) Clock(mode ClockMode) time.Time {
	l.mu.Lock()
	now := l.now
	l.mu.Unlock()
	if now.IsZero() {
		now = time.Now()
	}
	if mode == ClockUTC {
		return now.UTC()
	}
	return now
}

// timerHeap is a container/heap of *Timer ordered by deadline.
type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
