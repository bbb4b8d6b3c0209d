// Package log provides the level-gated logging sink every fcom
// component writes through. The shape (global level, Printf-style
// per-level funcs, a single writer) mirrors what rclone's fs/log
// concern is documented to do by its surviving test file
// (fs/log/slog_test.go); the teacher's own implementation did not
// survive retrieval, so the sink itself is new code built to that
// documented contract.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "?"
	}
}

var (
	mu     sync.Mutex
	level  = LevelInfo
	writer io.Writer = os.Stderr
)

// SetLevel sets the global verbosity threshold. -v raises it to Debug,
// --debug additionally enables pipeline topology dumps (spec.md §4.2,
// §7 "debug mode adds topology prints").
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects the sink, used by tests and by --out STDOUT mode
// (spec.md §7: "written to stderr, or stdout when stdout is free").
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	writer = w
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	cur, w := level, writer
	mu.Unlock()
	if l > cur {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(w, "%s %-5s %s\n", ts, l, fmt.Sprintf(format, args...))
}

// Errorf always prints: operation failures, final error summaries.
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }

// Infof prints at default verbosity: one line per completed operation.
func Infof(format string, args ...any) { logf(LevelInfo, format, args...) }

// Debugf prints under -v: per-stage trace (spec.md §7 "verbose mode
// adds per-stage trace").
func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }

// Tracef prints under --debug: filter-chain topology dumps.
func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }
