// Package ferr implements the error taxonomy shared by every fcom
// operation: a single typed Error wrapping an underlying cause, so
// callers can dispatch on Kind with errors.As instead of string
// matching, while stderr output keeps the original message chain.
package ferr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// System wraps an OS-level error (syscall failure, I/O error).
	System Kind = iota
	// Format means the input violates a parser's grammar or invariants.
	Format
	// Argument means a user-supplied argument was invalid.
	Argument
	// NotFound means a path was missing when presence was required.
	NotFound
	// Exists means a path was present when absence was required.
	Exists
	// Cancelled means a stop signal arrived during the operation.
	Cancelled
	// Internal means an assert-like invariant was violated; panics in
	// debug builds (see Assert).
	Internal
)

func (k Kind) String() string {
	switch k {
	case System:
		return "system"
	case Format:
		return "format"
	case Argument:
		return "argument"
	case NotFound:
		return "not-found"
	case Exists:
		return "exists"
	case Cancelled:
		return "cancelled"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single error type fcom produces. Op names the component
// or operation that failed ("vfile.open", "sync.diff", ...).
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

// New builds an Error. cause may be nil (e.g. Argument/Format errors with
// no underlying OS cause).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Wrap annotates cause with a message using github.com/pkg/errors, the
// same annotation style backend/gzip uses, then classifies it. Use this
// at codec call sites that want a human-readable chain ("reading zip
// central directory: unexpected EOF") instead of a bare Kind.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Cause: pkgerrors.Wrapf(cause, format, args...)}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ferr.SystemErr) (etc.) work against the bare Kind
// sentinels below.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == Kind(k)
}

type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// Sentinels for errors.Is(err, ferr.SystemErr) style checks.
var (
	SystemErr    error = kindSentinel(System)
	FormatErr    error = kindSentinel(Format)
	ArgumentErr  error = kindSentinel(Argument)
	NotFoundErr  error = kindSentinel(NotFound)
	ExistsErr    error = kindSentinel(Exists)
	CancelledErr error = kindSentinel(Cancelled)
	InternalErr  error = kindSentinel(Internal)
)

// KindOf reports the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Assert panics with an Internal error if cond is false. Stage
// implementations use this for protocol invariants spec.md §7 calls
// "assert-like invariant violations" (e.g. a stage returning DATA with
// empty output twice in a row).
func Assert(cond bool, msg string) {
	if !cond {
		panic(New(Internal, "assert", errors.New(msg)))
	}
}

// Recover turns a panic produced by Assert (or any panic at all) into a
// returned *Error at the top of main or a sub-operation boundary. It must
// itself be the deferred call (defer ferr.Recover(&err)): recover only
// stops a panic when called directly by a deferred function.
func Recover(into *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*into = e
		return
	}
	*into = New(Internal, "panic", fmt.Errorf("%v", r))
}
