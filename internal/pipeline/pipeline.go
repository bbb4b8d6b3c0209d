// Package pipeline implements the filter pipeline kernel of spec.md §4.2:
// a dynamic chain of stages, arena-indexed (spec.md §9's re-architecture
// note replaces the original intrusive linked list with a slice indexed
// by cursor position), driven by stage return codes that steer the
// scheduler.
//
// The stage-protocol table and its kernel actions are implemented
// exactly as spec.md §4.2 describes it. There is no comparable
// third-party dataflow kernel anywhere in the retrieved corpus shaped
// like this return-code-steered scheduler (see DESIGN.md); the closest
// documented analogue is rclone's fs/sync pipe (kept only as
// pipe_test.go), which is a much simpler unidirectional byte pipe and
// only confirms the general "producer pushes, consumer pulls" shape.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/stsaz/fcom/internal/ferr"
)

// RC is a stage return code (spec.md §4.2 table).
type RC int

const (
	RCData       RC = iota // out holds produced data
	RCMore                 // need more input
	RCBack                 // need more input; keep out as upstream's in
	RCDone                 // this stage finished producing
	RCOutputDone           // this stage and all upstream are finished
	RCNextDone             // split the chain; downstream must finish first
	RCAsync                // waiting for an external event
	RCFin                  // terminate the operation successfully
	RCErr                  // fatal
	RCSysErr               // fatal, OS error
)

func (rc RC) String() string {
	switch rc {
	case RCData:
		return "DATA"
	case RCMore:
		return "MORE"
	case RCBack:
		return "BACK"
	case RCDone:
		return "DONE"
	case RCOutputDone:
		return "OUTPUTDONE"
	case RCNextDone:
		return "NEXTDONE"
	case RCAsync:
		return "ASYNC"
	case RCFin:
		return "FIN"
	case RCErr:
		return "ERR"
	case RCSysErr:
		return "SYSERR"
	default:
		return "?"
	}
}

// Flags are the bit flags a stage sees on entry to Process.
type Flags int

const (
	// Forward is set when the caller just pushed input.
	Forward Flags = 1 << iota
	// First is set when the stage is currently first-non-done in the chain.
	First
	// Last is set when the stage is currently last-non-done in the chain.
	Last
	// SkipErr turns per-entry failures into warnings instead of aborting
	// the whole chain (spec.md §4.2 "skip_err mode"; see DESIGN.md /
	// SPEC_FULL.md §D.2 for the chosen uniform semantics: continue after
	// any per-entry failure, record it, never abort the archive as a
	// whole).
	SkipErr
)

// Slice is the data window a stage reads from and writes to. It never
// copies across a Process call; ownership transfers per the kernel
// action table below.
type Slice struct {
	Data []byte
}

func (s *Slice) Empty() bool { return len(s.Data) == 0 }
func (s *Slice) Clear()      { s.Data = nil }

// State is stage-owned opaque state, returned by a Stage's Open and
// passed back into every subsequent Process/Close call.
type State interface {
	// Process advances the stage by one step. in/out are the stage's
	// input/output windows; flags carries Forward/First/Last/SkipErr.
	Process(in, out *Slice, flags Flags) RC
	// Close releases stage-owned resources. Called exactly once per
	// opened stage, in reverse attachment order (spec.md §8 invariant).
	Close() error
}

// Stage is the open/process/close interface every filter implements
// (spec.md §4.2). Open returns ErrSkip to mean the stage is inert
// ("SKIP (from open) — Stage is inert").
type Stage interface {
	Open(cmd any) (State, error)
}

// ErrSkip signals from Open that the stage should not be attached; the
// kernel treats it as an immediate DONE.
var ErrSkip = ferr.New(ferr.Internal, "pipeline.skip", nil)

// node is one arena-indexed chain entry.
type node struct {
	name            string
	state           State
	done            bool // DONE: finished producing, stays to let downstream drain
	closed          bool
	lastWasEmptyOut bool // protocol-violation detector (see checkEmptyOutput)
}

// InsertPos selects where Insert places a new stage relative to the
// current cursor (spec.md §4.2 ctrl(FILTADD...)).
type InsertPos int

const (
	InsertAfterCursor InsertPos = iota
	InsertBeforeCursor
	InsertLast
)

// Chain is the ordered, arena-indexed sequence of stages composing one
// operation's pipeline (spec.md §3 "Filter-pipeline chain").
type Chain struct {
	nodes   []*node
	cursor  int // index of the stage currently being driven
	splitAt int // -1 when no NEXTDONE split is outstanding; else the split point
	cmd     any
	debug   func(string)
	errored bool
}

// New creates an empty chain. cmd is the operation descriptor passed to
// every Stage.Open/Process call (kept as `any` here so pipeline stays
// independent of opdesc, matching spec.md's "small set of reusable
// stream stages" composed by many different operations).
func New(cmd any) *Chain {
	return &Chain{cmd: cmd, splitAt: -1}
}

// SetDebug installs a callback invoked with a rendered topology string
// after every chain mutation (spec.md §4.2 "debug-log the new
// topology").
func (c *Chain) SetDebug(fn func(string)) { c.debug = fn }

// Append adds a stage at the end of the chain and opens it immediately.
func (c *Chain) Append(name string, stage Stage) error {
	return c.insertAt(len(c.nodes), name, stage)
}

// Insert places a stage relative to the cursor per InsertPos, re-scans
// the chain, and redumps the topology (spec.md §4.2).
func (c *Chain) Insert(pos InsertPos, name string, stage Stage) error {
	idx := len(c.nodes)
	switch pos {
	case InsertAfterCursor:
		idx = c.cursor + 1
	case InsertBeforeCursor:
		idx = c.cursor
	case InsertLast:
		idx = len(c.nodes)
	}
	return c.insertAt(idx, name, stage)
}

func (c *Chain) insertAt(idx int, name string, stage Stage) error {
	st, err := stage.Open(c.cmd)
	if err == ErrSkip {
		c.logTopology()
		return nil // inert: not attached, treated as immediate DONE
	}
	if err != nil {
		return err
	}
	n := &node{name: name, state: st}
	c.nodes = append(c.nodes, nil)
	copy(c.nodes[idx+1:], c.nodes[idx:])
	c.nodes[idx] = n
	if idx <= c.cursor {
		c.cursor++
	}
	c.logTopology()
	return nil
}

func (c *Chain) logTopology() {
	if c.debug == nil {
		return
	}
	names := make([]string, 0, len(c.nodes))
	for _, n := range c.nodes {
		tag := n.name
		if n.done {
			tag += "(done)"
		}
		names = append(names, tag)
	}
	c.debug(strings.Join(names, " -> "))
}

// firstNonDone / lastNonDone implement spec.md's "FIRST/LAST flags
// reflect 'first non-done' rather than absolute position — a done stage
// is transparent."
func (c *Chain) firstNonDone() int {
	for i, n := range c.nodes {
		if !n.done {
			return i
		}
	}
	return -1
}

func (c *Chain) lastNonDone() int {
	for i := len(c.nodes) - 1; i >= 0; i-- {
		if !c.nodes[i].done {
			return i
		}
	}
	return -1
}

func (c *Chain) flagsFor(idx int, forward bool) Flags {
	var f Flags
	if forward {
		f |= Forward
	}
	if idx == c.firstNonDone() {
		f |= First
	}
	if idx == c.lastNonDone() {
		f |= Last
	}
	return f
}

// Closed reports whether the chain has run to completion (every node
// closed).
func (c *Chain) Closed() bool {
	for _, n := range c.nodes {
		if !n.closed {
			return false
		}
	}
	return true
}

// Run drives the chain until it blocks on RCAsync, finishes (RCFin / all
// nodes done-and-closed), or fails (RCErr/RCSysErr/internal protocol
// violation). It returns the terminal RC.
func (c *Chain) Run() (RC, error) {
	if len(c.nodes) == 0 {
		return RCFin, nil
	}
	in := &Slice{}
	out := &Slice{}
	forward := false

	for {
		if c.cursor < 0 || c.cursor >= len(c.nodes) {
			return RCErr, ferr.New(ferr.Internal, "pipeline.run", fmt.Errorf("cursor %d out of range", c.cursor))
		}
		n := c.nodes[c.cursor]
		if n.done {
			// transparent: step past a done stage in whichever
			// direction we were moving
			if forward {
				c.cursor++
				if c.cursor >= len(c.nodes) {
					return c.finishClose()
				}
				continue
			}
			// A done stage never accepts more input and never
			// produces more output; bouncing MORE back onto it means
			// every stage from here to the start of the chain has
			// nothing left to give, so the whole operation is
			// finished rather than merely "waiting for input."
			return c.finishClose()
		}

		flags := c.flagsFor(c.cursor, forward)
		rc := n.state.Process(in, out, flags)

		switch rc {
		case RCData:
			if out.Empty() {
				if n.lastWasEmptyOut {
					return RCErr, ferr.New(ferr.Internal, "pipeline.protocol", fmt.Errorf("stage %q returned DATA with empty output twice in a row", n.name))
				}
				n.lastWasEmptyOut = true
			} else {
				n.lastWasEmptyOut = false
			}
			if flags&Last != 0 {
				return RCErr, ferr.New(ferr.Internal, "pipeline.protocol", fmt.Errorf("last stage %q returned DATA", n.name))
			}
			in.Data, out.Data = out.Data, nil
			forward = true
			c.cursor++

		case RCMore:
			in.Clear()
			forward = false
			c.cursor--
			if c.cursor < 0 {
				return RCMore, nil // upstream of the whole chain needs input
			}

		case RCBack:
			in.Data, out.Data = out.Data, nil
			forward = false
			c.cursor--
			if c.cursor < 0 {
				return RCBack, nil
			}

		case RCDone:
			if flags&Last != 0 {
				if err := c.closeNode(c.cursor); err != nil {
					return RCErr, err
				}
			} else {
				n.done = true
			}
			c.logTopology()
			forward = true
			c.cursor++
			if c.cursor >= len(c.nodes) {
				return c.finishClose()
			}

		case RCOutputDone:
			for i := 0; i <= c.cursor; i++ {
				if !c.nodes[i].closed {
					if err := c.closeNode(i); err != nil {
						return RCErr, err
					}
				}
			}
			c.logTopology()
			forward = true
			c.cursor++
			if c.cursor >= len(c.nodes) {
				return c.finishClose()
			}

		case RCNextDone:
			if c.splitAt != -1 {
				return RCErr, ferr.New(ferr.Internal, "pipeline.protocol", fmt.Errorf("more than one simultaneous NEXTDONE split"))
			}
			c.splitAt = c.cursor
			downstreamRC, err := c.runDownstreamToCompletion(c.cursor+1, in, out)
			c.splitAt = -1
			if err != nil {
				return RCErr, err
			}
			if downstreamRC == RCErr || downstreamRC == RCSysErr {
				return downstreamRC, nil
			}
			// rejoin: resume driving this stage
			forward = false
			continue

		case RCAsync:
			return RCAsync, nil

		case RCFin:
			return c.finishClose()

		case RCErr, RCSysErr:
			c.errored = true
			c.closeAll()
			return rc, ferr.New(ferr.System, "pipeline.stage:"+n.name, fmt.Errorf("stage reported %s", rc))

		default:
			return RCErr, ferr.New(ferr.Internal, "pipeline.protocol", fmt.Errorf("stage %q returned unknown rc %d", n.name, rc))
		}
	}
}

// runDownstreamToCompletion drives stages after splitAt until they all
// report DONE/OUTPUTDONE/FIN, without touching the stage at splitAt
// (spec.md §4.2 NEXTDONE: "downstream must finish their current batch
// before it produces more").
func (c *Chain) runDownstreamToCompletion(start int, in, out *Slice) (RC, error) {
	saved := c.cursor
	defer func() { c.cursor = saved }()
	c.cursor = start
	forward := true
	for c.cursor < len(c.nodes) {
		n := c.nodes[c.cursor]
		if n.done {
			c.cursor++
			continue
		}
		flags := c.flagsFor(c.cursor, forward)
		rc := n.state.Process(in, out, flags)
		switch rc {
		case RCData:
			in.Data, out.Data = out.Data, nil
			forward = true
			c.cursor++
		case RCDone, RCOutputDone:
			n.done = true
			c.cursor++
		case RCMore, RCBack:
			return rc, nil
		case RCFin:
			return RCFin, nil
		case RCAsync:
			return RCAsync, nil
		case RCErr, RCSysErr:
			return rc, ferr.New(ferr.System, "pipeline.stage:"+n.name, fmt.Errorf("stage reported %s during split", rc))
		default:
			return RCErr, ferr.New(ferr.Internal, "pipeline.protocol", fmt.Errorf("unknown rc %d during split", rc))
		}
	}
	return RCDone, nil
}

func (c *Chain) closeNode(idx int) error {
	n := c.nodes[idx]
	if n.closed {
		return nil
	}
	n.closed = true
	n.done = true
	return n.state.Close()
}

// closeAll closes every open node in reverse attachment order (spec.md
// §8: "closing the operation invokes close exactly once per opened
// stage, in reverse attachment order").
func (c *Chain) closeAll() {
	for i := len(c.nodes) - 1; i >= 0; i-- {
		_ = c.closeNode(i)
	}
}

func (c *Chain) finishClose() (RC, error) {
	c.closeAll()
	if c.errored {
		return RCErr, nil
	}
	return RCFin, nil
}

// DumpTopology renders the current chain for --debug mode (spec.md §7).
func (c *Chain) DumpTopology() string {
	names := make([]string, 0, len(c.nodes))
	for _, n := range c.nodes {
		names = append(names, n.name)
	}
	return strings.Join(names, " -> ")
}
