// Package opdesc defines the operation descriptor of spec.md §3: a
// single record shared between the operation manager (internal/opmgr)
// and each operation implementation under internal/ops.
//
// No teacher source for this record survived retrieval — rclone's
// equivalent command-dispatch state lives in cmd/*, which the retrieval
// pack kept only as *_test.go files — so the field set is taken directly
// from spec.md §3, with naming and the owner/callback shape grounded on
// the command-descriptor pattern visible throughout those test files
// (a *cobra.Command carrying flags plus a completion hook).
package opdesc

import "github.com/google/uuid"

// Desc is the operation descriptor. Argv is owned by the descriptor;
// Inputs may grow during execution as directories are recursed into
// (spec.md §3 "input paths may be appended during execution").
type Desc struct {
	ID   uuid.UUID
	Name string
	Argv []string

	Inputs  []string
	Include []string
	Exclude []string

	Output    string
	HasOutput bool
	Chdir     string

	Stdin  bool
	Stdout bool

	Overwrite  bool
	Test       bool
	NoPrealloc bool
	DirectIO   bool
	Recursive  bool
	DirFirst   bool
	Help       bool
	StrictRename bool // see SPEC_FULL.md §D: Open Question 1 decision

	BufferSize uint

	StdinFD  uintptr
	StdoutFD uintptr

	// Per-operation options (spec.md §3 "per-operation options" carried
	// by the descriptor; concrete fields rather than an untyped map
	// since each one is named explicitly somewhere in spec.md §4.6/§4.7
	// or SPEC_FULL.md §C.8).

	// copy (spec.md §4.7)
	Password  string
	Encrypt   bool
	Decrypt   bool
	Verify    bool
	WriteInto bool

	// pack/unpack (spec.md §4.5)
	Method          string
	Level           int
	Members         []string
	MembersFromFile string
	List            bool // unzip --list: print member table, extract nothing

	// sync (spec.md §4.6)
	SnapshotOut  string
	SourceSnap   string
	NoAttr       bool
	NoTime       bool
	ReplaceDate  bool
	ShowDirs     bool
	SwapSides    bool
	ZipExpand    bool
	DiffMask     string
	NewerThanStr string

	// textcount (SPEC_FULL.md §C.8)
	Histogram bool

	// pic (SPEC_FULL.md §C.8)
	Favicon bool

	OnComplete func(d *Desc, err error)
	UserData   any

	// Err accumulates the first fatal error seen by the running
	// operation; set by internal/opmgr before invoking OnComplete.
	Err error
}

// New allocates a descriptor stamped with a fresh operation ID.
func New(name string) *Desc {
	return &Desc{
		ID:   uuid.New(),
		Name: name,
	}
}

// AppendInput appends a discovered path (e.g. a directory recursion
// result) to the input list, honoring the "may be appended during
// execution" invariant.
func (d *Desc) AppendInput(path string) {
	d.Inputs = append(d.Inputs, path)
}

// Complete invokes OnComplete, if set, recording err as the operation's
// terminal result.
func (d *Desc) Complete(err error) {
	d.Err = err
	if d.OnComplete != nil {
		d.OnComplete(d, err)
	}
}
