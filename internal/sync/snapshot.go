// Snapshot read/write implements the textual framing of spec.md §6
// ("Snapshot file format"): one `b "DIR" { ... }` block per directory,
// `f`/`d` lines for files/directories, version-checked and field-shape
// validated on read.
package sync

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stsaz/fcom/internal/dirtree"
	"github.com/stsaz/fcom/internal/ferr"
)

const snapshotVersion = 1

const timeLayout = "2006-01-02+15:04:05.000"

// WriteSnapshot renders t in the spec.md §6 textual format.
func WriteSnapshot(w io.Writer, t *dirtree.Tree) error {
	bw := bufio.NewWriter(w)
	for _, dir := range t.Dirs() {
		fmt.Fprintf(bw, "b %s {\n", quote(dir))
		fmt.Fprintf(bw, "  v %d\n", snapshotVersion)
		for _, e := range t.Block(dir) {
			if e.IsDir {
				fmt.Fprintf(bw, "  d %s %08x/%04x %d:%d %s\n",
					quote(e.Name), e.UnixAttr, e.WinAttr, e.UID, e.GID,
					e.MTime.UTC().Format(timeLayout))
				continue
			}
			fmt.Fprintf(bw, "  f %s %d %08x/%04x %d:%d %s %08x\n",
				quote(e.Name), e.Size, e.UnixAttr, e.WinAttr, e.UID, e.GID,
				e.MTime.UTC().Format(timeLayout), e.CRC32)
		}
		fmt.Fprintf(bw, "}\n")
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// ReadSnapshot parses the spec.md §6 textual format, validating the
// version field and every entry's shape strictly (a malformed field is
// a ferr.Format error, not a silently-dropped row).
func ReadSnapshot(r io.Reader) (*dirtree.Tree, error) {
	t := dirtree.New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var curDir string
	inBlock := false
	sawVersion := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case !inBlock && strings.HasPrefix(line, "b "):
			name, rest, err := readQuoted(line[2:])
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(rest) != "{" {
				return nil, ferr.New(ferr.Format, "sync.snapshot_read", nil)
			}
			curDir = name
			t.EnsureBlock(curDir)
			inBlock = true
			sawVersion = false

		case inBlock && line == "}":
			if !sawVersion {
				return nil, ferr.New(ferr.Format, "sync.snapshot_read", nil)
			}
			inBlock = false

		case inBlock && strings.HasPrefix(line, "v "):
			v, err := strconv.Atoi(strings.TrimSpace(line[2:]))
			if err != nil || v != snapshotVersion {
				return nil, ferr.New(ferr.Format, "sync.snapshot_read", nil)
			}
			sawVersion = true

		case inBlock && (strings.HasPrefix(line, "f ") || strings.HasPrefix(line, "d ")):
			isDir := line[0] == 'd'
			e, err := parseEntryLine(line[2:], isDir)
			if err != nil {
				return nil, err
			}
			if isDir {
				t.AddDir(join(curDir, e.Name), e)
			} else {
				t.Add(join(curDir, e.Name), e)
			}

		default:
			return nil, ferr.New(ferr.Format, "sync.snapshot_read", nil)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, ferr.New(ferr.System, "sync.snapshot_read", err)
	}
	if inBlock {
		return nil, ferr.New(ferr.Format, "sync.snapshot_read", nil)
	}
	return t, nil
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func parseEntryLine(rest string, isDir bool) (dirtree.Entry, error) {
	name, rest, err := readQuoted(rest)
	if err != nil {
		return dirtree.Entry{}, err
	}
	fields := strings.Fields(rest)
	e := dirtree.Entry{Name: name, IsDir: isDir}

	i := 0
	next := func() (string, error) {
		if i >= len(fields) {
			return "", ferr.New(ferr.Format, "sync.snapshot_read", nil)
		}
		v := fields[i]
		i++
		return v, nil
	}

	if !isDir {
		sizeStr, err := next()
		if err != nil {
			return e, err
		}
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
		}
		e.Size = size
	}

	attrStr, err := next()
	if err != nil {
		return e, err
	}
	unixHex, winHex, ok := strings.Cut(attrStr, "/")
	if !ok {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", nil)
	}
	unixAttr, err := strconv.ParseUint(unixHex, 16, 32)
	if err != nil {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
	}
	winAttr, err := strconv.ParseUint(winHex, 16, 32)
	if err != nil {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
	}
	e.UnixAttr, e.WinAttr = uint32(unixAttr), uint32(winAttr)

	idStr, err := next()
	if err != nil {
		return e, err
	}
	uidStr, gidStr, ok := strings.Cut(idStr, ":")
	if !ok {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", nil)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
	}
	gid, err := strconv.ParseUint(gidStr, 10, 32)
	if err != nil {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
	}
	e.UID, e.GID = uint32(uid), uint32(gid)

	mtimeStr, err := next()
	if err != nil {
		return e, err
	}
	mtime, err := time.Parse(timeLayout, mtimeStr)
	if err != nil {
		return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
	}
	e.MTime = mtime

	if !isDir {
		crcStr, err := next()
		if err != nil {
			return e, err
		}
		crc, err := strconv.ParseUint(crcStr, 16, 32)
		if err != nil {
			return e, ferr.New(ferr.Format, "sync.snapshot_read", err)
		}
		e.CRC32 = uint32(crc)
		e.HasCRC32 = true
	}
	return e, nil
}

// readQuoted consumes a leading `"..."` token (backslash-escaped quotes
// allowed) from s and returns its content plus the remainder.
func readQuoted(s string) (value, rest string, err error) {
	s = strings.TrimLeft(s, " ")
	if len(s) == 0 || s[0] != '"' {
		return "", "", ferr.New(ferr.Format, "sync.snapshot_read", nil)
	}
	var sb strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			sb.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return sb.String(), s[i+1:], nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", "", ferr.New(ferr.Format, "sync.snapshot_read", nil)
}
