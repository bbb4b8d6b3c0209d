package dirtree

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/archive/zipcodec"
	"github.com/stsaz/fcom/internal/ferr"
)

// ScanOptions controls Scan's behaviour.
type ScanOptions struct {
	// ZipExpand treats .zip files as directories: their central
	// directory is read and grafted as children of the zip entry,
	// per spec.md §4.6's "--zip-expand" mode.
	ZipExpand bool
}

// Scan recursively walks root and returns the Tree of everything found
// under it, relative to root (root itself is the "" block).
func Scan(root string, opt ScanOptions) (*Tree, error) {
	t := New()
	if err := scanDir(t, root, "", opt); err != nil {
		return nil, err
	}
	t.CheckParents("")
	t.Sort()
	return t, nil
}

func scanDir(t *Tree, absDir, relDir string, opt ScanOptions) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return ferr.New(ferr.System, "dirtree.scan", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	t.EnsureBlock(relDir)
	for _, de := range entries {
		fi, err := de.Info()
		if err != nil {
			return ferr.New(ferr.System, "dirtree.scan", err)
		}
		relPath := join(relDir, de.Name())
		if de.IsDir() {
			t.AddDir(relPath, Entry{Name: de.Name(), MTime: fi.ModTime().UTC()})
			if err := scanDir(t, filepath.Join(absDir, de.Name()), relPath, opt); err != nil {
				return err
			}
			continue
		}
		e := Entry{
			Name:  de.Name(),
			Size:  fi.Size(),
			MTime: fi.ModTime().UTC(),
		}
		applyPlatformStat(&e, fi)
		t.Add(relPath, e)

		if opt.ZipExpand && filepath.Ext(de.Name()) == ".zip" {
			if err := graftZip(t, filepath.Join(absDir, de.Name()), relPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// graftZip reads zipPath's central directory and attaches its members
// as children of the zip file entry at relPath, per spec.md §4.6.
func graftZip(t *Tree, absZipPath, relPath string) error {
	fi, err := os.Stat(absZipPath)
	if err != nil {
		return ferr.New(ferr.System, "dirtree.zip_expand", err)
	}
	f, err := os.Open(absZipPath)
	if err != nil {
		return ferr.New(ferr.System, "dirtree.zip_expand", err)
	}
	defer f.Close()

	zr, err := zipcodec.NewReader(f, fi.Size())
	if err != nil {
		return err
	}
	defer zr.Close()

	t.EnsureBlock(relPath)
	for {
		ent, err := zr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(ent.Name, "/")
		full := join(relPath, name)
		if ent.Type == archive.Directory {
			t.AddDir(full, Entry{Name: filepath.Base(name), MTime: ent.MTime})
		} else {
			t.Add(full, Entry{
				Name:     filepath.Base(name),
				Size:     int64(ent.Size),
				MTime:    ent.MTime,
				UnixAttr: ent.UnixAttr,
				WinAttr:  ent.WinAttr,
			})
		}
	}
	return nil
}
