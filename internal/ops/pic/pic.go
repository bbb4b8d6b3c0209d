// Package pic implements the `pic` operation: convert an image file
// from one format to another, selecting codecs by file extension.
//
// Grounded on original_source/src/pic/pic.c's per-format read/write
// function-pointer dispatch (get_format_r/get_format_w) and its
// auto-naming rule ("if only an extension is given, use the source
// file name automatically" — see pic_oname). The spec (spec.md §1)
// explicitly keeps concrete codec libraries like libpng/libjpeg out of
// scope as external collaborators, so this package wires the stdlib
// image/png and image/jpeg packages instead — the closest in-pack
// equivalent, playing the same "reference codec for the format" role
// stdlib archive/zip plays for the ZIP format. BMP, which pic.c also
// supports, has no stdlib codec and is dropped (see DESIGN.md).
package pic

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("pic", func() registry.Operation { return &Op{} })
}

const (
	defaultJPEGQuality = 85
	defaultPNGLevel    = 9
)

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) == 0 {
		return ferr.New(ferr.Argument, "pic.create", nil)
	}
	if !d.HasOutput || d.Output == "" {
		return ferr.New(ferr.Argument, "pic.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	d := o.desc
	outExt, outIsBare := bareExtension(d.Output)

	for _, in := range d.Inputs {
		outPath := d.Output
		if outIsBare {
			outPath = autoName(in, d.Chdir, outExt)
		}
		if d.Favicon {
			if err := extractICO(in, outPath); err != nil {
				return err
			}
			continue
		}

		img, err := decode(in)
		if err != nil {
			return err
		}
		if err := o.convertOne(img, outPath); err != nil {
			return err
		}
	}
	return nil
}

func (o *Op) convertOne(img image.Image, outPath string) error {
	if !o.desc.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return ferr.New(ferr.Exists, "pic.run", nil)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return ferr.Wrap(ferr.System, "pic.run", err, "create %s", outPath)
	}
	defer f.Close()

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(outPath), ".")) {
	case "jpg", "jpeg":
		q := o.desc.Level
		if q <= 0 {
			q = defaultJPEGQuality
		}
		return jpeg.Encode(f, img, &jpeg.Options{Quality: q})
	case "png":
		enc := &png.Encoder{CompressionLevel: pngLevel(o.desc.Level)}
		return enc.Encode(f, img)
	default:
		return ferr.New(ferr.Format, "pic.run", nil)
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.NotFound, "pic.run", err, "open %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, ferr.Wrap(ferr.Format, "pic.run", err, "decode %s", path)
	}
	return img, nil
}

// bareExtension reports whether output is a bare ".ext" spec (pic.c's
// "only an extension is given" rule) and returns the extension without
// its leading dot.
func bareExtension(output string) (ext string, isBare bool) {
	base := filepath.Base(output)
	if len(base) > 1 && base[0] == '.' && !strings.Contains(base[1:], ".") {
		return base[1:], true
	}
	return "", false
}

// autoName builds "dir/inputbasename.ext", mirroring pic_oname's
// [-C dir] -o ".ext" branch.
func autoName(inputPath, chdir, ext string) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if chdir != "" {
		return filepath.Join(chdir, fmt.Sprintf("%s.%s", name, ext))
	}
	return fmt.Sprintf("%s.%s", name, ext)
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.DefaultCompression
	case level <= 3:
		return png.BestSpeed
	case level >= defaultPNGLevel:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string {
	return "pic INPUT... -o OUTPUT [--favicon]"
}
