// Package capture writes rendered frames to image files.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

var (
	// ErrUnknownFormat is returned for output paths without a supported extension.
	ErrUnknownFormat = errors.New("capture: unknown image format")

	// ErrScale is returned for scale factors outside (0, 1].
	ErrScale = errors.New("capture: scale must be in (0, 1]")
)

// Format is an output image encoding.
type Format int

const (
	PNG Format = iota
	WebP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case WebP:
		return "webp"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFor picks the encoding from the file extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".webp":
		return WebP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Options controls Write.
type Options struct {
	// Scale downsizes the image before encoding. 0 and 1 keep the original size.
	Scale float64
}

// Write encodes img to path, choosing the format by extension. Parent
// directories are created as needed.
func Write(path string, img image.Image, opts Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	img, err = Scale(img, opts.Scale)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("capture: close %s: %w", path, err)
	}
	return nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("capture: %s encode: %w", format, err)
	}
	return nil
}

// Scale returns img resized by factor with Catmull-Rom filtering. Factors of
// 0 and 1 return img unchanged.
func Scale(img image.Image, factor float64) (image.Image, error) {
	if factor == 0 || factor == 1 {
		return img, nil
	}
	if factor < 0 || factor > 1 || math.IsNaN(factor) {
		return nil, fmt.Errorf("%w: %v", ErrScale, factor)
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// FrameName returns the path for frame i of a sequence: "out.png" becomes
// "out_0003.png" for i == 3.
func FrameName(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), i, ext)
}
