// Package testdata builds synthetic frames and jewelry images for tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Gold is the fill color of generated jewelry images.
var Gold = color.NRGBA{R: 212, G: 175, B: 55, A: 255}

// JewelryImage returns an opaque w x h image filled with c.
func JewelryImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// WriteJewelryPNG writes a solid jewelry image to dir/name and returns its path.
func WriteJewelryPNG(dir, name string, w, h int) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if err := png.Encode(f, JewelryImage(w, h, Gold)); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return path, nil
}

// Frame returns a 640x480 BGR frame filled with the given channel values.
// The caller is responsible for closing the returned Mat.
func Frame(b, g, r float64) *gocv.Mat {
	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(b, g, r, 0))
	return &mat
}

// Frames returns n black 640x480 frames.
func Frames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = Frame(0, 0, 0)
	}
	return frames
}

// CloseAll releases every frame in the slice.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
