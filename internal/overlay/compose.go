package overlay

import (
	"image"

	"golang.org/x/image/draw"
)

// Compose draws src onto dst at placement p, blending over the existing pixels.
func Compose(dst *image.RGBA, src image.Image, p Placement) {
	if src == nil || p.Scale <= 0 || src.Bounds().Empty() {
		return
	}
	draw.BiLinear.Transform(dst, p.Matrix(src.Bounds()), src, src.Bounds(), draw.Over, nil)
}

// ComposeAll draws src once per placement.
func ComposeAll(dst *image.RGBA, src image.Image, placements []Placement) {
	for _, p := range placements {
		Compose(dst, src, p)
	}
}
