package overlay

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
)

// Placement is one jewelry image drawn on the frame. The image is drawn
// centered on Anchor+Offset in a coordinate system rotated by Rotation
// around Anchor, scaled by Scale.
type Placement struct {
	Anchor   r2.Vec
	Rotation float64 // radians
	Scale    float64
	Offset   r2.Vec
}

// Center returns the frame position of the image center.
func (p Placement) Center() r2.Vec {
	return r2.Add(p.Anchor, r2.Rotate(p.Offset, p.Rotation, r2.Vec{}))
}

// Size returns the drawn size of a w x h image.
func (p Placement) Size(w, h int) r2.Vec {
	return r2.Vec{X: float64(w) * p.Scale, Y: float64(h) * p.Scale}
}

// Matrix returns the transform from source image coordinates to frame
// coordinates: translate to the anchor, rotate, then draw the image centered
// with the offset folded into the translation.
func (p Placement) Matrix(src image.Rectangle) f64.Aff3 {
	w := float64(src.Dx())
	h := float64(src.Dy())
	sin, cos := math.Sincos(p.Rotation)

	tx := -p.Scale*w/2 + p.Offset.X
	ty := -p.Scale*h/2 + p.Offset.Y

	a := p.Scale * cos
	b := -p.Scale * sin
	c := p.Anchor.X + cos*tx - sin*ty
	d := p.Scale * sin
	e := p.Scale * cos
	f := p.Anchor.Y + sin*tx + cos*ty

	// Source coordinates start at src.Min.
	mx := float64(src.Min.X)
	my := float64(src.Min.Y)
	c -= a*mx + b*my
	f -= d*mx + e*my

	return f64.Aff3{a, b, c, d, e, f}
}

// Bounds returns the frame rectangle covered by a placed w x h image.
func (p Placement) Bounds(w, h int) image.Rectangle {
	m := p.Matrix(image.Rect(0, 0, w, h))
	corners := [4]r2.Vec{{X: 0, Y: 0}, {X: float64(w), Y: 0}, {X: 0, Y: float64(h)}, {X: float64(w), Y: float64(h)}}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x := m[0]*c.X + m[1]*c.Y + m[2]
		y := m[3]*c.X + m[4]*c.Y + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Input is everything placement needs for one frame.
type Input struct {
	Category   jewelry.Category
	Result     *detector.Result
	Width      int // frame width in pixels
	Height     int // frame height in pixels
	AssetWidth int
	Adjustment adjust.Adjustment
}

// Place computes the placements for one frame. It reports false when the
// landmarks the category needs are missing, which is a detection miss rather
// than an error. Hand categories are placed on every hand that carries all
// required landmarks.
func (t Table) Place(in Input) ([]Placement, bool) {
	spec, ok := t[in.Category]
	if !ok || in.Width <= 0 || in.Height <= 0 {
		return nil, false
	}

	adj := in.Adjustment.Clamp()
	rotation := adj.Radians()
	offset := r2.Add(spec.BaseOffset, r2.Vec{X: adj.OffsetX, Y: adj.OffsetY})

	var placements []Placement
	for _, set := range landmarkSets(spec.Class, in.Result) {
		anchors, ok := anchorPixels(set, spec.Landmarks, in.Width, in.Height)
		if !ok {
			continue
		}

		scale, ok := spec.scale(set, in, adj.ScaleFactor)
		if !ok {
			continue
		}

		for _, anchor := range anchors {
			placements = append(placements, Placement{
				Anchor:   anchor,
				Rotation: rotation,
				Scale:    scale,
				Offset:   offset,
			})
		}
	}

	return placements, len(placements) > 0
}

func (s AnchorSpec) scale(set []detector.Point3D, in Input, factor float64) (float64, bool) {
	if s.Dynamic == nil {
		return s.BaseScale * factor, true
	}

	from, ok := pixel(set, s.Dynamic.From, in.Width, in.Height)
	if !ok {
		return 0, false
	}
	to, ok := pixel(set, s.Dynamic.To, in.Width, in.Height)
	if !ok {
		return 0, false
	}

	assetWidth := in.AssetWidth
	if assetWidth <= 0 {
		assetWidth = in.Width
	}

	distance := r2.Norm(r2.Sub(from, to))
	return distance * s.Dynamic.WidthRatio / float64(assetWidth) * factor, true
}

func landmarkSets(class detector.Class, result *detector.Result) [][]detector.Point3D {
	if result == nil {
		return nil
	}

	switch class {
	case detector.ClassFace:
		if result.Face == nil || len(result.Face.Points) == 0 {
			return nil
		}
		return [][]detector.Point3D{result.Face.Points}
	case detector.ClassHand:
		sets := make([][]detector.Point3D, 0, len(result.Hands))
		for i := range result.Hands {
			sets = append(sets, result.Hands[i].Points[:])
		}
		return sets
	default:
		return nil
	}
}

func anchorPixels(set []detector.Point3D, indices []int, w, h int) ([]r2.Vec, bool) {
	anchors := make([]r2.Vec, 0, len(indices))
	for _, idx := range indices {
		p, ok := pixel(set, idx, w, h)
		if !ok {
			return nil, false
		}
		anchors = append(anchors, p)
	}
	return anchors, len(anchors) > 0
}

// pixel converts a normalized landmark into mirrored frame coordinates.
func pixel(set []detector.Point3D, idx, w, h int) (r2.Vec, bool) {
	if idx < 0 || idx >= len(set) || !set[idx].Valid() {
		return r2.Vec{}, false
	}
	p := set[idx]
	return r2.Vec{
		X: (1 - p.X) * float64(w),
		Y: p.Y * float64(h),
	}, true
}
