// Package overlay computes where jewelry images are drawn on a mirrored
// video frame and composites them onto it.
//
// Placement is pure: it takes normalized landmarks, the frame size and the
// manual adjustment, and returns the affine placements to draw. Per-category
// constants live in a Table so they can be re-tuned without touching the
// placement code.
package overlay

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
)

// DynamicScale derives the draw scale from the on-screen distance between
// two landmarks instead of a fixed base scale. The drawn image width becomes
// distance × WidthRatio.
type DynamicScale struct {
	From       int
	To         int
	WidthRatio float64
}

// AnchorSpec describes how one jewelry category is attached to the body.
type AnchorSpec struct {
	// Class is the landmark model the category needs.
	Class detector.Class

	// Landmarks are the anchor point indices. Each index yields one placement.
	Landmarks []int

	// BaseScale is multiplied by the manual scale factor. Ignored when Dynamic is set.
	BaseScale float64

	// BaseOffset is added to the manual offsets, in pixels, before rotation.
	BaseOffset r2.Vec

	Dynamic *DynamicScale

	// Guidance is shown when the landmarks are missing from a frame.
	Guidance string
}

// Table maps each jewelry category to its anchor spec.
type Table map[jewelry.Category]AnchorSpec

// DefaultTable returns anchor specs tuned for MediaPipe face mesh and hand
// landmarks on a 640x480 frame.
func DefaultTable() Table {
	return Table{
		jewelry.Earring: {
			Class:      detector.ClassFace,
			Landmarks:  []int{detector.FaceLeftEar, detector.FaceRightEar},
			BaseScale:  0.15,
			BaseOffset: r2.Vec{X: 0, Y: 20},
			Guidance:   "Face not detected. Please ensure your face is visible to the camera.",
		},
		jewelry.Necklace: {
			Class:      detector.ClassFace,
			Landmarks:  []int{detector.FaceChin},
			BaseScale:  0.4,
			BaseOffset: r2.Vec{X: 0, Y: 90},
			Guidance:   "Face not detected. Please ensure your face and neck are visible to the camera.",
		},
		jewelry.Ring: {
			Class:      detector.ClassHand,
			Landmarks:  []int{detector.RingTip},
			BaseScale:  0.1,
			BaseOffset: r2.Vec{X: 0, Y: 25},
			Guidance:   "Hand not detected. Please show your hand with your fingers spread.",
		},
		jewelry.Bracelet: {
			Class:      detector.ClassHand,
			Landmarks:  []int{detector.Wrist},
			BaseOffset: r2.Vec{X: 0, Y: 10},
			Dynamic: &DynamicScale{
				From:       detector.IndexMCP,
				To:         detector.PinkyMCP,
				WidthRatio: 1.6,
			},
			Guidance: "Wrist not detected. Please show your wrist and the back of your hand.",
		},
	}
}

// Spec returns the anchor spec for a category.
func (t Table) Spec(category jewelry.Category) (AnchorSpec, bool) {
	spec, ok := t[category]
	return spec, ok
}

// Guidance returns the message shown when a category's landmarks are missing.
func (t Table) Guidance(category jewelry.Category) string {
	if spec, ok := t[category]; ok && spec.Guidance != "" {
		return spec.Guidance
	}
	return "Please move into view of the camera."
}

// Calibrate returns a copy of the table with the base scale and offset of one
// category replaced. For a dynamically scaled category the scale replaces
// the width ratio.
func (t Table) Calibrate(category jewelry.Category, scale float64, offset r2.Vec) (Table, error) {
	spec, ok := t[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", jewelry.ErrUnknownCategory, category)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("calibration scale must be positive, got %v", scale)
	}

	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}

	spec.Landmarks = append([]int(nil), spec.Landmarks...)
	spec.BaseOffset = offset
	if spec.Dynamic != nil {
		dyn := *spec.Dynamic
		dyn.WidthRatio = scale
		spec.Dynamic = &dyn
	} else {
		spec.BaseScale = scale
	}
	out[category] = spec

	return out, nil
}

// Guidance returns the default detection-miss message for a category.
func Guidance(category jewelry.Category) string {
	return DefaultTable().Guidance(category)
}
