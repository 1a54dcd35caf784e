package overlay

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/testdata"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func handAt(x, y float64) detector.HandLandmarks {
	hand := detector.OpenPalmLandmarks()
	hand.Points[detector.RingTip] = detector.Point3D{X: x, Y: y}
	return hand
}

func TestPlace_RingAtCenter(t *testing.T) {
	table := DefaultTable()

	placements, ok := table.Place(Input{
		Category:   jewelry.Ring,
		Result:     &detector.Result{Hands: []detector.HandLandmarks{handAt(0.5, 0.5)}},
		Width:      640,
		Height:     480,
		Adjustment: adjust.Default(),
	})
	if !ok {
		t.Fatal("expected ring to be placed")
	}
	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}

	p := placements[0]
	if !near(p.Anchor.X, 320) || !near(p.Anchor.Y, 240) {
		t.Errorf("anchor = %+v, want (320, 240)", p.Anchor)
	}
	if p.Rotation != 0 {
		t.Errorf("rotation = %v, want 0", p.Rotation)
	}
	if !near(p.Scale, 0.1) {
		t.Errorf("scale = %v, want 0.1", p.Scale)
	}
	if p.Offset != (r2.Vec{X: 0, Y: 25}) {
		t.Errorf("offset = %+v, want base offset (0, 25)", p.Offset)
	}

	c := p.Center()
	if !near(c.X, 320) || !near(c.Y, 265) {
		t.Errorf("center = %+v, want (320, 265)", c)
	}
}

func TestPlace_EarringsMirrored(t *testing.T) {
	table := DefaultTable()
	face := detector.FrontalFaceLandmarks()

	// Shift the face off-center to make sure symmetry is about the face, not the frame.
	face.Points[detector.FaceLeftEar] = detector.Point3D{X: 0.2, Y: 0.5}
	face.Points[detector.FaceRightEar] = detector.Point3D{X: 0.4, Y: 0.5}

	for _, adj := range []adjust.Adjustment{
		adjust.Default(),
		{OffsetX: 0, OffsetY: -30, ScaleFactor: 1.3, RotationAngle: 20},
	} {
		placements, ok := table.Place(Input{
			Category:   jewelry.Earring,
			Result:     &detector.Result{Face: face},
			Width:      640,
			Height:     480,
			Adjustment: adj,
		})
		if !ok {
			t.Fatal("expected earrings to be placed")
		}
		if len(placements) != 2 {
			t.Fatalf("expected 2 placements, got %d", len(placements))
		}

		left, right := placements[0], placements[1]
		faceCenter := (1 - 0.3) * 640

		if !near(left.Anchor.X+right.Anchor.X, 2*faceCenter) {
			t.Errorf("anchors %v and %v are not mirrored around %v", left.Anchor.X, right.Anchor.X, faceCenter)
		}
		if left.Anchor.Y != right.Anchor.Y {
			t.Errorf("anchors at different heights: %v and %v", left.Anchor.Y, right.Anchor.Y)
		}
		if left.Scale != right.Scale || left.Rotation != right.Rotation {
			t.Error("earrings must share scale and rotation")
		}
		if !near(left.Scale, 0.15*adj.ScaleFactor) {
			t.Errorf("scale = %v, want %v", left.Scale, 0.15*adj.ScaleFactor)
		}
	}
}

func TestPlace_BraceletScaleMonotonic(t *testing.T) {
	table := DefaultTable()

	prev := -1.0
	for _, span := range []float64{0.02, 0.05, 0.1, 0.15, 0.3} {
		hand := detector.OpenPalmLandmarks()
		hand.Points[detector.IndexMCP] = detector.Point3D{X: 0.5 + span/2, Y: 0.7}
		hand.Points[detector.PinkyMCP] = detector.Point3D{X: 0.5 - span/2, Y: 0.7}

		placements, ok := table.Place(Input{
			Category:   jewelry.Bracelet,
			Result:     &detector.Result{Hands: []detector.HandLandmarks{hand}},
			Width:      640,
			Height:     480,
			AssetWidth: 200,
			Adjustment: adjust.Adjustment{ScaleFactor: 0.8},
		})
		if !ok {
			t.Fatalf("span %v: expected bracelet to be placed", span)
		}

		scale := placements[0].Scale
		if scale < prev {
			t.Errorf("scale decreased from %v to %v at span %v", prev, scale, span)
		}
		prev = scale

		want := span * 640 * 1.6 / 200 * 0.8
		if !near(scale, want) {
			t.Errorf("span %v: scale = %v, want %v", span, scale, want)
		}
	}
}

func TestPlace_Misses(t *testing.T) {
	table := DefaultTable()

	nanWrist := detector.OpenPalmLandmarks()
	nanWrist.Points[detector.Wrist] = detector.Point3D{X: math.NaN(), Y: math.NaN()}

	tests := []struct {
		name     string
		category jewelry.Category
		result   *detector.Result
	}{
		{name: "nil result", category: jewelry.Necklace, result: nil},
		{name: "no face", category: jewelry.Necklace, result: &detector.Result{}},
		{name: "hands only for necklace", category: jewelry.Necklace, result: &detector.Result{Hands: []detector.HandLandmarks{detector.OpenPalmLandmarks()}}},
		{name: "truncated face mesh", category: jewelry.Earring, result: &detector.Result{Face: &detector.FaceLandmarks{Points: make([]detector.Point3D, 10)}}},
		{name: "no hands", category: jewelry.Ring, result: &detector.Result{Face: detector.FrontalFaceLandmarks()}},
		{name: "NaN wrist", category: jewelry.Bracelet, result: &detector.Result{Hands: []detector.HandLandmarks{nanWrist}}},
		{name: "unknown category", category: jewelry.Category("Anklet"), result: &detector.Result{Face: detector.FrontalFaceLandmarks()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placements, ok := table.Place(Input{
				Category:   tt.category,
				Result:     tt.result,
				Width:      640,
				Height:     480,
				Adjustment: adjust.Default(),
			})
			if ok || len(placements) != 0 {
				t.Errorf("expected a miss, got %d placements", len(placements))
			}
		})
	}
}

func TestPlace_EveryHand(t *testing.T) {
	table := DefaultTable()

	nanTip := handAt(math.NaN(), 0.5)

	placements, ok := table.Place(Input{
		Category:   jewelry.Ring,
		Result:     &detector.Result{Hands: []detector.HandLandmarks{handAt(0.3, 0.4), nanTip, handAt(0.7, 0.4)}},
		Width:      640,
		Height:     480,
		Adjustment: adjust.Default(),
	})
	if !ok {
		t.Fatal("expected rings to be placed")
	}
	if len(placements) != 2 {
		t.Errorf("expected one placement per complete hand, got %d", len(placements))
	}
}

func TestPlace_ManualAdjustment(t *testing.T) {
	table := DefaultTable()

	placements, ok := table.Place(Input{
		Category:   jewelry.Necklace,
		Result:     &detector.Result{Face: detector.FrontalFaceLandmarks()},
		Width:      640,
		Height:     480,
		Adjustment: adjust.Adjustment{OffsetX: 10, OffsetY: -20, ScaleFactor: 0.5, RotationAngle: 90},
	})
	if !ok {
		t.Fatal("expected necklace to be placed")
	}

	p := placements[0]
	if p.Offset != (r2.Vec{X: 10, Y: 70}) {
		t.Errorf("offset = %+v, want (10, 70)", p.Offset)
	}
	if !near(p.Scale, 0.2) {
		t.Errorf("scale = %v, want 0.2", p.Scale)
	}
	if !near(p.Rotation, math.Pi/2) {
		t.Errorf("rotation = %v, want pi/2", p.Rotation)
	}

	// A quarter turn maps the offset (10, 70) to (-70, 10) around the chin.
	c := p.Center()
	if !near(c.X, 320-70) || !near(c.Y, 0.65*480+10) {
		t.Errorf("center = %+v", c)
	}
}

func TestPlacement_Matrix(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
		src  image.Rectangle
	}{
		{
			name: "unrotated",
			p:    Placement{Anchor: r2.Vec{X: 320, Y: 240}, Scale: 0.1, Offset: r2.Vec{Y: 25}},
			src:  image.Rect(0, 0, 100, 100),
		},
		{
			name: "rotated and offset source",
			p:    Placement{Anchor: r2.Vec{X: 100, Y: 50}, Rotation: 0.7, Scale: 2, Offset: r2.Vec{X: -5, Y: 12}},
			src:  image.Rect(10, 20, 50, 40),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.p.Matrix(tt.src)

			// The source center lands on the placement center.
			cx := float64(tt.src.Min.X+tt.src.Max.X) / 2
			cy := float64(tt.src.Min.Y+tt.src.Max.Y) / 2
			x := m[0]*cx + m[1]*cy + m[2]
			y := m[3]*cx + m[4]*cy + m[5]

			want := tt.p.Center()
			if !near(x, want.X) || !near(y, want.Y) {
				t.Errorf("center maps to (%v, %v), want %+v", x, y, want)
			}

			// The transform scales lengths by Scale.
			det := m[0]*m[4] - m[1]*m[3]
			if !near(det, tt.p.Scale*tt.p.Scale) {
				t.Errorf("determinant = %v, want %v", det, tt.p.Scale*tt.p.Scale)
			}
		})
	}
}

func TestPlacement_Bounds(t *testing.T) {
	p := Placement{Anchor: r2.Vec{X: 320, Y: 240}, Scale: 0.1, Offset: r2.Vec{Y: 25}}

	if got := p.Bounds(100, 100); got != image.Rect(315, 260, 325, 270) {
		t.Errorf("Bounds() = %v, want (315,260)-(325,270)", got)
	}
	if got := p.Size(100, 50); got != (r2.Vec{X: 10, Y: 5}) {
		t.Errorf("Size() = %+v, want (10, 5)", got)
	}
}

func TestTable_Calibrate(t *testing.T) {
	base := DefaultTable()

	t.Run("fixed scale category", func(t *testing.T) {
		tuned, err := base.Calibrate(jewelry.Necklace, 0.5, r2.Vec{X: 0, Y: 60})
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}
		if tuned[jewelry.Necklace].BaseScale != 0.5 || tuned[jewelry.Necklace].BaseOffset.Y != 60 {
			t.Errorf("necklace spec = %+v", tuned[jewelry.Necklace])
		}
		if base[jewelry.Necklace].BaseScale != 0.4 {
			t.Error("Calibrate must not modify the original table")
		}
		if tuned[jewelry.Ring].BaseScale != base[jewelry.Ring].BaseScale {
			t.Error("other categories must be unchanged")
		}
	})

	t.Run("dynamic category", func(t *testing.T) {
		tuned, err := base.Calibrate(jewelry.Bracelet, 2, r2.Vec{})
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}
		if tuned[jewelry.Bracelet].Dynamic.WidthRatio != 2 {
			t.Errorf("WidthRatio = %v, want 2", tuned[jewelry.Bracelet].Dynamic.WidthRatio)
		}
		if base[jewelry.Bracelet].Dynamic.WidthRatio != 1.6 {
			t.Error("Calibrate must not modify the original dynamic scale")
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		if _, err := base.Calibrate(jewelry.Category("Anklet"), 1, r2.Vec{}); !errors.Is(err, jewelry.ErrUnknownCategory) {
			t.Errorf("expected ErrUnknownCategory, got %v", err)
		}
		if _, err := base.Calibrate(jewelry.Ring, 0, r2.Vec{}); err == nil {
			t.Error("expected error for zero scale")
		}
	})
}

func TestGuidance(t *testing.T) {
	for _, c := range jewelry.Categories() {
		if Guidance(c) == "" {
			t.Errorf("missing guidance for %s", c)
		}
	}
	if Guidance(jewelry.Earring) == Guidance(jewelry.Bracelet) {
		t.Error("face and hand categories should have different guidance")
	}
}

func TestCompose(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 640, 480))
	src := testdata.JewelryImage(100, 100, testdata.Gold)

	p := Placement{Anchor: r2.Vec{X: 320, Y: 240}, Scale: 0.5}
	Compose(dst, src, p)

	got := dst.RGBAAt(320, 240)
	want := color.RGBA{R: testdata.Gold.R, G: testdata.Gold.G, B: testdata.Gold.B, A: 255}
	if got != want {
		t.Errorf("center pixel = %v, want %v", got, want)
	}

	if corner := dst.RGBAAt(0, 0); corner != (color.RGBA{}) {
		t.Errorf("pixel outside the placement changed: %v", corner)
	}
	if outside := dst.RGBAAt(320, 300); outside != (color.RGBA{}) {
		t.Errorf("pixel below the 50x50 placement changed: %v", outside)
	}

	t.Run("zero scale draws nothing", func(t *testing.T) {
		blank := image.NewRGBA(image.Rect(0, 0, 10, 10))
		Compose(blank, src, Placement{Anchor: r2.Vec{X: 5, Y: 5}})
		if blank.RGBAAt(5, 5) != (color.RGBA{}) {
			t.Error("expected nothing drawn")
		}
	})
}
