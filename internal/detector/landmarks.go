// Package detector provides landmark detection interfaces and types for face and hand tracking.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Face mesh landmark indices used for jewelry placement.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	FaceChin         = 152
	FaceLeftEar      = 234
	FaceRightEar     = 454
	NumFaceLandmarks = 468
)

var nan = math.NaN()

// Class identifies which landmark model a detector runs.
type Class string

const (
	// ClassFace is the face mesh model used for earrings and necklaces.
	ClassFace Class = "face"
	// ClassHand is the hand landmark model used for rings and bracelets.
	ClassHand Class = "hand"
)

// Point3D represents a normalized landmark with x, y in 0..1 and relative depth z.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Valid reports whether the point carries usable coordinates.
func (p Point3D) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FaceLandmarks represents the face mesh points of a single detected face.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Result is the per-frame output of a detector. A face detector fills Face,
// a hand detector fills Hands.
type Result struct {
	Face  *FaceLandmarks  `json:"face,omitempty"`
	Hands []HandLandmarks `json:"hands,omitempty"`
}

// Empty reports whether the result contains no landmarks at all.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	return (r.Face == nil || len(r.Face.Points) == 0) && len(r.Hands) == 0
}

// Sets returns the landmark lists contained in the result, one per detected
// face or hand, in detection order.
func (r *Result) Sets() [][]Point3D {
	if r == nil {
		return nil
	}

	var sets [][]Point3D
	if r.Face != nil && len(r.Face.Points) > 0 {
		sets = append(sets, r.Face.Points)
	}
	for i := range r.Hands {
		sets = append(sets, r.Hands[i].Points[:])
	}
	return sets
}
