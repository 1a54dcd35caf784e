package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	class  Class
	result *Result
	err    error
	calls  int
	closed bool
	mu     sync.Mutex
}

// NewMockDetector creates a new MockDetector instance for the given class.
func NewMockDetector(class Class) *MockDetector {
	return &MockDetector{class: class}
}

// SetResult sets the result that will be returned by Detect.
func (m *MockDetector) SetResult(result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.SetResult(&Result{Hands: hands})
}

// SetFace sets the face that will be returned by Detect.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.SetResult(&Result{Face: face})
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Class returns the configured model class.
func (m *MockDetector) Class() Class {
	return m.class
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// Calls returns how many times Detect ran on an open detector.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm
// with the back of the hand towards the camera. All fingers are extended.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// FrontalFaceLandmarks returns a preset face mesh for a subject looking
// straight at the camera. Only the points used for jewelry placement carry
// distinct positions; the rest sit on the face center.
func FrontalFaceLandmarks() *FaceLandmarks {
	face := &FaceLandmarks{
		Points: make([]Point3D, NumFaceLandmarks),
		Score:  0.97,
	}

	for i := range face.Points {
		face.Points[i] = Point3D{X: 0.5, Y: 0.45}
	}

	// Ears are symmetric around x=0.5
	face.Points[FaceLeftEar] = Point3D{X: 0.35, Y: 0.45, Z: 0.05}
	face.Points[FaceRightEar] = Point3D{X: 0.65, Y: 0.45, Z: 0.05}
	face.Points[FaceChin] = Point3D{X: 0.5, Y: 0.65, Z: -0.02}

	return face
}
